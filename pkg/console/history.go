package console

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type historyFile struct {
	History []string `yaml:"history"`
}

// LoadHistory reads a history file written by SaveHistory. A missing file
// yields an empty history.
func LoadHistory(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var hf historyFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	return hf.History, nil
}

// SaveHistory writes the newest limit lines to path, creating its
// directory if needed. A limit of zero or less means DefaultHistoryLimit.
func SaveHistory(path string, lines []string, limit int) error {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	data, err := yaml.Marshal(historyFile{History: lines})
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return os.Rename(tmp, path)
}

// HistoryCursor steps through a history from an input line, the way Up and
// Down do. Position 0 is the empty line being typed.
type HistoryCursor struct {
	pos int
}

// Older moves one entry back and returns it.
func (c *HistoryCursor) Older(history []string) string {
	if c.pos < len(history) {
		c.pos++
	}
	return c.current(history)
}

// Newer moves one entry forward and returns it, or "" past the newest.
func (c *HistoryCursor) Newer(history []string) string {
	if c.pos > 0 {
		c.pos--
	}
	return c.current(history)
}

// Reset returns to the line being typed.
func (c *HistoryCursor) Reset() { c.pos = 0 }

func (c *HistoryCursor) current(history []string) string {
	if c.pos == 0 || c.pos > len(history) {
		return ""
	}
	return history[len(history)-c.pos]
}
