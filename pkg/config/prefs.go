package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/viper"
)

// ErrNoPreference is returned for an unknown group or key.
var ErrNoPreference = errors.New("no such preference")

// Preferences is the grouped key/value store behind the preference glue.
// Groups and keys are case-insensitive. Every Set is written through.
type Preferences struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// GetPrefsPath returns the default preferences file.
func GetPrefsPath() string {
	return filepath.Join(GetConfigDir(), "prefs.yaml")
}

// LoadPreferences reads path; a missing file gives an empty store. An
// empty path keeps the store in memory only.
func LoadPreferences(path string) (*Preferences, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	p := &Preferences{v: v, path: path}
	if path == "" {
		return p, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("reading preferences %s: %w", path, err)
	}
	return p, nil
}

// Groups returns the preference groups, sorted.
func (p *Preferences) Groups() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var groups []string
	for name, val := range p.v.AllSettings() {
		if _, ok := val.(map[string]any); ok {
			groups = append(groups, name)
		}
	}
	sort.Strings(groups)
	return groups
}

// Keys returns the keys of group, sorted.
func (p *Preferences) Keys(group string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.v.Get(group).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("group %s: %w", group, ErrNoPreference)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the value of group.key.
func (p *Preferences) Get(group, key string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	full := group + "." + key
	if !p.v.IsSet(full) {
		return nil, fmt.Errorf("%s: %w", full, ErrNoPreference)
	}
	return p.v.Get(full), nil
}

// Set stores group.key and writes the file.
func (p *Preferences) Set(group, key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.v.Set(group+"."+key, value)
	if p.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}
	if err := p.v.WriteConfigAs(p.path); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
