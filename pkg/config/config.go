// Package config provides configuration shared by the console front-ends.
// Settings come from ~/.pawconsole/config.yaml, PAWCONSOLE_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default settings
const (
	DefaultFontSize      = 14
	DefaultRefreshRate   = 100
	DefaultHistoryLimit  = 1000
	DefaultFlushDelay    = 100 * time.Millisecond
	DefaultWindowColumns = 100
	DefaultWindowRows    = 30
	EnvPrefix            = "PAWCONSOLE"
)

// ThemeMode represents the GUI theme setting
type ThemeMode string

const (
	ThemeAuto  ThemeMode = "auto"  // Follow OS preference
	ThemeDark  ThemeMode = "dark"  // Force dark theme
	ThemeLight ThemeMode = "light" // Force light theme
)

// Keys
const (
	KeyFontFamily    = "font_family"
	KeyFontSize      = "font_size"
	KeyTheme         = "theme"
	KeyRefreshRate   = "update_refresh_rate"
	KeyMaxBlockCount = "maximum_block_count"
	KeyLineWrap      = "line_wrap"
	KeyHistoryLimit  = "history_limit"
	KeyHistoryFile   = "history_file"
	KeyFlushDelay    = "flush_delay"
	KeyWindowColumns = "window_columns"
	KeyWindowRows    = "window_rows"
	KeyDebug         = "debug"
	KeyLogCategories = "log_categories"
	KeyQuitShortcut  = "quit_shortcut"
)

// GetDefaultFont returns the best monospace font for the current platform.
// Includes cross-platform fallbacks so config files can be shared between OS.
func GetDefaultFont() string {
	switch runtime.GOOS {
	case "darwin":
		return "Menlo, JetBrains Mono, SF Mono, Cascadia Mono, Consolas, Monaco, Courier New"
	case "windows":
		return "Cascadia Mono, Consolas, JetBrains Mono, Menlo, SF Mono, Monaco, Courier New"
	default:
		return "JetBrains Mono, DejaVu Sans Mono, Liberation Mono, Menlo, Consolas, monospace"
	}
}

// GetDefaultQuitShortcut returns the platform-appropriate default quit shortcut.
func GetDefaultQuitShortcut() string {
	if runtime.GOOS == "darwin" {
		return "Cmd+Q"
	}
	return "Alt+F4"
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pawconsole")
}

// GetConfigPath returns the full path to the config file.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Config wraps a viper instance holding the console settings.
type Config struct {
	v    *viper.Viper
	path string
}

// New returns a config holding only defaults and environment overrides.
func New() *Config {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Config{v: v}
}

// Load reads path, or the default config path when path is empty. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	c := New()
	if path == "" {
		path = GetConfigPath()
	}
	c.path = path
	if path == "" {
		return c, nil
	}
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyFontFamily, GetDefaultFont())
	v.SetDefault(KeyFontSize, DefaultFontSize)
	v.SetDefault(KeyTheme, string(ThemeAuto))
	v.SetDefault(KeyRefreshRate, DefaultRefreshRate)
	v.SetDefault(KeyMaxBlockCount, 0)
	v.SetDefault(KeyLineWrap, "WidgetWidth")
	v.SetDefault(KeyHistoryLimit, DefaultHistoryLimit)
	v.SetDefault(KeyHistoryFile, filepath.Join(GetConfigDir(), "history.yaml"))
	v.SetDefault(KeyFlushDelay, DefaultFlushDelay)
	v.SetDefault(KeyWindowColumns, DefaultWindowColumns)
	v.SetDefault(KeyWindowRows, DefaultWindowRows)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyLogCategories, "")
	v.SetDefault(KeyQuitShortcut, GetDefaultQuitShortcut())
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// Viper exposes the underlying viper instance.
func (c *Config) Viper() *viper.Viper { return c.v }

// BindFlag binds a command-line flag to a config key. Flag names use
// dashes where keys use underscores.
func (c *Config) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("binding %s: no such flag", key)
	}
	return c.v.BindPFlag(key, flag)
}

// BindFlags binds every flag in fs whose name matches a key.
func (c *Config) BindFlags(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if c.v.IsSet(key) || isKnownKey(key) {
			if err := c.v.BindPFlag(key, f); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func isKnownKey(key string) bool {
	switch key {
	case KeyFontFamily, KeyFontSize, KeyTheme, KeyRefreshRate, KeyMaxBlockCount, KeyLineWrap,
		KeyHistoryLimit, KeyHistoryFile, KeyFlushDelay, KeyWindowColumns, KeyWindowRows,
		KeyDebug, KeyLogCategories, KeyQuitShortcut:
		return true
	}
	return false
}

// Set overrides a value for this run.
func (c *Config) Set(key string, value any) { c.v.Set(key, value) }

// Save writes the current settings to the config path.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config: no path to save to")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return c.v.WriteConfigAs(c.path)
}
