package config

import (
	"strings"
	"time"
)

// ConfigHelper provides typed access to the console settings with
// fallbacks for missing or nonsensical values.
type ConfigHelper struct {
	Config *Config
}

// NewConfigHelper creates a new ConfigHelper with the given config.
func NewConfigHelper(config *Config) *ConfigHelper {
	return &ConfigHelper{Config: config}
}

// GetFontFamily returns the configured font family.
func (h *ConfigHelper) GetFontFamily() string {
	if h.Config != nil {
		if family := h.Config.v.GetString(KeyFontFamily); family != "" {
			return family
		}
	}
	return GetDefaultFont()
}

// GetPrimaryFont returns the first family of the configured font list.
func (h *ConfigHelper) GetPrimaryFont() string {
	family, _, _ := strings.Cut(h.GetFontFamily(), ",")
	return strings.TrimSpace(family)
}

// GetFontSize returns the configured font size.
func (h *ConfigHelper) GetFontSize() int {
	if h.Config != nil {
		if size := h.Config.v.GetInt(KeyFontSize); size > 0 {
			return size
		}
	}
	return DefaultFontSize
}

// GetTheme returns the configured GUI theme mode.
// Valid values: "auto", "dark", "light"
func (h *ConfigHelper) GetTheme() ThemeMode {
	if h.Config != nil {
		switch h.Config.v.GetString(KeyTheme) {
		case "dark":
			return ThemeDark
		case "light":
			return ThemeLight
		}
	}
	return ThemeAuto
}

// GetRefreshRate returns how many appends may pass before a forced render.
func (h *ConfigHelper) GetRefreshRate() int {
	if h.Config != nil {
		if rate := h.Config.v.GetInt(KeyRefreshRate); rate > 0 {
			return rate
		}
	}
	return DefaultRefreshRate
}

// GetMaxBlockCount returns the line cap of console buffers; 0 is unlimited.
func (h *ConfigHelper) GetMaxBlockCount() uint64 {
	if h.Config != nil {
		if n := h.Config.v.GetInt64(KeyMaxBlockCount); n > 0 {
			return uint64(n)
		}
	}
	return 0
}

// GetLineWrap returns the configured line wrap mode name.
// Valid values: "NoWrap", "WidgetWidth"
func (h *ConfigHelper) GetLineWrap() string {
	if h.Config != nil && strings.EqualFold(h.Config.v.GetString(KeyLineWrap), "NoWrap") {
		return "NoWrap"
	}
	return "WidgetWidth"
}

// GetHistoryLimit returns how many input lines are remembered.
func (h *ConfigHelper) GetHistoryLimit() int {
	if h.Config != nil {
		if n := h.Config.v.GetInt(KeyHistoryLimit); n > 0 {
			return n
		}
	}
	return DefaultHistoryLimit
}

// GetHistoryFile returns where the main console's history is kept. An
// empty string disables persistence.
func (h *ConfigHelper) GetHistoryFile() string {
	if h.Config == nil {
		return ""
	}
	return h.Config.v.GetString(KeyHistoryFile)
}

// GetFlushDelay returns how long a partial output line may wait.
func (h *ConfigHelper) GetFlushDelay() time.Duration {
	if h.Config != nil {
		if d := h.Config.v.GetDuration(KeyFlushDelay); d > 0 {
			return d
		}
	}
	return DefaultFlushDelay
}

// GetWindowSize returns the initial window size in character cells.
func (h *ConfigHelper) GetWindowSize() (cols, rows int) {
	cols, rows = DefaultWindowColumns, DefaultWindowRows
	if h.Config != nil {
		if c := h.Config.v.GetInt(KeyWindowColumns); c > 0 {
			cols = c
		}
		if r := h.Config.v.GetInt(KeyWindowRows); r > 0 {
			rows = r
		}
	}
	return cols, rows
}

// GetDebug reports whether debug logging is on.
func (h *ConfigHelper) GetDebug() bool {
	return h.Config != nil && h.Config.v.GetBool(KeyDebug)
}

// GetLogCategories returns the comma separated list of debug categories.
func (h *ConfigHelper) GetLogCategories() string {
	if h.Config == nil {
		return ""
	}
	return h.Config.v.GetString(KeyLogCategories)
}

// GetQuitShortcut returns the configured quit shortcut.
func (h *ConfigHelper) GetQuitShortcut() string {
	if h.Config != nil && h.Config.v.IsSet(KeyQuitShortcut) {
		return h.Config.v.GetString(KeyQuitShortcut)
	}
	return GetDefaultQuitShortcut()
}
