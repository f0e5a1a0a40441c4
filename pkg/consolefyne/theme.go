package consolefyne

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/phroun/pawconsole/pkg/config"
)

// consoleTheme is the default theme with the configured variant and text
// size.
type consoleTheme struct {
	base     fyne.Theme
	variant  fyne.ThemeVariant
	forced   bool
	textSize float32
}

func newConsoleTheme(mode config.ThemeMode, fontSize int) *consoleTheme {
	t := &consoleTheme{base: theme.DefaultTheme(), textSize: float32(fontSize)}
	switch mode {
	case config.ThemeDark:
		t.variant, t.forced = theme.VariantDark, true
	case config.ThemeLight:
		t.variant, t.forced = theme.VariantLight, true
	}
	return t
}

func (t *consoleTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	if t.forced {
		variant = t.variant
	}
	return t.base.Color(name, variant)
}

func (t *consoleTheme) Font(style fyne.TextStyle) fyne.Resource { return t.base.Font(style) }

func (t *consoleTheme) Icon(name fyne.ThemeIconName) fyne.Resource { return t.base.Icon(name) }

func (t *consoleTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText && t.textSize > 0 {
		return t.textSize
	}
	return t.base.Size(name)
}
