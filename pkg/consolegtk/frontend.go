// Package consolegtk is the GTK 3 front-end built on gotk3. Each console is
// a window with a menu bar, a read-only text view and an input entry.
package consolegtk

import (
	"context"
	"fmt"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/luahost"
)

// Frontend drives consoles on the GTK main loop.
type Frontend struct {
	cfg  *config.ConfigHelper
	main *Surface
}

// New creates a front-end. GTK is initialized by Init.
func New() *Frontend {
	return &Frontend{}
}

// Post runs fn from the GTK main loop when it is idle.
func (f *Frontend) Post(fn func()) {
	glib.IdleAdd(fn)
}

// Init initializes GTK, applies the font and theme, and creates the main
// window. Closing the main window quits.
func (f *Frontend) Init(cfg *config.ConfigHelper, title string) (console.Surface, error) {
	gtk.Init(nil)
	f.cfg = cfg
	if err := applyStyle(cfg); err != nil {
		return nil, err
	}
	s, err := f.newSurface(title, f.Quit)
	if err != nil {
		return nil, err
	}
	f.main = s
	return s, nil
}

// NewSurface opens a console window for a new session.
func (f *Frontend) NewSurface(title string, onClose func()) (console.Surface, error) {
	s, err := f.newSurface(title, func() {
		// onClose waits on the GUI loop; never from a signal handler.
		if onClose != nil {
			go onClose()
		}
	})
	if err != nil {
		return nil, err
	}
	s.window.ShowAll()
	return s, nil
}

// Run shows the main window and runs gtk.Main.
func (f *Frontend) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { glib.IdleAdd(gtk.MainQuit) })
	defer stop()
	f.main.window.ShowAll()
	f.main.entry.GrabFocus()
	gtk.Main()
	return nil
}

// Quit ends Run.
func (f *Frontend) Quit() {
	gtk.MainQuit()
}

// Clipboard returns the GTK clipboard.
func (f *Frontend) Clipboard() luahost.Clipboard {
	return clipboard{}
}

type clipboard struct{}

func (clipboard) ReadText() (string, error) {
	c, err := gtk.ClipboardGet(gdk.SELECTION_CLIPBOARD)
	if err != nil {
		return "", fmt.Errorf("clipboard: %w", err)
	}
	return c.WaitForText()
}

func (clipboard) WriteText(text string) error {
	c, err := gtk.ClipboardGet(gdk.SELECTION_CLIPBOARD)
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	c.SetText(text)
	return nil
}

func applyStyle(cfg *config.ConfigHelper) error {
	if settings, err := gtk.SettingsGetDefault(); err == nil {
		switch cfg.GetTheme() {
		case config.ThemeDark:
			settings.SetProperty("gtk-application-prefer-dark-theme", true)
		case config.ThemeLight:
			settings.SetProperty("gtk-application-prefer-dark-theme", false)
		}
	}

	provider, err := gtk.CssProviderNew()
	if err != nil {
		return fmt.Errorf("css provider: %w", err)
	}
	if err := provider.LoadFromData(fontCSS(cfg.GetFontFamily(), cfg.GetFontSize())); err != nil {
		return fmt.Errorf("loading css: %w", err)
	}
	screen, err := gdk.ScreenGetDefault()
	if err != nil {
		return fmt.Errorf("default screen: %w", err)
	}
	gtk.AddProviderForScreen(screen, provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	return nil
}
