// Package consolefyne is the fyne front-end. Each console is a window with
// a read-only output pane above a one-line input.
package consolefyne

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/luahost"
)

// AppID identifies the application to fyne's preferences store.
const AppID = "com.phroun.pawconsole"

// Frontend drives consoles on the fyne event loop.
type Frontend struct {
	app  fyne.App
	cfg  *config.ConfigHelper
	main *Surface
}

// New creates a front-end; the fyne app is created by Init.
func New() *Frontend {
	return &Frontend{}
}

// NewWithApp creates a front-end on an existing app, such as fyne's test app.
func NewWithApp(a fyne.App) *Frontend {
	return &Frontend{app: a}
}

// Post runs fn on the fyne main goroutine.
func (f *Frontend) Post(fn func()) {
	fyne.Do(fn)
}

// Init creates the app and the main window. Closing the main window quits.
func (f *Frontend) Init(cfg *config.ConfigHelper, title string) (console.Surface, error) {
	if f.app == nil {
		f.app = app.NewWithID(AppID)
	}
	f.cfg = cfg
	f.app.Settings().SetTheme(newConsoleTheme(cfg.GetTheme(), cfg.GetFontSize()))
	f.main = f.newSurface(title, f.Quit)
	return f.main, nil
}

// NewSurface opens a console window for a new session.
func (f *Frontend) NewSurface(title string, onClose func()) (console.Surface, error) {
	s := f.newSurface(title, func() {
		// onClose destroys the view through the GUI loop, which must not
		// be waited on from inside a toolkit callback.
		if onClose != nil {
			go onClose()
		}
	})
	s.window.Show()
	return s, nil
}

// Run shows the main window and runs the fyne event loop.
func (f *Frontend) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { fyne.Do(f.app.Quit) })
	defer stop()
	f.main.window.Show()
	f.app.Run()
	return nil
}

// Quit ends Run.
func (f *Frontend) Quit() {
	f.app.Quit()
}

// Clipboard returns the fyne clipboard.
func (f *Frontend) Clipboard() luahost.Clipboard {
	return clipboard{f.app}
}

// clipboard is only used from the GUI thread.
type clipboard struct {
	app fyne.App
}

func (c clipboard) ReadText() (string, error) {
	return c.app.Clipboard().Content(), nil
}

func (c clipboard) WriteText(text string) error {
	c.app.Clipboard().SetContent(text)
	return nil
}
