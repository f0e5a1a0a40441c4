// Package consoleqt is the Qt front-end built on miqt. Each console is a
// main window with a menu bar, a read-only plain text view and a line edit.
package consoleqt

import (
	"context"
	"os"

	"github.com/mappu/miqt/qt"
	"github.com/mappu/miqt/qt/mainthread"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/luahost"
)

// Frontend drives consoles on the Qt main thread.
type Frontend struct {
	app  *qt.QApplication
	cfg  *config.ConfigHelper
	font *qt.QFont
	main *Surface
}

// New creates a front-end. The QApplication is created by Init.
func New() *Frontend {
	return &Frontend{}
}

// Post runs fn on the Qt main thread.
func (f *Frontend) Post(fn func()) {
	mainthread.Start(fn)
}

// Init creates the QApplication, applies the theme and font, and creates
// the main window. Closing the main window quits.
func (f *Frontend) Init(cfg *config.ConfigHelper, title string) (console.Surface, error) {
	f.app = qt.NewQApplication(os.Args)
	f.cfg = cfg
	if sheet := styleSheet(cfg.GetTheme()); sheet != "" {
		f.app.SetStyleSheet(sheet)
	}
	f.font = qt.NewQFont6(cfg.GetPrimaryFont(), cfg.GetFontSize())
	f.font.SetFixedPitch(true)

	f.main = f.newSurface(title, f.Quit)
	return f.main, nil
}

// NewSurface opens a console window for a new session.
func (f *Frontend) NewSurface(title string, onClose func()) (console.Surface, error) {
	s := f.newSurface(title, func() {
		// onClose waits on the GUI loop; never from an event handler.
		if onClose != nil {
			go onClose()
		}
	})
	s.window.Show()
	return s, nil
}

// Run shows the main window and runs the Qt event loop.
func (f *Frontend) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { mainthread.Start(qt.QCoreApplication_Quit) })
	defer stop()
	f.main.window.Show()
	f.main.in.SetFocus()
	qt.QApplication_Exec()
	return nil
}

// Quit ends Run.
func (f *Frontend) Quit() {
	qt.QCoreApplication_Quit()
}

// Clipboard returns the Qt clipboard. Its methods must run on the main
// thread, which the glue does through the GUI loop.
func (f *Frontend) Clipboard() luahost.Clipboard {
	return clipboard{}
}

type clipboard struct{}

func (clipboard) ReadText() (string, error) {
	return qt.QGuiApplication_Clipboard().Text(), nil
}

func (clipboard) WriteText(text string) error {
	qt.QGuiApplication_Clipboard().SetText(text)
	return nil
}
