package luahost

import (
	"errors"

	"github.com/atotto/clipboard"
	"github.com/sqweek/dialog"

	"github.com/phroun/pawconsole/pkg/config"
)

// ErrCancelled is returned by Dialogs when the user dismisses a dialog.
var ErrCancelled = errors.New("cancelled")

// Dialogs shows modal dialogs. Methods are called on the GUI thread.
type Dialogs interface {
	OpenFile(title, startDir, pattern string) (string, error)
	SaveFile(title, startDir, pattern string) (string, error)
	// Message shows text and reports whether the user accepted it.
	Message(title, text string) (bool, error)
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// Options configures the glue available to scripts.
type Options struct {
	Dialogs   Dialogs
	Clipboard Clipboard
	// Prefs backs the win_*_preference functions. Nil keeps them in memory.
	Prefs *config.Preferences
	// Quit ends the application. It runs on the GUI thread.
	Quit func()
	// Title is used for message boxes without a title option.
	Title string
}

func (o Options) withDefaults() Options {
	if o.Dialogs == nil {
		o.Dialogs = NativeDialogs{}
	}
	if o.Clipboard == nil {
		o.Clipboard = SystemClipboard{}
	}
	if o.Prefs == nil {
		o.Prefs, _ = config.LoadPreferences("")
	}
	if o.Title == "" {
		o.Title = "pawconsole"
	}
	return o
}

// NativeDialogs shows the platform's own dialogs.
type NativeDialogs struct{}

func (NativeDialogs) OpenFile(title, startDir, pattern string) (string, error) {
	return fileDialog(title, startDir, pattern).Load()
}

func (NativeDialogs) SaveFile(title, startDir, pattern string) (string, error) {
	return fileDialog(title, startDir, pattern).Save()
}

func (NativeDialogs) Message(title, text string) (bool, error) {
	dialog.Message("%s", text).Title(title).Info()
	return true, nil
}

func fileDialog(title, startDir, pattern string) *nativeFile {
	b := dialog.File().Title(title)
	if startDir != "" {
		b = b.SetStartDir(startDir)
	}
	if exts := patternExtensions(pattern); len(exts) > 0 {
		b = b.Filter(pattern, exts...)
	}
	return &nativeFile{b: b}
}

type nativeFile struct {
	b *dialog.FileBuilder
}

func (f *nativeFile) Load() (string, error) { return cancelled(f.b.Load()) }
func (f *nativeFile) Save() (string, error) { return cancelled(f.b.Save()) }

func cancelled(path string, err error) (string, error) {
	if errors.Is(err, dialog.ErrCancelled) {
		return "", ErrCancelled
	}
	return path, err
}

// SystemClipboard uses the clipboard of the desktop session.
type SystemClipboard struct{}

func (SystemClipboard) ReadText() (string, error)   { return clipboard.ReadAll() }
func (SystemClipboard) WriteText(text string) error { return clipboard.WriteAll(text) }
