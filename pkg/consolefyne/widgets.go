package consolefyne

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// outputEntry is a multi-line entry the user can select from and scroll
// but not edit.
type outputEntry struct {
	widget.Entry
}

func newOutputEntry() *outputEntry {
	e := &outputEntry{}
	e.MultiLine = true
	e.Wrapping = fyne.TextWrapWord
	e.TextStyle = fyne.TextStyle{Monospace: true}
	e.ExtendBaseWidget(e)
	return e
}

func (e *outputEntry) TypedRune(rune) {}

func (e *outputEntry) TypedKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyUp, fyne.KeyDown, fyne.KeyLeft, fyne.KeyRight,
		fyne.KeyHome, fyne.KeyEnd, fyne.KeyPageUp, fyne.KeyPageDown:
		e.Entry.TypedKey(key)
	}
}

func (e *outputEntry) TypedShortcut(s fyne.Shortcut) {
	switch s.(type) {
	case *fyne.ShortcutCopy, *fyne.ShortcutSelectAll:
		e.Entry.TypedShortcut(s)
	}
}

func (e *outputEntry) scrollToEnd() {
	e.CursorRow = strings.Count(e.Text, "\n")
	e.CursorColumn = 0
	e.Refresh()
}

// inputEntry is the single input line.
type inputEntry struct {
	widget.Entry
	onKey       func(*fyne.KeyEvent) bool
	onInterrupt func()
}

func newInputEntry() *inputEntry {
	e := &inputEntry{}
	e.TextStyle = fyne.TextStyle{Monospace: true}
	e.ExtendBaseWidget(e)
	return e
}

func (e *inputEntry) TypedKey(key *fyne.KeyEvent) {
	if e.onKey != nil && e.onKey(key) {
		return
	}
	e.Entry.TypedKey(key)
}

// TypedShortcut treats copy with nothing selected, i.e. Ctrl-C on an
// empty selection, as an interrupt.
func (e *inputEntry) TypedShortcut(s fyne.Shortcut) {
	if _, ok := s.(*fyne.ShortcutCopy); ok && e.SelectedText() == "" {
		if e.onInterrupt != nil {
			e.onInterrupt()
		}
		return
	}
	e.Entry.TypedShortcut(s)
}
