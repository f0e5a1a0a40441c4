package consolegtk

import (
	"fmt"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"

	"github.com/phroun/pawconsole/pkg/console"
)

const separator = "--"

type pulldown struct {
	label string
	item  *gtk.MenuItem
	menu  *gtk.Menu
	items []string
}

// Surface is a console window.
type Surface struct {
	f       *Frontend
	window  *gtk.Window
	menubar *gtk.MenuBar
	text    *gtk.TextView
	buffer  *gtk.TextBuffer
	entry   *gtk.Entry
	menus   []*pulldown
	view    *console.View
	hist    console.HistoryCursor
}

func (f *Frontend) newSurface(title string, onClose func()) (*Surface, error) {
	s := &Surface{f: f}
	var err error
	if s.window, err = gtk.WindowNew(gtk.WINDOW_TOPLEVEL); err != nil {
		return nil, err
	}
	s.window.SetTitle(title)

	box, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 0)
	if err != nil {
		return nil, err
	}
	if s.menubar, err = gtk.MenuBarNew(); err != nil {
		return nil, err
	}
	scroll, err := gtk.ScrolledWindowNew(nil, nil)
	if err != nil {
		return nil, err
	}
	scroll.SetPolicy(gtk.POLICY_AUTOMATIC, gtk.POLICY_AUTOMATIC)
	if s.text, err = gtk.TextViewNew(); err != nil {
		return nil, err
	}
	s.text.SetEditable(false)
	s.text.SetCursorVisible(false)
	s.text.SetMonospace(true)
	s.text.SetWrapMode(gtk.WRAP_CHAR)
	if s.buffer, err = s.text.GetBuffer(); err != nil {
		return nil, err
	}
	if s.entry, err = gtk.EntryNew(); err != nil {
		return nil, err
	}

	scroll.Add(s.text)
	box.PackStart(s.menubar, false, false, 0)
	box.PackStart(scroll, true, true, 0)
	box.PackStart(s.entry, false, false, 0)
	s.window.Add(box)

	cols, rows := f.cfg.GetWindowSize()
	cw, ch := cellSize(f.cfg.GetFontSize())
	s.window.SetDefaultSize(int(cw*float64(cols)), int(ch*float64(rows+2)))

	s.entry.Connect("activate", s.submit)
	s.entry.Connect("key-press-event", s.keyPress)
	s.window.Connect("delete-event", func() bool {
		onClose()
		return false
	})
	return s, nil
}

func (s *Surface) BindView(v *console.View) { s.view = v }

func (s *Surface) Render(fr console.Frame) {
	switch {
	case fr.Reset || fr.Trimmed:
		s.buffer.SetText(fr.Plain())
	case fr.Appended != "":
		s.buffer.Insert(s.buffer.GetEndIter(), fr.PlainAppended())
	default:
		return
	}
	s.buffer.PlaceCursor(s.buffer.GetEndIter())
	s.text.ScrollToMark(s.buffer.GetInsert(), 0, true, 0, 1)
}

func (s *Surface) Title() string {
	title, _ := s.window.GetTitle()
	return title
}

func (s *Surface) SetTitle(title string) { s.window.SetTitle(title) }

func (s *Surface) Size() (rows, cols int) {
	w, h := s.text.GetAllocatedWidth(), s.text.GetAllocatedHeight()
	if w <= 1 || h <= 1 {
		cols, rows = s.f.cfg.GetWindowSize()
		return rows, cols
	}
	cw, ch := cellSize(s.f.cfg.GetFontSize())
	return int(float64(h) / ch), int(float64(w) / cw)
}

func (s *Surface) submit() {
	line, err := s.entry.GetText()
	if err != nil {
		return
	}
	s.entry.SetText("")
	s.hist.Reset()
	if s.view != nil {
		s.view.SubmitLine(line)
	}
}

// keyPress handles history on Up and Down, and Ctrl-C with nothing
// selected as an interrupt.
func (s *Surface) keyPress(_ *gtk.Entry, ev *gdk.Event) bool {
	if s.view == nil {
		return false
	}
	key := gdk.EventKeyNewFromEvent(ev)
	ctrl := key.State()&uint(gdk.CONTROL_MASK) != 0
	switch key.KeyVal() {
	case gdk.KEY_Up:
		s.setInput(s.hist.Older(s.view.History()))
		return true
	case gdk.KEY_Down:
		s.setInput(s.hist.Newer(s.view.History()))
		return true
	case gdk.KEY_c, gdk.KEY_C:
		if _, _, selected := s.entry.GetSelectionBounds(); ctrl && !selected {
			s.view.Interrupt()
			return true
		}
	}
	return false
}

func (s *Surface) setInput(text string) {
	s.entry.SetText(text)
	s.entry.SetPosition(-1)
}

func (s *Surface) Resize(width, height int) error {
	s.window.Resize(width, height)
	return nil
}

func (s *Surface) Move(x, y int) error {
	s.window.Move(x, y)
	return nil
}

func (s *Surface) SetVisible(visible bool) {
	if visible {
		s.window.ShowAll()
	} else {
		s.window.Hide()
	}
}

func (s *Surface) Activate() { s.window.Present() }

func (s *Surface) HasMenu() bool { return true }

func (s *Surface) InsertMenu(label, before string) error {
	if s.pulldown(label) >= 0 {
		return nil
	}
	item, err := gtk.MenuItemNewWithLabel(label)
	if err != nil {
		return err
	}
	menu, err := gtk.MenuNew()
	if err != nil {
		return err
	}
	item.SetSubmenu(menu)
	at := s.pulldown(before)
	if at < 0 {
		at = len(s.menus)
	}
	s.menubar.Insert(item, at)
	item.ShowAll()
	p := &pulldown{label: label, item: item, menu: menu}
	s.menus = append(s.menus[:at], append([]*pulldown{p}, s.menus[at:]...)...)
	return nil
}

func (s *Surface) InsertMenuItem(pulldown, label, before string, action func()) error {
	i := s.pulldown(pulldown)
	if i < 0 {
		return fmt.Errorf("no menu %q", pulldown)
	}
	p := s.menus[i]

	var item gtk.IMenuItem
	if label == separator {
		sep, err := gtk.SeparatorMenuItemNew()
		if err != nil {
			return err
		}
		sep.Show()
		item = sep
	} else {
		mi, err := gtk.MenuItemNewWithLabel(label)
		if err != nil {
			return err
		}
		if action != nil {
			mi.Connect("activate", action)
		}
		mi.Show()
		item = mi
	}

	at := len(p.items)
	for j, l := range p.items {
		if before != "" && l == before {
			at = j
			break
		}
	}
	p.menu.Insert(item, at)
	p.items = append(p.items[:at], append([]string{label}, p.items[at:]...)...)
	return nil
}

func (s *Surface) pulldown(label string) int {
	for i, p := range s.menus {
		if label != "" && p.label == label {
			return i
		}
	}
	return -1
}

func (s *Surface) ApplySettings(settings console.Settings) {
	if settings.LineWrap == console.NoWrap {
		s.text.SetWrapMode(gtk.WRAP_NONE)
	} else {
		s.text.SetWrapMode(gtk.WRAP_CHAR)
	}
	s.entry.SetSensitive(!settings.ReadOnly)
}

func (s *Surface) SelectedText() string {
	start, end, ok := s.buffer.GetSelectionBounds()
	if !ok {
		return ""
	}
	text, err := s.buffer.GetText(start, end, false)
	if err != nil {
		return ""
	}
	return text
}
