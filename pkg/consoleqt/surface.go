package consoleqt

import (
	"fmt"

	"github.com/mappu/miqt/qt"

	"github.com/phroun/pawconsole/pkg/console"
)

const separator = "--"

type pulldown struct {
	label string
	menu  *qt.QMenu
	items []*qt.QAction
}

// Surface is a console window.
type Surface struct {
	f      *Frontend
	window *qt.QMainWindow
	out    *qt.QPlainTextEdit
	in     *qt.QLineEdit
	menus  []*pulldown
	view   *console.View
	hist   console.HistoryCursor
}

func (f *Frontend) newSurface(title string, onClose func()) *Surface {
	s := &Surface{
		f:      f,
		window: qt.NewQMainWindow2(),
		out:    qt.NewQPlainTextEdit2(),
		in:     qt.NewQLineEdit2(),
	}
	s.window.SetWindowTitle(title)

	s.out.SetReadOnly(true)
	s.out.SetFont(f.font)
	s.out.SetLineWrapMode(qt.QPlainTextEdit__WidgetWidth)
	s.in.SetFont(f.font)

	central := qt.NewQWidget2()
	layout := qt.NewQVBoxLayout2()
	layout.SetContentsMargins(0, 0, 0, 0)
	layout.SetSpacing(0)
	layout.AddWidget(s.out.QWidget)
	layout.AddWidget(s.in.QWidget)
	central.SetLayout(layout.QLayout)
	s.window.SetCentralWidget(central)

	cols, rows := f.cfg.GetWindowSize()
	cw, ch := s.cellSize()
	// One extra row for the input line and one for the menu bar.
	s.window.Resize(cw*cols, ch*(rows+2))

	s.in.OnReturnPressed(s.submit)
	s.in.OnKeyPressEvent(func(super func(event *qt.QKeyEvent), event *qt.QKeyEvent) {
		if !s.keyPress(event) {
			super(event)
		}
	})
	s.window.OnCloseEvent(func(super func(event *qt.QCloseEvent), event *qt.QCloseEvent) {
		onClose()
		super(event)
	})
	return s
}

func (s *Surface) cellSize() (width, height int) {
	metrics := qt.NewQFontMetrics(s.f.font)
	return metrics.HorizontalAdvance("M"), metrics.Height()
}

func (s *Surface) BindView(v *console.View) { s.view = v }

func (s *Surface) Render(fr console.Frame) {
	switch {
	case fr.Reset || fr.Trimmed:
		s.out.SetPlainText(fr.Plain())
	case fr.Appended != "":
		s.out.MoveCursor(qt.QTextCursor__End)
		s.out.InsertPlainText(fr.PlainAppended())
	default:
		return
	}
	s.out.MoveCursor(qt.QTextCursor__End)
	s.out.EnsureCursorVisible()
}

func (s *Surface) Title() string { return s.window.WindowTitle() }

func (s *Surface) SetTitle(title string) { s.window.SetWindowTitle(title) }

func (s *Surface) Size() (rows, cols int) {
	vp := s.out.Viewport()
	w, h := vp.Width(), vp.Height()
	cw, ch := s.cellSize()
	if w <= 1 || h <= 1 || cw <= 0 || ch <= 0 {
		cols, rows = s.f.cfg.GetWindowSize()
		return rows, cols
	}
	return h / ch, w / cw
}

func (s *Surface) submit() {
	line := s.in.Text()
	s.in.Clear()
	s.hist.Reset()
	if s.view != nil {
		s.view.SubmitLine(line)
	}
}

// keyPress handles history on Up and Down, and Ctrl-C with nothing
// selected as an interrupt.
func (s *Surface) keyPress(event *qt.QKeyEvent) bool {
	if s.view == nil {
		return false
	}
	ctrl := event.Modifiers()&qt.ControlModifier != 0
	switch qt.Key(event.Key()) {
	case qt.Key_Up:
		s.setInput(s.hist.Older(s.view.History()))
		return true
	case qt.Key_Down:
		s.setInput(s.hist.Newer(s.view.History()))
		return true
	case qt.Key_C:
		if ctrl && !s.in.HasSelectedText() {
			s.view.Interrupt()
			return true
		}
	}
	return false
}

func (s *Surface) setInput(text string) {
	s.in.SetText(text)
	s.in.End(false)
}

func (s *Surface) Resize(width, height int) error {
	s.window.Resize(width, height)
	return nil
}

func (s *Surface) Move(x, y int) error {
	s.window.Move(x, y)
	return nil
}

func (s *Surface) SetVisible(visible bool) { s.window.SetVisible(visible) }

func (s *Surface) Activate() {
	s.window.Raise()
	s.window.ActivateWindow()
}

func (s *Surface) HasMenu() bool { return true }

func (s *Surface) InsertMenu(label, before string) error {
	if s.pulldown(label) >= 0 {
		return nil
	}
	bar := s.window.MenuBar()
	menu := bar.AddMenuWithTitle(label)
	p := &pulldown{label: label, menu: menu}

	at := s.pulldown(before)
	if at < 0 {
		s.menus = append(s.menus, p)
		return nil
	}
	bar.RemoveAction(menu.MenuAction())
	bar.InsertAction(s.menus[at].menu.MenuAction(), menu.MenuAction())
	s.menus = append(s.menus[:at], append([]*pulldown{p}, s.menus[at:]...)...)
	return nil
}

func (s *Surface) InsertMenuItem(pulldown, label, before string, action func()) error {
	i := s.pulldown(pulldown)
	if i < 0 {
		return fmt.Errorf("no menu %q", pulldown)
	}
	p := s.menus[i]

	var item *qt.QAction
	if label == separator {
		item = p.menu.AddSeparator()
	} else {
		item = p.menu.AddAction(label)
		if action != nil {
			item.OnTriggered(action)
		}
	}

	at := len(p.items)
	for j, it := range p.items {
		if before != "" && it.Text() == before {
			at = j
			break
		}
	}
	if at < len(p.items) {
		p.menu.RemoveAction(item)
		p.menu.InsertAction(p.items[at], item)
	}
	p.items = append(p.items[:at], append([]*qt.QAction{item}, p.items[at:]...)...)
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
		s.out.SetLineWrapMode(qt.QPlainTextEdit__NoWrap)
	} else {
		s.out.SetLineWrapMode(qt.QPlainTextEdit__WidgetWidth)
	}
	s.in.SetEnabled(!settings.ReadOnly)
}

func (s *Surface) SelectedText() string {
	return s.out.TextCursor().SelectedText()
}
