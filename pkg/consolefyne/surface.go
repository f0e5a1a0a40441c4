package consolefyne

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"

	"github.com/phroun/pawconsole/pkg/console"
)

// separator is the menu item label that inserts a separator.
const separator = "--"

// Surface is a console window.
type Surface struct {
	f      *Frontend
	window fyne.Window
	out    *outputEntry
	in     *inputEntry
	menus  []*fyne.Menu
	view   *console.View
	hist   console.HistoryCursor
}

func (f *Frontend) newSurface(title string, onClose func()) *Surface {
	s := &Surface{
		f:      f,
		window: f.app.NewWindow(title),
		out:    newOutputEntry(),
		in:     newInputEntry(),
	}
	s.in.OnSubmitted = s.submit
	s.in.onKey = s.historyKey
	s.in.onInterrupt = s.interrupt

	s.window.SetContent(container.NewBorder(nil, s.in, nil, nil, s.out))
	cols, rows := f.cfg.GetWindowSize()
	cell := cellSize()
	// One extra row for the input line.
	s.window.Resize(fyne.NewSize(cell.Width*float32(cols), cell.Height*float32(rows+1)))
	s.window.SetCloseIntercept(func() {
		onClose()
		s.window.Close()
	})
	s.window.Canvas().Focus(s.in)
	return s
}

func cellSize() fyne.Size {
	return fyne.MeasureText("M", theme.Size(theme.SizeNameText), fyne.TextStyle{Monospace: true})
}

func (s *Surface) BindView(v *console.View) { s.view = v }

func (s *Surface) Render(fr console.Frame) {
	switch {
	case fr.Reset || fr.Trimmed:
		s.out.SetText(fr.Plain())
	case fr.Appended != "":
		s.out.Append(fr.PlainAppended())
	default:
		return
	}
	s.out.scrollToEnd()
}

func (s *Surface) Title() string { return s.window.Title() }

func (s *Surface) SetTitle(title string) { s.window.SetTitle(title) }

func (s *Surface) Size() (rows, cols int) {
	size := s.out.Size()
	if size.Width <= 0 || size.Height <= 0 {
		cols, rows = s.f.cfg.GetWindowSize()
		return rows, cols
	}
	cell := cellSize()
	return int(size.Height / cell.Height), int(size.Width / cell.Width)
}

func (s *Surface) submit(line string) {
	s.in.SetText("")
	s.hist.Reset()
	if s.view != nil {
		s.view.SubmitLine(line)
	}
}

func (s *Surface) interrupt() {
	if s.view != nil {
		s.view.Interrupt()
	}
}

// historyKey steps through the view's history on Up and Down.
func (s *Surface) historyKey(key *fyne.KeyEvent) bool {
	if s.view == nil || (key.Name != fyne.KeyUp && key.Name != fyne.KeyDown) {
		return false
	}
	var text string
	if key.Name == fyne.KeyUp {
		text = s.hist.Older(s.view.History())
	} else {
		text = s.hist.Newer(s.view.History())
	}
	s.in.SetText(text)
	s.in.CursorColumn = len([]rune(text))
	s.in.Refresh()
	return true
}

func (s *Surface) Resize(width, height int) error {
	s.window.Resize(fyne.NewSize(float32(width), float32(height)))
	return nil
}

// Move is not possible through fyne's window API.
func (s *Surface) Move(x, y int) error {
	return fmt.Errorf("moving windows: %w", console.ErrUnsupported)
}

func (s *Surface) SetVisible(visible bool) {
	if visible {
		s.window.Show()
	} else {
		s.window.Hide()
	}
}

func (s *Surface) Activate() { s.window.RequestFocus() }

func (s *Surface) HasMenu() bool { return true }

func (s *Surface) InsertMenu(label, before string) error {
	if s.menu(label) >= 0 {
		return nil
	}
	at := s.menu(before)
	if at < 0 {
		at = len(s.menus)
	}
	s.menus = append(s.menus[:at], append([]*fyne.Menu{fyne.NewMenu(label)}, s.menus[at:]...)...)
	s.window.SetMainMenu(fyne.NewMainMenu(s.menus...))
	return nil
}

func (s *Surface) InsertMenuItem(pulldown, label, before string, action func()) error {
	i := s.menu(pulldown)
	if i < 0 {
		return fmt.Errorf("no menu %q", pulldown)
	}
	menu := s.menus[i]
	item := fyne.NewMenuItemSeparator()
	if label != separator {
		item = fyne.NewMenuItem(label, action)
	}
	at := len(menu.Items)
	for j, it := range menu.Items {
		if before != "" && it.Label == before {
			at = j
			break
		}
	}
	menu.Items = append(menu.Items[:at], append([]*fyne.MenuItem{item}, menu.Items[at:]...)...)
	s.window.SetMainMenu(fyne.NewMainMenu(s.menus...))
	return nil
}

func (s *Surface) menu(label string) int {
	for i, m := range s.menus {
		if label != "" && m.Label == label {
			return i
		}
	}
	return -1
}

func (s *Surface) ApplySettings(settings console.Settings) {
	if settings.LineWrap == console.NoWrap {
		s.out.Wrapping = fyne.TextWrapOff
	} else {
		s.out.Wrapping = fyne.TextWrapWord
	}
	s.out.Refresh()
	if settings.ReadOnly {
		s.in.Disable()
	} else {
		s.in.Enable()
	}
}

func (s *Surface) SelectedText() string { return s.out.SelectedText() }
