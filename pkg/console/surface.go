package console

import (
	"github.com/charmbracelet/x/ansi"
)

// Frame is what a Surface is asked to show. Text is the whole buffer.
// Appended holds what was added at the end since the previous frame, unless
// Reset is set, in which case the surface must redraw from Text. Trimmed
// means lines were dropped from the top; Appended is still valid.
type Frame struct {
	Text     string
	Appended string
	Reset    bool
	Trimmed  bool
	Cursor   int
}

// Plain returns Text with ANSI escape sequences removed.
func (f Frame) Plain() string { return ansi.Strip(f.Text) }

// PlainAppended returns Appended with ANSI escape sequences removed.
func (f Frame) PlainAppended() string { return ansi.Strip(f.Appended) }

// Surface is the toolkit widget behind a View. Every method is called on
// the GUI thread only.
type Surface interface {
	Render(f Frame)
	Title() string
	SetTitle(title string)
	// Size returns the visible area in character rows and columns.
	Size() (rows, cols int)
}

// SurfaceFactory creates surfaces for new sessions. NewSurface runs on the
// GUI thread. onClose must be called by the surface when the user closes it.
type SurfaceFactory interface {
	NewSurface(title string, onClose func()) (Surface, error)
}

// SurfaceFactoryFunc adapts a function to SurfaceFactory.
type SurfaceFactoryFunc func(title string, onClose func()) (Surface, error)

// NewSurface calls f.
func (f SurfaceFactoryFunc) NewSurface(title string, onClose func()) (Surface, error) {
	return f(title, onClose)
}

// WindowSurface is implemented by surfaces living in a movable top-level window.
type WindowSurface interface {
	Resize(width, height int) error
	Move(x, y int) error
	SetVisible(visible bool)
	Activate()
}

// MenuSurface is implemented by surfaces with a menu bar.
type MenuSurface interface {
	HasMenu() bool
	// InsertMenu adds a pulldown labelled label before the pulldown named
	// before, or at the end when before is empty or unknown.
	InsertMenu(label, before string) error
	// InsertMenuItem adds an item to pulldown. A label of "--" is a separator.
	InsertMenuItem(pulldown, label, before string, action func()) error
}

// SettingsSurface is implemented by surfaces that honor display settings.
type SettingsSurface interface {
	ApplySettings(s Settings)
}

// SelectionSurface is implemented by surfaces that expose selected text.
type SelectionSurface interface {
	SelectedText() string
}

// ViewSurface is implemented by surfaces that take input. BindView is
// called on the GUI thread once the surface's view is registered; the
// surface hands typed lines to View.SubmitLine.
type ViewSurface interface {
	BindView(v *View)
}

// LineWrap selects how long lines are shown.
type LineWrap int

const (
	NoWrap      LineWrap = 0
	WidgetWidth LineWrap = 1
)

func (w LineWrap) String() string {
	if w == WidgetWidth {
		return "WidgetWidth"
	}
	return "NoWrap"
}

// Settings are the display settings pushed to a SettingsSurface.
type Settings struct {
	LineWrap LineWrap
	ReadOnly bool
}
