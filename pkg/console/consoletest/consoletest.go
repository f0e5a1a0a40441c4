// Package consoletest provides an in-memory Surface and a harness that runs
// a real GUI loop on a goroutine, for testing code built on the console package.
package consoletest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/guiloop"
)

// MenuItem is a recorded menu entry.
type MenuItem struct {
	Label  string
	Action func()
}

// Menu is a recorded pulldown.
type Menu struct {
	Label string
	Items []MenuItem
}

// Surface is an in-memory console.Surface. It records what it was asked
// to show and implements every optional capability.
type Surface struct {
	mu       sync.Mutex
	title    string
	rows     int
	cols     int
	text     string
	frames   []console.Frame
	settings console.Settings
	menus    []Menu
	visible  bool
	active   bool
	x, y     int
	w, h     int
	selected string
	onClose  func()
	view     *console.View
}

// NewSurface creates a 24x80 surface.
func NewSurface(title string) *Surface {
	return &Surface{title: title, rows: 24, cols: 80, visible: true}
}

func (s *Surface) Render(f console.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = f.Text
	s.frames = append(s.frames, f)
}

func (s *Surface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Surface) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// SetSize changes what Size reports.
func (s *Surface) SetSize(rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows, s.cols = rows, cols
}

// Text returns the text of the last rendered frame.
func (s *Surface) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Frames returns the frames rendered so far.
func (s *Surface) Frames() []console.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]console.Frame(nil), s.frames...)
}

func (s *Surface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.h = width, height
	return nil
}

func (s *Surface) Move(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x, s.y = x, y
	return nil
}

func (s *Surface) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
}

func (s *Surface) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
}

// Geometry returns the last position and size set through WindowSurface.
func (s *Surface) Geometry() (x, y, w, h int, visible, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y, s.w, s.h, s.visible, s.active
}

func (s *Surface) HasMenu() bool { return true }

func (s *Surface) InsertMenu(label, before string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.menus {
		if m.Label == label {
			return nil
		}
	}
	at := len(s.menus)
	for i, m := range s.menus {
		if m.Label == before {
			at = i
			break
		}
	}
	s.menus = append(s.menus[:at], append([]Menu{{Label: label}}, s.menus[at:]...)...)
	return nil
}

func (s *Surface) InsertMenuItem(pulldown, label, before string, action func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.menus {
		if s.menus[i].Label != pulldown {
			continue
		}
		items := s.menus[i].Items
		at := len(items)
		for j, it := range items {
			if it.Label == before {
				at = j
				break
			}
		}
		s.menus[i].Items = append(items[:at], append([]MenuItem{{Label: label, Action: action}}, items[at:]...)...)
		return nil
	}
	return fmt.Errorf("no pulldown %q", pulldown)
}

// Menus returns the recorded menus.
func (s *Surface) Menus() []Menu {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Menu(nil), s.menus...)
}

func (s *Surface) ApplySettings(settings console.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Settings returns the last applied settings.
func (s *Surface) Settings() console.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Surface) SelectedText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select sets what SelectedText returns.
func (s *Surface) Select(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = text
}

func (s *Surface) BindView(v *console.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// View returns the view the surface was bound to.
func (s *Surface) View() *console.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Close simulates the user closing the window. As with a toolkit's close
// callback, the handler runs on a goroutine of its own; the returned
// channel is closed once it has returned.
func (s *Surface) Close() <-chan struct{} {
	s.mu.Lock()
	fn := s.onClose
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if fn != nil {
			fn()
		}
	}()
	return done
}

// Harness runs a Host on a QueueDriver goroutine with one main view.
type Harness struct {
	Driver      *guiloop.QueueDriver
	Loop        *guiloop.Loop
	Host        *console.Host
	Main        *console.View
	MainSurface *Surface

	mu       sync.Mutex
	surfaces []*Surface
}

// New starts a harness. Everything is torn down when the test ends.
func New(t testing.TB, opts console.Options) *Harness {
	t.Helper()
	h := &Harness{Driver: guiloop.NewQueueDriver(64)}
	h.Loop = guiloop.New(h.Driver, guiloop.WithLogger(opts.Logger))
	h.Host = console.NewHost(h.Loop, console.SurfaceFactoryFunc(h.newSurface), opts)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		h.Driver.Run(ctx)
	}()
	t.Cleanup(func() {
		h.Host.Close(context.Background())
		cancel()
		<-stopped
	})

	h.MainSurface = NewSurface("main")
	v, err := h.Host.AddView(context.Background(), h.MainSurface)
	if err != nil {
		t.Fatalf("AddView failed: %v", err)
	}
	h.Main = v
	h.MainSurface.onClose = func() { h.Host.DestroyView(context.Background(), v) }
	return h
}

func (h *Harness) newSurface(title string, onClose func()) (console.Surface, error) {
	s := NewSurface(title)
	s.onClose = onClose
	h.mu.Lock()
	h.surfaces = append(h.surfaces, s)
	h.mu.Unlock()
	return s, nil
}

// Surfaces returns the surfaces created through the factory.
func (h *Harness) Surfaces() []*Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Surface(nil), h.surfaces...)
}

// SurfaceOf returns the in-memory surface behind v.
func SurfaceOf(v *console.View) *Surface {
	s, _ := v.Surface().(*Surface)
	return s
}

// Do runs fn on the GUI thread and waits for it.
func (h *Harness) Do(t testing.TB, fn func(ctx context.Context)) {
	t.Helper()
	if err := h.Loop.SubmitSync(context.Background(), fn); err != nil {
		t.Fatalf("SubmitSync failed: %v", err)
	}
}

// Settle waits until everything queued so far, including renders queued
// by those tasks, has run.
func (h *Harness) Settle(t testing.TB) {
	t.Helper()
	h.Do(t, func(context.Context) {})
	h.Do(t, func(context.Context) {})
}

// Open opens a session with a fresh owner.
func (h *Harness) Open(t testing.TB, title string) *console.Session {
	t.Helper()
	s, err := h.Host.OpenSession(context.Background(), console.SessionRequest{Title: title})
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	return s
}

// Text returns v's buffer, read on the GUI thread.
func (h *Harness) Text(t testing.TB, v *console.View) string {
	t.Helper()
	var text string
	h.Do(t, func(context.Context) { text = v.Text() })
	return text
}

// Type simulates the user entering line into v.
func (h *Harness) Type(t testing.TB, v *console.View, line string) {
	t.Helper()
	h.Do(t, func(context.Context) { v.SubmitLine(line) })
}
