package console

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/phroun/pawconsole/pkg/conlog"
)

// View is one console: a character buffer with a cursor, an input history
// and the Surface that shows them. Unless noted otherwise, methods must be
// called on the GUI thread (from a task or via Host.Dispatch).
type View struct {
	id      uuid.UUID
	host    *Host
	surface Surface
	created time.Time

	owner   atomic.Uint64
	alive   atomic.Bool
	done    chan struct{}
	session atomic.Pointer[Session]

	buf          []rune
	newlines     int
	cursor       int
	appended     strings.Builder
	reset        bool
	trimmed      bool
	renderQueued bool
	sinceRender  int

	history      []string
	historyLimit int

	refreshRate int
	maxBlocks   uint64
	settings    Settings
}

func newView(h *Host, surface Surface) *View {
	v := &View{
		id:           uuid.New(),
		host:         h,
		surface:      surface,
		created:      time.Now(),
		done:         make(chan struct{}),
		historyLimit: h.opts.HistoryLimit,
		refreshRate:  h.opts.RefreshRate,
		maxBlocks:    h.opts.MaxBlockCount,
		settings:     Settings{LineWrap: WidgetWidth},
	}
	v.alive.Store(true)
	return v
}

// ID returns the view's handle. Safe from any goroutine.
func (v *View) ID() uuid.UUID { return v.id }

// Owner returns the worker bound to the view, or NoOwner. Safe from any goroutine.
func (v *View) Owner() Owner { return Owner(v.owner.Load()) }

// Alive reports whether the view is still registered. Safe from any goroutine.
func (v *View) Alive() bool { return v.alive.Load() }

// Done is closed when the view is destroyed. Safe from any goroutine.
func (v *View) Done() <-chan struct{} { return v.done }

// Session returns the session bound to the view, or nil. Safe from any goroutine.
func (v *View) Session() *Session { return v.session.Load() }

// Surface returns the toolkit surface.
func (v *View) Surface() Surface { return v.surface }

// Created returns when the view was made. Safe from any goroutine.
func (v *View) Created() time.Time { return v.created }

// Title returns the surface title.
func (v *View) Title() string { return v.surface.Title() }

// SetTitle changes the surface title.
func (v *View) SetTitle(title string) { v.surface.SetTitle(title) }

// Size returns the surface size in rows and columns.
func (v *View) Size() (rows, cols int) { return v.surface.Size() }

// Text returns the buffer contents.
func (v *View) Text() string { return string(v.buf) }

// PlainText returns the buffer contents without ANSI escape sequences.
func (v *View) PlainText() string { return ansi.Strip(string(v.buf)) }

// Cursor returns the cursor position in runes.
func (v *View) Cursor() int { return v.cursor }

// SetCursor moves the cursor, clamped to the buffer.
func (v *View) SetCursor(pos int) {
	v.cursor = max(0, min(pos, len(v.buf)))
}

// Lines returns the number of lines in the buffer.
func (v *View) Lines() int {
	if len(v.buf) == 0 {
		return 0
	}
	return v.newlines + 1
}

// Settings returns the current display settings.
func (v *View) Settings() Settings { return v.settings }

// appendText adds stream output at the end of the buffer.
func (v *View) appendText(s string) {
	if s == "" || !v.Alive() {
		return
	}
	v.buf = append(v.buf, []rune(s)...)
	v.newlines += strings.Count(s, "\n")
	v.cursor = len(v.buf)
	if !v.reset {
		v.appended.WriteString(s)
	}
	v.trimBlocks()
	v.sinceRender++
	if v.refreshRate > 0 && v.sinceRender >= v.refreshRate {
		v.Refresh()
		return
	}
	v.scheduleRender()
}

// AppendText adds s at the end of the buffer the way stream output does.
func (v *View) AppendText(s string) { v.appendText(s) }

// InsertText inserts s at the cursor and leaves the cursor after it.
func (v *View) InsertText(s string) {
	if s == "" {
		return
	}
	rs := []rune(s)
	tail := append([]rune(nil), v.buf[v.cursor:]...)
	v.buf = append(append(v.buf[:v.cursor], rs...), tail...)
	v.newlines += strings.Count(s, "\n")
	v.cursor += len(rs)
	v.trimBlocks()
	v.reset = true
	v.appended.Reset()
	v.scheduleRender()
}

// Clear empties the buffer and redraws at once.
func (v *View) Clear() {
	v.buf = nil
	v.newlines = 0
	v.cursor = 0
	v.reset = true
	v.appended.Reset()
	v.Refresh()
}

// trimBlocks drops lines from the top beyond maxBlocks.
func (v *View) trimBlocks() {
	if v.maxBlocks == 0 {
		return
	}
	excess := v.newlines + 1 - int(v.maxBlocks)
	if excess <= 0 {
		return
	}
	v.newlines -= excess
	cut := 0
	for i, r := range v.buf {
		if r == '\n' {
			excess--
			if excess == 0 {
				cut = i + 1
				break
			}
		}
	}
	v.buf = append([]rune(nil), v.buf[cut:]...)
	v.cursor = max(0, v.cursor-cut)
	v.trimmed = true
}

func (v *View) scheduleRender() {
	if v.renderQueued {
		return
	}
	v.renderQueued = true
	v.host.loop.Submit(func(context.Context) {
		v.renderQueued = false
		if v.Alive() {
			v.Refresh()
		}
	})
}

// Refresh hands the pending changes to the surface now.
func (v *View) Refresh() {
	f := Frame{
		Text:     string(v.buf),
		Appended: v.appended.String(),
		Reset:    v.reset,
		Trimmed:  v.trimmed,
		Cursor:   v.cursor,
	}
	v.appended.Reset()
	v.reset = false
	v.trimmed = false
	v.sinceRender = 0
	v.surface.Render(f)
}

// SubmitLine is the user pressing Enter on line: the line is echoed into
// the buffer and handed to the session's input stream.
func (v *View) SubmitLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	v.appendText(line + "\n")
	if s := v.Session(); s != nil {
		s.In.pushLine(line)
		return
	}
	v.host.log.DebugCat(conlog.CatSession, "view %s: input %q with no session", v.id, line)
}

// Interrupt wakes a read blocked on the view's input stream with
// ErrInterrupted and runs the session's interrupt hooks. Safe from any goroutine.
func (v *View) Interrupt() {
	if s := v.Session(); s != nil {
		s.interrupt()
	}
}

// EndInput is the user ending input, as Ctrl-D does on a terminal. The
// worker reads what was already submitted, then io.EOF.
func (v *View) EndInput() {
	if s := v.Session(); s != nil {
		s.In.endInput()
	}
}

// AddHistory records an input line. Empty lines are ignored and the
// oldest entries are dropped beyond the history limit.
func (v *View) AddHistory(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	v.history = append(v.history, line)
	if v.historyLimit > 0 && len(v.history) > v.historyLimit {
		v.history = append([]string(nil), v.history[len(v.history)-v.historyLimit:]...)
	}
}

// SetHistory replaces the history, keeping the newest entries within the limit.
func (v *View) SetHistory(lines []string) {
	v.history = nil
	for _, line := range lines {
		v.AddHistory(line)
	}
}

// History returns the history, oldest first.
func (v *View) History() []string {
	return append([]string(nil), v.history...)
}

// SearchHistory returns the history entries fuzzily matching pattern, best
// match first. Ties keep the newer entry first.
func (v *View) SearchHistory(pattern string) []string {
	if pattern == "" {
		return nil
	}
	type hit struct {
		line string
		dist int
	}
	var hits []hit
	seen := make(map[string]bool)
	for i := len(v.history) - 1; i >= 0; i-- {
		line := v.history[i]
		if seen[line] {
			continue
		}
		seen[line] = true
		if d := fuzzy.RankMatchFold(pattern, line); d >= 0 {
			hits = append(hits, hit{line: line, dist: d})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.line
	}
	return out
}

func (v *View) applySettings() {
	if s, ok := v.surface.(SettingsSurface); ok {
		s.ApplySettings(v.settings)
	}
}

// destroy tears the view down. The registry entry is already gone.
func (v *View) destroy() {
	if !v.alive.CompareAndSwap(true, false) {
		return
	}
	close(v.done)
	if s := v.Session(); s != nil {
		s.orphan()
	}
}
