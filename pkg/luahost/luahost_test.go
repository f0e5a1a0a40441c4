package luahost_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/console/consoletest"
	"github.com/phroun/pawconsole/pkg/luahost"
)

type fakeDialogs struct {
	mu     sync.Mutex
	calls  []string
	path   string
	cancel bool
}

func (d *fakeDialogs) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDialogs) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDialogs) OpenFile(title, startDir, pattern string) (string, error) {
	d.record("open " + title + " " + startDir + " " + pattern)
	if d.cancel {
		return "", luahost.ErrCancelled
	}
	return d.path, nil
}

func (d *fakeDialogs) SaveFile(title, startDir, pattern string) (string, error) {
	d.record("save " + title + " " + startDir + " " + pattern)
	return d.path, nil
}

func (d *fakeDialogs) Message(title, text string) (bool, error) {
	d.record("message " + title + " " + text)
	return true, nil
}

type fakeClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *fakeClipboard) ReadText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

func (c *fakeClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

type fixture struct {
	h       *consoletest.Harness
	s       *console.Session
	interp  *luahost.Interp
	dialogs *fakeDialogs
	clip    *fakeClipboard
}

func newFixture(t *testing.T, opts luahost.Options) *fixture {
	t.Helper()
	f := &fixture{
		h:       consoletest.New(t, console.Options{}),
		dialogs: &fakeDialogs{path: "/tmp/chosen.lua"},
		clip:    &fakeClipboard{},
	}
	if opts.Dialogs == nil {
		opts.Dialogs = f.dialogs
	}
	if opts.Clipboard == nil {
		opts.Clipboard = f.clip
	}
	f.s = f.h.Open(t, "lua")
	f.interp = luahost.NewInterp(context.Background(), f.h.Host, f.s, opts)
	t.Cleanup(f.interp.Close)
	return f
}

// eval runs src and returns its results converted to strings.
func (f *fixture) eval(t *testing.T, src string) []string {
	t.Helper()
	results, err := f.interp.Eval(src)
	require.NoError(t, err)
	out := make([]string, len(results))
	for i, v := range results {
		out[i] = v.String()
	}
	return out
}

func (f *fixture) text(t *testing.T) string {
	t.Helper()
	require.NoError(t, f.s.Flush())
	return f.h.Text(t, f.s.View)
}

// waitFor polls until the surface of v shows text ending in suffix.
func waitFor(t *testing.T, v *console.View, suffix string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.HasSuffix(consoletest.SurfaceOf(v).Text(), suffix)
	}, 2*time.Second, 5*time.Millisecond, "waiting for %q", suffix)
}

func TestPrintAndWrite(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	require.NoError(t, f.interp.Exec(`print("a", 1, true, nil)`))
	require.NoError(t, f.interp.Exec(`io.write("b", 2, "\n")`))
	require.NoError(t, f.interp.Exec(`io.stderr:write("oops\n")`))
	require.Equal(t, "a\t1\ttrue\tnil\nb2\noops\n", f.text(t))
}

func TestReadFromConsole(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	f.h.Type(t, f.s.View, "world")
	f.h.Type(t, f.s.View, "42")
	require.NoError(t, f.interp.Exec(`local name = io.read(); n = io.read("*n"); io.write("hi ", name, "\n")`))
	require.Equal(t, []string{"42"}, f.eval(t, "return n"))
	require.Equal(t, "world\n42\nhi world\n", f.text(t))
}

func TestReadAtEndOfInput(t *testing.T) {
	f := newFixture(t, luahost.Options{})
	require.NoError(t, f.s.In.Close())
	require.Equal(t, []string{"nil"}, f.eval(t, "return io.read()"))
}

func TestGlueWithoutConsole(t *testing.T) {
	f := newFixture(t, luahost.Options{})
	require.NoError(t, f.h.Host.DestroyView(context.Background(), f.s.View))

	for _, src := range []string{
		`return window_title("x")`,
		`return tty_size()`,
		`return tty_clear()`,
		`return rl_history()`,
		`return win_has_menu()`,
		`return console_setting("readOnly")`,
		`return paste()`,
	} {
		got := f.eval(t, src)
		require.Len(t, got, 2, src)
		require.Contains(t, []string{"false", "nil"}, got[0], src)
		require.Equal(t, "no console available", got[1], src)
	}
}

func TestWindowGlue(t *testing.T) {
	f := newFixture(t, luahost.Options{})
	surface := f.h.MainSurface

	require.Equal(t, []string{"lua"}, f.eval(t, `return window_title("renamed")`))
	require.Equal(t, "renamed", surface.Title())

	require.Equal(t, []string{"true"},
		f.eval(t, `return win_window_pos{size = {80, 24}, position = {10, 20}, show = true, activate = true}`))
	x, y, w, h, visible, active := surface.Geometry()
	require.Equal(t, []int{10, 20, 80, 24}, []int{x, y, w, h})
	require.True(t, visible)
	require.True(t, active)

	got := f.eval(t, `return win_window_pos{depth = 3}`)
	require.Equal(t, []string{"false", "unknown option depth"}, got)

	surface.SetSize(40, 132)
	require.Equal(t, []string{"40", "132"}, f.eval(t, "return tty_size()"))
	require.Equal(t, []string{"true"}, f.eval(t, "return win_has_menu()"))
}

func TestMenuGlue(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	require.Equal(t, []string{"true"}, f.eval(t, `return win_insert_menu("Tools", "")`))
	require.Equal(t, []string{"true"}, f.eval(t, `return win_insert_menu("File", "Tools")`))
	require.Equal(t, []string{"true"}, f.eval(t, `return win_insert_menu_item("Tools", "Greet", "", "print('hi')")`))
	f.h.Settle(t)

	menus := f.h.MainSurface.Menus()
	require.Len(t, menus, 2)
	require.Equal(t, "File", menus[0].Label)
	require.Equal(t, "Tools", menus[1].Label)
	require.Len(t, menus[1].Items, 1)

	// Choosing the item types its goal into the console.
	f.h.Do(t, func(context.Context) { menus[1].Items[0].Action() })
	require.Equal(t, []string{"print('hi')"}, f.eval(t, "return io.read()"))
}

func TestHistoryGlue(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	f.eval(t, `rl_add_history("print(1)")`)
	f.eval(t, `rl_add_history("")`)
	f.eval(t, `rl_add_history("x = 2")`)
	require.Equal(t, []string{"2", "print(1)"}, f.eval(t, `local h = rl_history(); return #h, h[1]`))
	require.Equal(t, []string{"print(1)"}, f.eval(t, `return rl_history_search("prt")[1]`))
}

func TestConsoleSettingsGlue(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	require.Equal(t, []string{"true"},
		f.eval(t, `return console_settings{updateRefreshRate = 5, lineWrapMode = "NoWrap", readOnly = true}`))
	require.Equal(t, []string{"NoWrap"}, f.eval(t, `return console_setting("lineWrapMode")`))
	require.Equal(t, []string{"5"}, f.eval(t, `return console_setting("updateRefreshRate")`))
	require.True(t, f.h.MainSurface.Settings().ReadOnly)

	require.Equal(t, []string{"nil", "property colour: not found"}, f.eval(t, `return console_setting("colour")`))
	require.Equal(t, []string{"false", "property updateRefreshRate: type mismatch"},
		f.eval(t, `return console_settings{updateRefreshRate = "fast"}`))
}

func TestDialogGlue(t *testing.T) {
	f := newFixture(t, luahost.Options{Title: "paw"})

	require.Equal(t, []string{"/tmp/chosen.lua"}, f.eval(t, `return get_open_file_name("Open", "/tmp", "*.lua")`))
	require.Equal(t, []string{"/tmp/chosen.lua"}, f.eval(t, `return get_save_file_name()`))
	require.Equal(t, []string{"true"}, f.eval(t, `return win_message_box("hello", {title = "Note"})`))
	require.Equal(t, []string{"true"}, f.eval(t, `return win_message_box("plain")`))

	f.dialogs.cancel = true
	require.Equal(t, []string{"nil", "cancelled"}, f.eval(t, `return get_open_file_name("Open")`))

	require.Equal(t, []string{
		"open Open /tmp *.lua",
		"save paw  ",
		"message Note hello",
		"message paw plain",
		"open Open  ",
	}, f.dialogs.Calls())
}

func TestClipboardGlue(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	f.eval(t, `copy("abc")`)
	f.h.Settle(t)
	got, _ := f.clip.ReadText()
	require.Equal(t, "abc", got)

	f.h.MainSurface.Select("selected")
	f.eval(t, `copy()`)
	f.h.Settle(t)
	got, _ = f.clip.ReadText()
	require.Equal(t, "selected", got)

	f.clip.WriteText("pasted")
	f.eval(t, `io.write("x: "); io.flush(); paste()`)
	f.h.Settle(t)
	require.Equal(t, "x: pasted", f.text(t))
}

func TestHTMLWrite(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	f.eval(t, `io.write("before ")`)
	require.Equal(t, []string{"true"},
		f.eval(t, `return win_html_write("<p>Hello <b>world</b> &amp; all</p><ul><li>one</li><li>two</li></ul>")`))
	require.Equal(t, "before Hello world & all\n* one\n* two\n", f.text(t))
}

func TestPreferencesGlue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	prefs, err := config.LoadPreferences(path)
	require.NoError(t, err)
	f := newFixture(t, luahost.Options{Prefs: prefs})

	require.Equal(t, []string{"true"}, f.eval(t, `return win_set_preference("editor", "tab_width", 4)`))
	f.eval(t, `win_set_preference("console", "bell", false)`)
	require.Equal(t, []string{"2", "console", "editor"}, f.eval(t, `local g = win_preference_groups(); return #g, g[1], g[2]`))
	require.Equal(t, []string{"tab_width"}, f.eval(t, `return win_preference_keys("editor")[1]`))
	require.Equal(t, []string{"4"}, f.eval(t, `return win_current_preference("editor", "tab_width")`))

	got := f.eval(t, `return win_current_preference("editor", "missing")`)
	require.Equal(t, "nil", got[0])

	reloaded, err := config.LoadPreferences(path)
	require.NoError(t, err)
	v, err := reloaded.Get("editor", "tab_width")
	require.NoError(t, err)
	require.EqualValues(t, 4, v)
}

func TestQuitConsole(t *testing.T) {
	quit := make(chan struct{})
	f := newFixture(t, luahost.Options{Quit: func() { close(quit) }})

	require.Equal(t, []string{"true"}, f.eval(t, "return quit_console()"))
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("quit was not called")
	}
}

func TestInterruptStopsChunk(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	done := make(chan error, 1)
	go func() { done <- f.interp.Exec("while true do end") }()
	for {
		f.s.View.Interrupt()
		select {
		case err := <-done:
			require.ErrorIs(t, err, console.ErrInterrupted)
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPanicsAndErrorsAreReturned(t *testing.T) {
	f := newFixture(t, luahost.Options{})

	err := f.interp.Exec(`error("boom")`)
	require.ErrorContains(t, err, "boom")

	_, err = f.interp.Eval("for i = 1, 2 do")
	require.True(t, luahost.Incomplete(err))
	_, err = f.interp.Eval("x = = 1")
	require.Error(t, err)
	require.False(t, luahost.Incomplete(err))

	f.interp.Close()
	require.ErrorIs(t, f.interp.Exec("x = 1"), luahost.ErrInterpClosed)
}

func TestSandbox(t *testing.T) {
	f := newFixture(t, luahost.Options{})
	require.Equal(t, []string{"nil", "nil", "nil", "table"},
		f.eval(t, "return os, dofile, require, type(string)"))
}

func TestRunnerREPL(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	r := luahost.NewRunner(h.Host, luahost.Options{Dialogs: &fakeDialogs{}, Clipboard: &fakeClipboard{}})
	s := h.Open(t, "repl")
	done := r.Start(context.Background(), s, "")

	waitFor(t, s.View, "> ")
	h.Type(t, s.View, "1 + 2")
	waitFor(t, s.View, "> 1 + 2\n3\n> ")

	h.Type(t, s.View, "for i = 1, 2 do")
	waitFor(t, s.View, "do\n>> ")
	h.Type(t, s.View, "print(i)")
	waitFor(t, s.View, "print(i)\n>> ")
	h.Type(t, s.View, "end")
	waitFor(t, s.View, "end\n1\n2\n> ")

	h.Type(t, s.View, "error('boom')")
	waitFor(t, s.View, "boom\n> ")

	s.View.Interrupt()
	waitFor(t, s.View, "^C\n> ")

	var hist []string
	h.Do(t, func(context.Context) { hist = s.View.History() })
	require.Equal(t, []string{"1 + 2", "for i = 1, 2 do", "print(i)", "end", "error('boom')"}, hist)

	require.NoError(t, h.Host.DestroyView(context.Background(), s.View))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not end when its view was destroyed")
	}
	r.Wait()
}

func TestRunnerScriptAndOpen(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "init.lua")
	require.NoError(t, os.WriteFile(script, []byte(`print("from script") win_open_console("second")`), 0o600))

	h := consoletest.New(t, console.Options{})
	r := luahost.NewRunner(h.Host, luahost.Options{Dialogs: &fakeDialogs{}, Clipboard: &fakeClipboard{}})
	s := h.Open(t, "main")
	r.Start(context.Background(), s, script)

	waitFor(t, s.View, "from script\n> ")
	require.Eventually(t, func() bool { return len(h.Surfaces()) == 1 }, 2*time.Second, 5*time.Millisecond)
	second := h.Surfaces()[0]
	require.Equal(t, "second", second.Title())
	require.Eventually(t, func() bool { return second.Text() == "> " }, 2*time.Second, 5*time.Millisecond)

	// Closing the window ends its worker; the main console keeps going.
	h.Do(t, func(context.Context) { second.Close() })
	require.Equal(t, 1, h.Host.Registry().Len())
	h.Type(t, s.View, "2 * 21")
	waitFor(t, s.View, "42\n> ")
}
