package luahost

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/phroun/pawconsole/pkg/conlog"
	"github.com/phroun/pawconsole/pkg/console"
)

// Console functions fail with false (or nil) and a message; the message is
// "no console available" when the calling worker has no view.
func (i *Interp) installGlue() {
	for name, fn := range map[string]lua.LGFunction{
		"window_title":           i.windowTitle,
		"win_window_pos":         i.winWindowPos,
		"win_has_menu":           i.winHasMenu,
		"win_insert_menu":        i.winInsertMenu,
		"win_insert_menu_item":   i.winInsertMenuItem,
		"tty_clear":              i.ttyClear,
		"tty_size":               i.ttySize,
		"rl_add_history":         i.rlAddHistory,
		"rl_history":             i.rlHistory,
		"rl_history_search":      i.rlHistorySearch,
		"interrupt":              i.interrupt,
		"console_settings":       i.consoleSettings,
		"console_setting":        i.consoleSetting,
		"get_open_file_name":     i.getOpenFileName,
		"get_save_file_name":     i.getSaveFileName,
		"win_message_box":        i.winMessageBox,
		"quit_console":           i.quitConsole,
		"copy":                   i.copy,
		"paste":                  i.paste,
		"win_html_write":         i.winHTMLWrite,
		"win_open_console":       i.winOpenConsole,
		"win_preference_groups":  i.winPreferenceGroups,
		"win_preference_keys":    i.winPreferenceKeys,
		"win_current_preference": i.winCurrentPreference,
		"win_set_preference":     i.winSetPreference,
	} {
		i.L.SetGlobal(name, i.L.NewFunction(fn))
	}
}

func fail(L *lua.LState, err error) int {
	L.Push(lua.LFalse)
	L.Push(lua.LString(err.Error()))
	return 2
}

func none(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

// sync runs fn on the GUI thread against v and waits.
func (i *Interp) sync(v *console.View, fn func(v *console.View)) error {
	return i.host.DispatchSync(i.ctx, v, func(_ context.Context, v *console.View) { fn(v) })
}

// async runs fn on the GUI thread against v without waiting.
func (i *Interp) async(v *console.View, fn func(v *console.View)) error {
	return i.host.Dispatch(v, func(_ context.Context, v *console.View) { fn(v) })
}

func (i *Interp) windowTitle(L *lua.LState) int {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return none(L, err)
	}
	title, set := L.Get(1).(lua.LString)
	var old string
	err = i.sync(v, func(v *console.View) {
		old = v.Title()
		if set {
			v.SetTitle(string(title))
		}
	})
	if err != nil {
		return none(L, err)
	}
	L.Push(lua.LString(old))
	return 1
}

type windowPos struct {
	size, position []int
	show           *bool
	activate       bool
}

func (i *Interp) winWindowPos(L *lua.LState) int {
	opts := L.CheckTable(1)
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	ws, ok := v.Surface().(console.WindowSurface)
	if !ok {
		return fail(L, console.ErrUnsupported)
	}

	var pos windowPos
	var optErr error
	opts.ForEach(func(k, val lua.LValue) {
		if optErr != nil {
			return
		}
		switch name := k.String(); name {
		case "size", "position":
			xy, ok := intPair(val)
			if !ok {
				optErr = fmt.Errorf("%s: expected {a, b}", name)
				return
			}
			if name == "size" {
				pos.size = xy
			} else {
				pos.position = xy
			}
		case "show":
			show := lua.LVAsBool(val)
			pos.show = &show
		case "activate":
			pos.activate = lua.LVAsBool(val)
		case "zorder":
		default:
			optErr = fmt.Errorf("unknown option %s", name)
		}
	})
	if optErr != nil {
		return fail(L, optErr)
	}

	var winErr error
	err = i.sync(v, func(*console.View) {
		if pos.size != nil {
			if winErr = ws.Resize(pos.size[0], pos.size[1]); winErr != nil {
				return
			}
		}
		if pos.position != nil {
			if winErr = ws.Move(pos.position[0], pos.position[1]); winErr != nil {
				return
			}
		}
		if pos.show != nil {
			ws.SetVisible(*pos.show)
		}
		if pos.activate {
			ws.Activate()
		}
	})
	if err = errors.Join(err, winErr); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func intPair(lv lua.LValue) ([]int, bool) {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, false
	}
	a, aok := t.RawGetInt(1).(lua.LNumber)
	b, bok := t.RawGetInt(2).(lua.LNumber)
	if !aok || !bok {
		return nil, false
	}
	return []int{int(a), int(b)}, true
}

func (i *Interp) winHasMenu(L *lua.LState) int {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	has := false
	err = i.sync(v, func(v *console.View) {
		ms, ok := v.Surface().(console.MenuSurface)
		has = ok && ms.HasMenu()
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LBool(has))
	return 1
}

func (i *Interp) menuSurface() (*console.View, console.MenuSurface, error) {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return nil, nil, err
	}
	ms, ok := v.Surface().(console.MenuSurface)
	if !ok {
		return nil, nil, fmt.Errorf("menus: %w", console.ErrUnsupported)
	}
	return v, ms, nil
}

func (i *Interp) winInsertMenu(L *lua.LState) int {
	label := L.CheckString(1)
	before := L.OptString(2, "")
	v, ms, err := i.menuSurface()
	if err != nil {
		return fail(L, err)
	}
	err = i.async(v, func(*console.View) {
		if err := ms.InsertMenu(label, before); err != nil {
			i.log.WarnCat(conlog.CatInterp, "failed win_insert_menu %q %q: %v", label, before, err)
		}
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// winInsertMenuItem adds a menu item whose goal, a line of Lua, is typed
// into the console when the item is chosen.
func (i *Interp) winInsertMenuItem(L *lua.LState) int {
	pulldown := L.CheckString(1)
	label := L.CheckString(2)
	before := L.OptString(3, "")
	goal := L.OptString(4, "")
	v, ms, err := i.menuSurface()
	if err != nil {
		return fail(L, err)
	}
	var action func()
	if goal != "" {
		action = func() { v.SubmitLine(goal) }
	}
	err = i.async(v, func(*console.View) {
		if err := ms.InsertMenuItem(pulldown, label, before, action); err != nil {
			i.log.WarnCat(conlog.CatInterp, "failed win_insert_menu_item %q %q: %v", pulldown, label, err)
		}
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (i *Interp) ttyClear(L *lua.LState) int {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	i.session.Flush()
	if err := i.sync(v, (*console.View).Clear); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (i *Interp) ttySize(L *lua.LState) int {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return none(L, err)
	}
	var rows, cols int
	if err := i.sync(v, func(v *console.View) { rows, cols = v.Size() }); err != nil {
		return none(L, err)
	}
	L.Push(lua.LNumber(rows))
	L.Push(lua.LNumber(cols))
	return 2
}

func (i *Interp) rlAddHistory(L *lua.LState) int {
	line := L.CheckString(1)
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	if err := i.sync(v, func(v *console.View) { v.AddHistory(line) }); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (i *Interp) rlHistory(L *lua.LState) int {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return none(L, err)
	}
	var lines []string
	if err := i.sync(v, func(v *console.View) { lines = v.History() }); err != nil {
		return none(L, err)
	}
	L.Push(stringsToTable(L, lines))
	return 1
}

func (i *Interp) rlHistorySearch(L *lua.LState) int {
	pattern := L.CheckString(1)
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return none(L, err)
	}
	var lines []string
	if err := i.sync(v, func(v *console.View) { lines = v.SearchHistory(pattern) }); err != nil {
		return none(L, err)
	}
	L.Push(stringsToTable(L, lines))
	return 1
}

func (i *Interp) interrupt(L *lua.LState) int {
	if err := i.host.Interrupt(i.ctx); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// consoleSettings applies a table of properties, e.g.
// console_settings{updateRefreshRate = 50, lineWrapMode = "NoWrap"}.
func (i *Interp) consoleSettings(L *lua.LState) int {
	opts := L.CheckTable(1)
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	values := make(map[string]any)
	opts.ForEach(func(k, val lua.LValue) {
		values[k.String()] = toGo(val)
	})
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := i.host.SetProperty(i.ctx, v, name, values[name]); err != nil {
			return fail(L, err)
		}
	}
	L.Push(lua.LTrue)
	return 1
}

func (i *Interp) consoleSetting(L *lua.LState) int {
	name := L.CheckString(1)
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return none(L, err)
	}
	value, err := i.host.GetProperty(i.ctx, v, name)
	if err != nil {
		return none(L, err)
	}
	L.Push(toLua(L, value))
	return 1
}

func (i *Interp) getOpenFileName(L *lua.LState) int {
	return i.fileDialog(L, i.opts.Dialogs.OpenFile)
}

func (i *Interp) getSaveFileName(L *lua.LState) int {
	return i.fileDialog(L, i.opts.Dialogs.SaveFile)
}

// fileDialog runs a modal file dialog on the GUI thread:
// get_open_file_name(title, start_dir, pattern).
func (i *Interp) fileDialog(L *lua.LState, show func(title, startDir, pattern string) (string, error)) int {
	title := L.OptString(1, i.opts.Title)
	startDir := L.OptString(2, "")
	pattern := L.OptString(3, "")
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return none(L, err)
	}
	var (
		path    string
		showErr error
	)
	if err := i.sync(v, func(*console.View) { path, showErr = show(title, startDir, pattern) }); err != nil {
		return none(L, err)
	}
	if showErr != nil {
		return none(L, showErr)
	}
	L.Push(lua.LString(path))
	return 1
}

// winMessageBox shows a modal message: win_message_box(text, {title = "..."}).
func (i *Interp) winMessageBox(L *lua.LState) int {
	text := L.CheckString(1)
	title := i.opts.Title
	if opts, ok := L.Get(2).(*lua.LTable); ok {
		if t, ok := opts.RawGetString("title").(lua.LString); ok {
			title = string(t)
		}
	}
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	var (
		accepted bool
		showErr  error
	)
	if err := i.sync(v, func(*console.View) { accepted, showErr = i.opts.Dialogs.Message(title, text) }); err != nil {
		return fail(L, err)
	}
	if showErr != nil {
		return fail(L, showErr)
	}
	L.Push(lua.LBool(accepted))
	return 1
}

func (i *Interp) quitConsole(L *lua.LState) int {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	if i.opts.Quit == nil {
		return fail(L, fmt.Errorf("quit: %w", console.ErrUnsupported))
	}
	if err := i.async(v, func(*console.View) { i.opts.Quit() }); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// copy puts text, or the view's selection, on the clipboard.
func (i *Interp) copy(L *lua.LState) int {
	text, explicit := L.Get(1).(lua.LString)
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	err = i.async(v, func(v *console.View) {
		s := string(text)
		if !explicit {
			sel, ok := v.Surface().(console.SelectionSurface)
			if !ok {
				return
			}
			s = sel.SelectedText()
		}
		if err := i.opts.Clipboard.WriteText(s); err != nil {
			i.log.WarnCat(conlog.CatInterp, "copy: %v", err)
		}
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// paste inserts the clipboard text at the view's cursor.
func (i *Interp) paste(L *lua.LState) int {
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	err = i.async(v, func(v *console.View) {
		text, err := i.opts.Clipboard.ReadText()
		if err != nil {
			i.log.WarnCat(conlog.CatInterp, "paste: %v", err)
			return
		}
		v.InsertText(text)
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (i *Interp) winHTMLWrite(L *lua.LState) int {
	text := htmlText(L.CheckString(1))
	v, err := i.host.Lookup(i.ctx)
	if err != nil {
		return fail(L, err)
	}
	i.session.Flush()
	if err := i.sync(v, func(v *console.View) { v.AppendText(text) }); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// winOpenConsole opens a new console window with its own interpreter.
func (i *Interp) winOpenConsole(L *lua.LState) int {
	title := L.OptString(1, i.opts.Title)
	if _, err := i.host.Lookup(i.ctx); err != nil {
		return fail(L, err)
	}
	if i.runner == nil {
		return fail(L, fmt.Errorf("win_open_console: %w", console.ErrUnsupported))
	}
	if _, err := i.runner.Open(i.ctx, title); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// The preference functions work without a console.

func (i *Interp) winPreferenceGroups(L *lua.LState) int {
	L.Push(stringsToTable(L, i.opts.Prefs.Groups()))
	return 1
}

func (i *Interp) winPreferenceKeys(L *lua.LState) int {
	keys, err := i.opts.Prefs.Keys(L.CheckString(1))
	if err != nil {
		return none(L, err)
	}
	L.Push(stringsToTable(L, keys))
	return 1
}

func (i *Interp) winCurrentPreference(L *lua.LState) int {
	value, err := i.opts.Prefs.Get(L.CheckString(1), L.CheckString(2))
	if err != nil {
		return none(L, err)
	}
	L.Push(toLua(L, value))
	return 1
}

func (i *Interp) winSetPreference(L *lua.LState) int {
	group := L.CheckString(1)
	key := L.CheckString(2)
	if err := i.opts.Prefs.Set(group, key, toGo(L.CheckAny(3))); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// patternExtensions pulls the extensions out of a filter such as
// "Lua files (*.lua *.txt)" or "*.lua;*.txt".
func patternExtensions(pattern string) []string {
	var exts []string
	for _, field := range strings.FieldsFunc(pattern, func(r rune) bool {
		return r == ' ' || r == ';' || r == ',' || r == '(' || r == ')'
	}) {
		if ext, ok := strings.CutPrefix(field, "*."); ok && ext != "" && ext != "*" {
			exts = append(exts, ext)
		}
	}
	return exts
}
