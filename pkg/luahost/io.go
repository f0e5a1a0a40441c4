package luahost

import (
	"errors"
	"io"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/phroun/pawconsole/pkg/console"
)

// installIO binds print and a small io table to the session streams.
func (i *Interp) installIO() {
	L := i.L
	L.SetGlobal("print", L.NewFunction(i.luaPrint))

	stdout := i.streamObject(i.session.Out)
	stderr := i.streamObject(i.session.Err)
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"write": func(L *lua.LState) int {
			return i.writeArgs(L, i.session.Out, 1)
		},
		"read":  i.luaRead,
		"flush": i.luaFlush,
	})
	L.SetField(mod, "stdout", stdout)
	L.SetField(mod, "stderr", stderr)
	L.SetGlobal("io", mod)
}

// streamObject returns a table with a write method, for io.stdout:write(...).
func (i *Interp) streamObject(w *console.Stream) *lua.LTable {
	L := i.L
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"write": func(L *lua.LState) int {
			return i.writeArgs(L, w, 2)
		},
		"flush": func(L *lua.LState) int {
			w.Flush()
			return 0
		},
	})
}

func (i *Interp) luaPrint(L *lua.LState) int {
	var b strings.Builder
	for n := 1; n <= L.GetTop(); n++ {
		if n > 1 {
			b.WriteByte('\t')
		}
		b.WriteString(L.ToStringMeta(L.Get(n)).String())
	}
	b.WriteByte('\n')
	if _, err := i.session.Out.WriteString(b.String()); err != nil {
		L.RaiseError("print: %v", err)
	}
	return 0
}

// writeArgs writes string and number arguments from index first on.
func (i *Interp) writeArgs(L *lua.LState, w *console.Stream, first int) int {
	for n := first; n <= L.GetTop(); n++ {
		var s string
		switch v := L.Get(n).(type) {
		case lua.LString:
			s = string(v)
		case lua.LNumber:
			s = v.String()
		default:
			L.ArgError(n, "string expected, got "+v.Type().String())
		}
		if _, err := w.WriteString(s); err != nil {
			L.RaiseError("write: %v", err)
		}
	}
	return 0
}

func (i *Interp) luaFlush(L *lua.LState) int {
	if err := i.session.Flush(); err != nil {
		L.RaiseError("flush: %v", err)
	}
	return 0
}

// luaRead implements io.read with the formats "l", "L", "n" and "a",
// with or without the leading '*'.
func (i *Interp) luaRead(L *lua.LState) int {
	format := strings.TrimPrefix(L.OptString(1, "l"), "*")
	switch format {
	case "l", "L":
		line, err := i.in.ReadString('\n')
		if err != nil && !i.readDone(L, err, line) {
			return 1
		}
		if format == "l" {
			line = strings.TrimRight(line, "\r\n")
		}
		L.Push(lua.LString(line))
	case "n":
		line, err := i.in.ReadString('\n')
		if err != nil && !i.readDone(L, err, line) {
			return 1
		}
		f, perr := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if perr != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(f))
	case "a":
		var b strings.Builder
		for {
			line, err := i.in.ReadString('\n')
			b.WriteString(line)
			if err == nil {
				continue
			}
			if !errors.Is(err, io.EOF) {
				i.raiseRead(L, err)
			}
			break
		}
		L.Push(lua.LString(b.String()))
	default:
		L.ArgError(1, "invalid format")
	}
	return 1
}

// readDone handles a read error. It returns true when partial data should
// still be returned, and pushes nil otherwise.
func (i *Interp) readDone(L *lua.LState, err error, partial string) bool {
	if !errors.Is(err, io.EOF) {
		i.raiseRead(L, err)
	}
	if partial != "" {
		return true
	}
	L.Push(lua.LNil)
	return false
}

func (i *Interp) raiseRead(L *lua.LState, err error) {
	if errors.Is(err, console.ErrInterrupted) {
		L.RaiseError("interrupted")
	}
	L.RaiseError("read: %v", err)
}
