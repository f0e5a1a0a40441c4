// Package luahost runs gopher-lua interpreters against console sessions.
//
// Each session gets its own Interp, driven only from the session's worker
// goroutine. The interpreter's print and io functions are bound to the
// session streams, and a set of global functions lets scripts drive the
// console they run in: window title and geometry, menus, history, dialogs,
// clipboard and preferences.
//
// gopher-lua's LState is not goroutine-safe. Everything that touches an
// Interp, including the glue functions, runs on the worker goroutine; only
// work on the console itself is handed to the GUI thread.
package luahost

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/phroun/pawconsole/pkg/conlog"
	"github.com/phroun/pawconsole/pkg/console"
)

// ErrInterpClosed is returned when using an interpreter after Close.
var ErrInterpClosed = errors.New("interpreter closed")

// Interp is one Lua state bound to a console session.
type Interp struct {
	L *lua.LState

	session *console.Session
	host    *console.Host
	runner  *Runner
	opts    Options
	log     *conlog.Logger

	// ctx carries the session owner so that glue lookups find the view.
	ctx context.Context
	in  *bufio.Reader

	closed bool
}

// NewInterp creates an interpreter for session. ctx bounds its lifetime.
func NewInterp(ctx context.Context, host *console.Host, session *console.Session, opts Options) *Interp {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	i := &Interp{
		L:       L,
		session: session,
		host:    host,
		opts:    opts.withDefaults(),
		log:     host.Logger(),
		ctx:     session.Context(ctx),
		in:      bufio.NewReader(session.In),
	}
	i.installIO()
	i.installGlue()
	return i
}

// openSafeLibraries opens the libraries that cannot touch the file system
// or the process.
func openSafeLibraries(L *lua.LState) {
	for _, pair := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(pair.fn))
		L.Push(lua.LString(pair.name))
		L.Call(1, 0)
	}
	// The base library can load files.
	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Session returns the session the interpreter is bound to.
func (i *Interp) Session() *console.Session { return i.session }

// Context returns the interpreter context, carrying the session owner.
func (i *Interp) Context() context.Context { return i.ctx }

// Exec runs a chunk of Lua source.
func (i *Interp) Exec(source string) error {
	_, err := i.Eval(source)
	return err
}

// ExecFile runs the Lua file at path.
func (i *Interp) ExecFile(path string) error {
	return i.run(func() error {
		return i.L.DoFile(path)
	})
}

// Eval runs a chunk of Lua source and returns the values it returns.
func (i *Interp) Eval(source string) ([]lua.LValue, error) {
	var results []lua.LValue
	err := i.run(func() error {
		fn, err := i.L.LoadString(source)
		if err != nil {
			return err
		}
		top := i.L.GetTop()
		i.L.Push(fn)
		if err := i.L.PCall(0, lua.MultRet, nil); err != nil {
			return err
		}
		n := i.L.GetTop() - top
		for k := 1; k <= n; k++ {
			results = append(results, i.L.Get(top+k))
		}
		i.L.Pop(n)
		return nil
	})
	return results, err
}

// run executes fn under a context that an interrupt of the view cancels.
func (i *Interp) run(fn func() error) error {
	if i.closed {
		return ErrInterpClosed
	}
	ctx, cancel := context.WithCancel(i.ctx)
	defer cancel()
	remove := i.session.OnInterrupt(cancel)
	defer remove()

	i.L.SetContext(ctx)
	defer i.L.RemoveContext()

	err := doWithRecovery(fn)
	if err != nil && ctx.Err() != nil && i.ctx.Err() == nil {
		i.log.DebugCat(conlog.CatInterp, "session %s: chunk interrupted", i.session.Owner)
		return console.ErrInterrupted
	}
	return err
}

// doWithRecovery executes fn and recovers from any panics.
func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Incomplete reports whether err is a syntax error caused by the chunk
// ending too early, so that more input could complete it.
func Incomplete(err error) bool {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) || apiErr.Type != lua.ApiErrorSyntax {
		return false
	}
	return strings.Contains(apiErr.Error(), "at EOF")
}

// Close releases the Lua state. It must run on the worker goroutine.
func (i *Interp) Close() {
	if i.closed {
		return
	}
	i.closed = true
	i.L.Close()
}
