// Package consoleapp wires a GUI toolkit front-end to the console host and
// the Lua runner. Every pawconsole binary is a cobra command built here
// around one Frontend.
package consoleapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/conlog"
	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/guiloop"
	"github.com/phroun/pawconsole/pkg/luahost"
)

// DefaultTitle is the main window title.
const DefaultTitle = "PawConsole"

// workerGrace is how long shutdown waits for interpreters to notice that
// their consoles are gone.
const workerGrace = time.Second

// Frontend is a GUI toolkit. It posts work to the toolkit's main thread and
// creates console surfaces there.
type Frontend interface {
	guiloop.Driver
	console.SurfaceFactory

	// Init creates the application and the main console surface. It runs
	// on the main goroutine before Run.
	Init(cfg *config.ConfigHelper, title string) (console.Surface, error)
	// Run runs the toolkit's event loop until Quit or ctx ends.
	Run(ctx context.Context) error
	// Quit makes Run return. GUI thread only.
	Quit()
}

// ClipboardFrontend is implemented by front-ends with their own clipboard.
type ClipboardFrontend interface {
	Clipboard() luahost.Clipboard
}

// ViewFrontend is implemented by front-ends that need to know the main
// view, to forward input and close events. Attach runs on the GUI thread
// once the view's session is open.
type ViewFrontend interface {
	Attach(host *console.Host, v *console.View)
}

// Params describe one run.
type Params struct {
	Config   *config.Config
	Frontend Frontend
	Title    string
	// Script is a Lua file run in the main console before its prompt.
	Script string
	// Logger overrides the logger built from the config.
	Logger *conlog.Logger
}

// App is a running console application.
type App struct {
	Helper   *config.ConfigHelper
	Log      *conlog.Logger
	Frontend Frontend
	Loop     *guiloop.Loop
	Host     *console.Host
	Runner   *luahost.Runner

	title  string
	script string
}

// NewLogger builds the logger described by the config.
func NewLogger(h *config.ConfigHelper) *conlog.Logger {
	log := conlog.New(h.GetDebug())
	if cats := h.GetLogCategories(); cats != "" {
		log.SetEnabled(true)
		log.EnableCategories(cats)
	}
	return log
}

// New prepares an application. Nothing runs until Run.
func New(p Params) (*App, error) {
	if p.Frontend == nil {
		return nil, errors.New("consoleapp: no front-end")
	}
	cfg := p.Config
	if cfg == nil {
		cfg = config.New()
	}
	h := config.NewConfigHelper(cfg)
	log := p.Logger
	if log == nil {
		log = NewLogger(h)
	}
	if p.Title == "" {
		p.Title = DefaultTitle
	}

	loop := guiloop.New(p.Frontend, guiloop.WithLogger(log))
	host := console.NewHost(loop, p.Frontend, console.Options{
		Logger:        log,
		RefreshRate:   h.GetRefreshRate(),
		MaxBlockCount: h.GetMaxBlockCount(),
		HistoryLimit:  h.GetHistoryLimit(),
		FlushDelay:    h.GetFlushDelay(),
	})

	prefs, err := config.LoadPreferences(config.GetPrefsPath())
	if err != nil {
		log.Warn("preferences unavailable: %v", err)
		prefs = nil
	}
	opts := luahost.Options{
		Prefs: prefs,
		Quit:  p.Frontend.Quit,
		Title: p.Title,
	}
	if cf, ok := p.Frontend.(ClipboardFrontend); ok {
		opts.Clipboard = cf.Clipboard()
	}

	return &App{
		Helper:   h,
		Log:      log,
		Frontend: p.Frontend,
		Loop:     loop,
		Host:     host,
		Runner:   luahost.NewRunner(host, opts),
		title:    p.Title,
		script:   p.Script,
	}, nil
}

// Run shows the main console and blocks in the toolkit's event loop. The
// application quits when the main console's interpreter ends.
func (a *App) Run(ctx context.Context) error {
	surface, err := a.Frontend.Init(a.Helper, a.title)
	if err != nil {
		return fmt.Errorf("starting %s: %w", a.title, err)
	}

	go func() {
		if err := a.startMain(ctx, surface); err != nil {
			a.Log.Error("main console: %v", err)
			a.quit()
		}
	}()

	runErr := a.Frontend.Run(ctx)
	a.Log.DebugCat(conlog.CatApp, "event loop ended: %v", runErr)
	a.shutdown()
	return runErr
}

func (a *App) startMain(ctx context.Context, surface console.Surface) error {
	v, err := a.Host.AddView(ctx, surface)
	if err != nil {
		return err
	}
	if err := a.Host.SetProperty(ctx, v, "lineWrapMode", a.Helper.GetLineWrap()); err != nil {
		a.Log.Warn("line wrap %q: %v", a.Helper.GetLineWrap(), err)
	}

	path := a.Helper.GetHistoryFile()
	limit := a.Helper.GetHistoryLimit()
	if path != "" {
		history, err := console.LoadHistory(path)
		if err != nil {
			a.Log.Warn("%v", err)
		}
		a.Host.Dispatch(v, func(_ context.Context, v *console.View) { v.SetHistory(history) })
	}

	s, err := a.Host.OpenSession(ctx, console.SessionRequest{Title: a.title})
	if err != nil {
		return err
	}
	if vf, ok := a.Frontend.(ViewFrontend); ok {
		a.Loop.Submit(func(context.Context) { vf.Attach(a.Host, v) })
	}
	if path != "" {
		// Close hooks run on the GUI thread, where the history may be read.
		s.OnClose(func() {
			if err := console.SaveHistory(path, v.History(), limit); err != nil {
				a.Log.Warn("%v", err)
			}
		})
	}

	done := a.Runner.Start(ctx, s, a.script)
	go func() {
		<-done
		a.Log.DebugCat(conlog.CatApp, "main console ended")
		a.quit()
	}()
	return nil
}

func (a *App) quit() {
	if err := a.Loop.Submit(func(context.Context) { a.Frontend.Quit() }); err != nil {
		a.Log.DebugCat(conlog.CatApp, "quit: %v", err)
	}
}

// shutdown destroys the remaining consoles and gives their interpreters a
// moment to end.
func (a *App) shutdown() {
	a.Host.Close(context.Background())
	done := make(chan struct{})
	go func() {
		a.Runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(workerGrace):
		a.Log.Warn("interpreters still running at exit")
	}
}
