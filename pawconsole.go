// Package pawconsole hosts Lua scripts in console windows. Each script
// thread owns a console view; output, input and window operations are
// routed to the view through the GUI thread.
//
// This package re-exports the main types from pkg/ and runs scripts
// headless for embedding and tests:
//
//	err := pawconsole.Run(ctx, "hello.lua", os.Stdin, os.Stdout)
//
// The binaries under cmd/ add the fyne, GTK and Qt front-ends.
package pawconsole

import (
	"context"
	"io"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/conlog"
	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/consoleapp"
	"github.com/phroun/pawconsole/pkg/consoleterm"
	"github.com/phroun/pawconsole/pkg/guiloop"
	"github.com/phroun/pawconsole/pkg/luahost"
)

// Host owns the consoles of an application.
type Host = console.Host

// View is one console.
type View = console.View

// Session is the stream triple of a view.
type Session = console.Session

// Surface is a toolkit window a view renders into.
type Surface = console.Surface

// Loop runs work on the GUI thread.
type Loop = guiloop.Loop

// Config is the viper backed configuration.
type Config = config.Config

// Interp is a Lua interpreter bound to a console.
type Interp = luahost.Interp

// Frontend is a GUI toolkit.
type Frontend = consoleapp.Frontend

// Params describe one run of an application.
type Params = consoleapp.Params

// Errors.
var (
	ErrNoView       = console.ErrNoView
	ErrUnsupported  = console.ErrUnsupported
	ErrStreamClosed = console.ErrStreamClosed
	ErrInterrupted  = console.ErrInterrupted
)

// NewConfig returns a configuration with defaults only.
func NewConfig() *Config { return config.New() }

// LoadConfig reads a config file; an empty path uses the default location.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// New builds an application around a front-end.
func New(p Params) (*consoleapp.App, error) { return consoleapp.New(p) }

// Run runs a script in a console on in and out, then a prompt until in
// ends. An empty script runs only the prompt. History is not persisted.
func Run(ctx context.Context, script string, in io.Reader, out io.Writer) error {
	cfg := config.New()
	cfg.Set(config.KeyHistoryFile, "")
	app, err := consoleapp.New(consoleapp.Params{
		Config:   cfg,
		Frontend: consoleterm.NewWithIO(in, out),
		Script:   script,
		Logger:   conlog.Discard(),
	})
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
