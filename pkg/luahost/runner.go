package luahost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/phroun/pawconsole/pkg/conlog"
	"github.com/phroun/pawconsole/pkg/console"
)

// Prompts
const (
	Prompt             = "> "
	ContinuationPrompt = ">> "
)

// Runner starts one worker goroutine per session. A worker runs an
// optional script and then a read-eval-print loop until its input ends.
type Runner struct {
	host *console.Host
	opts Options
	log  *conlog.Logger
	wg   sync.WaitGroup
}

// NewRunner creates a runner for sessions of host.
func NewRunner(host *console.Host, opts Options) *Runner {
	return &Runner{
		host: host,
		opts: opts.withDefaults(),
		log:  host.Logger(),
	}
}

// Start runs a worker for session. script, when not empty, is a Lua file
// run before the prompt appears. The returned channel is closed when the
// worker ends.
func (r *Runner) Start(ctx context.Context, session *console.Session, script string) <-chan struct{} {
	done := make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)
		r.work(ctx, session, script)
	}()
	return done
}

// Open opens a new console titled title and starts a worker for it.
func (r *Runner) Open(ctx context.Context, title string) (*console.Session, error) {
	s, err := r.host.OpenSession(ctx, console.SessionRequest{Title: title})
	if err != nil {
		return nil, fmt.Errorf("opening console %q: %w", title, err)
	}
	r.Start(ctx, s, "")
	return s, nil
}

// Wait blocks until every worker has ended.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context, s *console.Session, script string) {
	i := NewInterp(ctx, r.host, s, r.opts)
	i.runner = r
	defer i.Close()
	defer s.Close()

	r.log.DebugCat(conlog.CatInterp, "session %s: worker started", s.Owner)
	if script != "" {
		if err := i.ExecFile(script); err != nil {
			r.report(i, nil, err)
		}
	}
	r.repl(i)
	r.log.DebugCat(conlog.CatInterp, "session %s: worker ended", s.Owner)
}

func (r *Runner) repl(i *Interp) {
	s := i.session
	pending := ""
	for {
		prompt := Prompt
		if pending != "" {
			prompt = ContinuationPrompt
		}
		if _, err := s.Out.WriteString(prompt); err != nil {
			return
		}

		line, err := i.in.ReadString('\n')
		if errors.Is(err, console.ErrInterrupted) {
			s.Out.WriteString("^C\n")
			pending = ""
			continue
		}
		if err != nil && line == "" {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			r.host.Dispatch(s.View, func(_ context.Context, v *console.View) { v.AddHistory(line) })
		}

		src := line
		if pending != "" {
			src = pending + "\n" + line
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		if r.eval(i, src) {
			pending = src
		} else {
			pending = ""
		}
	}
}

// eval runs src, printing what an expression evaluates to. It reports
// whether src is an incomplete chunk that needs more lines.
func (r *Runner) eval(i *Interp, src string) (more bool) {
	if _, err := i.L.LoadString("return " + src); err == nil {
		results, err := i.Eval("return " + src)
		r.report(i, results, err)
		return false
	}
	results, err := i.Eval(src)
	if Incomplete(err) {
		return true
	}
	r.report(i, results, err)
	return false
}

func (r *Runner) report(i *Interp, results []lua.LValue, err error) {
	s := i.session
	if errors.Is(err, console.ErrInterrupted) {
		s.In.ResetInterrupt()
		s.Err.WriteString("interrupted\n")
		return
	}
	if err != nil {
		s.Err.WriteString(errorText(err) + "\n")
		return
	}
	if len(results) == 0 {
		return
	}
	parts := make([]string, len(results))
	err = doWithRecovery(func() error {
		for k, v := range results {
			parts[k] = i.L.ToStringMeta(v).String()
		}
		return nil
	})
	if err != nil {
		s.Err.WriteString(err.Error() + "\n")
		return
	}
	s.Out.WriteString(strings.Join(parts, "\t") + "\n")
}

// errorText is the message of err without the Lua stack traceback.
func errorText(err error) string {
	msg := err.Error()
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		msg = apiErr.Object.String()
	}
	return strings.TrimRight(msg, "\n")
}
