// Package consoleterm is the headless front-end: consoles live in the
// terminal pawconsole was started from. The calling goroutine of Run acts
// as the GUI thread.
//
// Only the main console takes input. Consoles opened later print their
// output with a "[title] " prefix.
package consoleterm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/phroun/pawconsole/pkg/config"
	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/guiloop"
)

const ctrlC = 0x03

// Frontend drives consoles on a terminal or a pair of pipes.
type Frontend struct {
	*guiloop.QueueDriver

	in  io.Reader
	out io.Writer
	fd  int
	tty bool

	term  *term.Terminal
	lines *bufio.Reader

	mu       sync.Mutex
	main     *Surface
	host     *console.Host
	view     *console.View
	attached chan struct{}
	cols     int
	rows     int
}

// New creates a front-end on stdin and stdout.
func New() *Frontend {
	return newFrontend(os.Stdin, os.Stdout, int(os.Stdin.Fd()), term.IsTerminal(int(os.Stdin.Fd())))
}

// NewWithIO creates a front-end reading lines from in and writing plain
// text to out.
func NewWithIO(in io.Reader, out io.Writer) *Frontend {
	return newFrontend(in, out, -1, false)
}

func newFrontend(in io.Reader, out io.Writer, fd int, tty bool) *Frontend {
	f := &Frontend{
		QueueDriver: guiloop.NewQueueDriver(64),
		in:          in,
		out:         out,
		fd:          fd,
		tty:         tty,
		attached:    make(chan struct{}),
	}
	if tty {
		f.term = term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{&interruptReader{r: in, f: f}, out}, "")
	} else {
		f.lines = bufio.NewReader(in)
	}
	return f
}

// Init creates the main console surface.
func (f *Frontend) Init(cfg *config.ConfigHelper, title string) (console.Surface, error) {
	f.cols, f.rows = cfg.GetWindowSize()
	f.main = &Surface{f: f, title: title, echo: f.tty}
	f.main.SetTitle(title)
	return f.main, nil
}

// NewSurface creates an output-only console sharing the terminal.
func (f *Frontend) NewSurface(title string, onClose func()) (console.Surface, error) {
	return &Surface{f: f, title: title, prefix: "[" + title + "] ", lineStart: true}, nil
}

// Attach routes terminal input to v.
func (f *Frontend) Attach(host *console.Host, v *console.View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.view != nil {
		return
	}
	f.host, f.view = host, v
	close(f.attached)
}

// Run processes console work until Quit or ctx ends. On a terminal the
// input is switched to raw mode for line editing.
func (f *Frontend) Run(ctx context.Context) error {
	if f.tty {
		state, err := term.MakeRaw(f.fd)
		if err != nil {
			return fmt.Errorf("terminal raw mode: %w", err)
		}
		defer term.Restore(f.fd, state)
		if w, h, err := term.GetSize(f.fd); err == nil {
			f.term.SetSize(w, h)
		}
	}
	go f.readInput(ctx)

	err := f.QueueDriver.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Quit ends Run once output still queued has been shown.
func (f *Frontend) Quit() {
	f.Drain()
	f.Stop()
}

func (f *Frontend) readInput(ctx context.Context) {
	select {
	case <-f.attached:
	case <-ctx.Done():
		return
	}
	for {
		line, err := f.readLine()
		if err != nil {
			f.host.Dispatch(f.view, func(_ context.Context, v *console.View) { v.EndInput() })
			return
		}
		f.main.expectEcho(line)
		f.host.Dispatch(f.view, func(_ context.Context, v *console.View) { v.SubmitLine(line) })
	}
}

func (f *Frontend) readLine() (string, error) {
	if f.term != nil {
		return f.term.ReadLine()
	}
	line, err := f.lines.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// interrupt is Ctrl-C on a raw terminal.
func (f *Frontend) interrupt() {
	f.mu.Lock()
	host, v := f.host, f.view
	f.mu.Unlock()
	if v == nil {
		return
	}
	host.Dispatch(v, func(_ context.Context, v *console.View) { v.Interrupt() })
}

func (f *Frontend) write(s string) {
	if s == "" {
		return
	}
	if f.term != nil {
		f.term.Write([]byte(s))
		return
	}
	io.WriteString(f.out, s)
}

func (f *Frontend) size() (rows, cols int) {
	if f.tty {
		if w, h, err := term.GetSize(f.fd); err == nil {
			return h, w
		}
	}
	return f.rows, f.cols
}

// interruptReader takes Ctrl-C out of the raw input stream.
type interruptReader struct {
	r io.Reader
	f *Frontend
}

func (r *interruptReader) Read(p []byte) (int, error) {
	for {
		n, err := r.r.Read(p)
		kept := p[:0]
		for _, b := range p[:n] {
			if b == ctrlC {
				r.f.interrupt()
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) > 0 || err != nil {
			return len(kept), err
		}
	}
}
