package console

import (
	"context"
	"errors"
	"sync"

	"github.com/phroun/pawconsole/pkg/conlog"
)

// Session is a console bound to one worker: the view plus its input,
// output and error streams.
type Session struct {
	Owner Owner
	Title string
	View  *View

	In  *Stream
	Out *Stream
	Err *Stream

	host *Host

	mu         sync.Mutex
	nextHook   int
	interrupts map[int]func()
	closers    []func()
}

func newSession(h *Host, v *View, owner Owner, title string) *Session {
	s := &Session{
		Owner:      owner,
		Title:      title,
		View:       v,
		host:       h,
		interrupts: make(map[int]func()),
	}
	s.In = newStream(s, Input, LineBuffered)
	s.Out = newStream(s, Output, LineBuffered)
	s.Err = newStream(s, ErrorOutput, Unbuffered)
	return s
}

// Context returns parent carrying the session's Owner, so that Host.Lookup
// from the session's worker finds its view.
func (s *Session) Context(parent context.Context) context.Context {
	return WithOwner(parent, s.Owner)
}

// Logger returns the host logger routed to the session's output streams.
func (s *Session) Logger() *conlog.Logger {
	return s.host.log.WithOutput(s.Out, s.Err)
}

// Flush pushes pending output of both output streams to the view.
func (s *Session) Flush() error {
	return errors.Join(ignoreOrphan(s.Out.Flush()), ignoreOrphan(s.Err.Flush()))
}

// flushOutputs hands pending output to the GUI thread without waiting.
func (s *Session) flushOutputs() {
	s.Out.emitPending()
	s.Err.emitPending()
}

// Close closes all three streams. The view stays open.
func (s *Session) Close() error {
	return errors.Join(s.In.Close(), s.Out.Close(), s.Err.Close())
}

// OnInterrupt registers fn to run whenever the view is interrupted. The
// returned function removes it.
func (s *Session) OnInterrupt(fn func()) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHook
	s.nextHook++
	s.interrupts[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.interrupts, id)
	}
}

// OnClose registers fn to run when the view is destroyed.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

func (s *Session) interrupt() {
	s.In.interrupt()
	s.mu.Lock()
	hooks := make([]func(), 0, len(s.interrupts))
	for _, fn := range s.interrupts {
		hooks = append(hooks, fn)
	}
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	s.host.log.DebugCat(conlog.CatSession, "session %s interrupted", s.Owner)
}

// orphan detaches the streams from a destroyed view.
func (s *Session) orphan() {
	s.In.orphan()
	s.Out.orphan()
	s.Err.orphan()
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()
	for _, fn := range closers {
		fn()
	}
	s.host.log.DebugCat(conlog.CatSession, "session %s orphaned", s.Owner)
}

func ignoreOrphan(err error) error {
	if errors.Is(err, ErrNoView) {
		return nil
	}
	return err
}
