package guiloop

import (
	"context"
	"sync/atomic"
)

// Gate is a single-use rendezvous between the GUI thread and one waiting
// goroutine. The GUI side deposits exactly one token with Signal; the
// waiter consumes it with Wait.
type Gate struct {
	ch    chan error
	fired atomic.Bool
}

// NewGate returns an unsignalled gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan error, 1)}
}

// Signal deposits the completion token. Signalling twice is a programming
// error and panics. Signal never blocks.
func (g *Gate) Signal(err error) {
	if !g.fired.CompareAndSwap(false, true) {
		panic("guiloop: gate signalled twice")
	}
	g.ch <- err
}

// Signalled reports whether the token has been deposited.
func (g *Gate) Signalled() bool {
	return g.fired.Load()
}

// Wait blocks until the token arrives, ctx is done, or stop is closed.
// A token that is already present wins over ctx and stop.
func (g *Gate) Wait(ctx context.Context, stop <-chan struct{}) error {
	return g.wait(ctx, stop, nil)
}

func (g *Gate) wait(ctx context.Context, stop, closed <-chan struct{}) error {
	select {
	case err := <-g.ch:
		return err
	default:
	}

	select {
	case err := <-g.ch:
		return err
	case <-ctx.Done():
		return g.late(ctx.Err())
	case <-stop:
		return g.late(ErrAborted)
	case <-closed:
		return g.late(ErrLoopClosed)
	}
}

func (g *Gate) late(abort error) error {
	select {
	case err := <-g.ch:
		return err
	default:
		return abort
	}
}
