package console_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phroun/pawconsole/pkg/console"
	"github.com/phroun/pawconsole/pkg/console/consoletest"
	"github.com/phroun/pawconsole/pkg/guiloop"
)

func TestOpenSessionWithoutViews(t *testing.T) {
	loop := guiloop.New(guiloop.NewQueueDriver(0))
	defer loop.Close()
	host := console.NewHost(loop, nil, console.Options{})

	_, err := host.OpenSession(context.Background(), console.SessionRequest{Title: "x"})
	if !errors.Is(err, console.ErrNoView) {
		t.Fatalf("Expected ErrNoView, got %v", err)
	}
	if host.Registry().FindAny() != nil {
		t.Errorf("Expected empty registry")
	}
}

func TestOpenSessionReusesUnboundMainView(t *testing.T) {
	h := consoletest.New(t, console.Options{})

	first := h.Open(t, "first")
	if first.View != h.Main {
		t.Errorf("Expected first session to reuse the main view")
	}
	if got := h.MainSurface.Title(); got != "first" {
		t.Errorf("Expected main title %q, got %q", "first", got)
	}

	second := h.Open(t, "second")
	if second.View == h.Main {
		t.Fatalf("Expected second session to get its own view")
	}
	if n := len(h.Surfaces()); n != 1 {
		t.Errorf("Expected factory to create 1 surface, got %d", n)
	}
	if got := h.Host.Registry().Views(); len(got) != 2 || got[0] != h.Main {
		t.Errorf("Expected two views in creation order, got %d", len(got))
	}
	if h.MainSurface.View() != h.Main {
		t.Errorf("Expected the main surface to be bound to the main view")
	}
	if got := h.Surfaces()[0].View(); got != second.View {
		t.Errorf("Expected the new surface to be bound to its view")
	}
}

func TestLookupIsolatesOwners(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	a := h.Open(t, "a")
	b := h.Open(t, "b")

	ctxA := a.Context(context.Background())
	ctxB := b.Context(context.Background())

	if v, err := h.Host.Lookup(ctxA); err != nil || v != a.View {
		t.Errorf("Expected owner A to find view A, got %v, %v", v, err)
	}
	if v, err := h.Host.Lookup(ctxB); err != nil || v != b.View {
		t.Errorf("Expected owner B to find view B, got %v, %v", v, err)
	}
	if _, err := h.Host.Lookup(console.WithOwner(context.Background(), console.NewOwner())); !errors.Is(err, console.ErrNoView) {
		t.Errorf("Expected ErrNoView for an unbound owner, got %v", err)
	}
	if _, err := h.Host.Lookup(context.Background()); !errors.Is(err, console.ErrNoView) {
		t.Errorf("Expected ErrNoView without owner, got %v", err)
	}
	if a.View.Owner() == b.View.Owner() {
		t.Errorf("Expected distinct owners")
	}
}

func TestOpenSessionRejectsBoundOwner(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "one")

	_, err := h.Host.OpenSession(context.Background(), console.SessionRequest{Owner: s.Owner})
	if !errors.Is(err, console.ErrAlreadyBound) {
		t.Errorf("Expected ErrAlreadyBound, got %v", err)
	}
}

func TestDestroyedViewIsNotFound(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "gone")
	other := h.Open(t, "other")
	ctx := s.Context(context.Background())

	if err := h.Host.DestroyView(context.Background(), other.View); err != nil {
		t.Fatalf("DestroyView failed: %v", err)
	}
	if _, err := h.Host.Lookup(other.Context(context.Background())); !errors.Is(err, console.ErrNoView) {
		t.Errorf("Expected destroyed view to be gone, got %v", err)
	}
	if _, err := h.Host.Lookup(ctx); err != nil {
		t.Errorf("Expected untouched view to remain, got %v", err)
	}
	if h.Host.Registry().Len() != 1 {
		t.Errorf("Expected 1 view, got %d", h.Host.Registry().Len())
	}
	select {
	case <-other.View.Done():
	default:
		t.Errorf("Expected Done to be closed")
	}
}

func TestStaleDispatchIsSilent(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	s := h.Open(t, "stale")
	h.Open(t, "keep")

	ran := false
	h.Do(t, func(ctx context.Context) {
		h.Host.Dispatch(s.View, func(context.Context, *console.View) { ran = true })
		h.Host.DestroyView(ctx, s.View)
	})
	h.Settle(t)
	if ran {
		t.Errorf("Expected dispatch to a destroyed view to be skipped")
	}

	err := h.Host.DispatchSync(context.Background(), s.View, func(context.Context, *console.View) {})
	if !errors.Is(err, console.ErrNoView) {
		t.Errorf("Expected ErrNoView from DispatchSync, got %v", err)
	}
}

// blockLoop occupies the GUI thread until the returned func is called.
func blockLoop(t *testing.T, h *consoletest.Harness) (release func()) {
	t.Helper()
	started := make(chan struct{})
	unblock := make(chan struct{})
	if err := h.Loop.Submit(func(context.Context) {
		close(started)
		<-unblock
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	<-started
	var once sync.Once
	release = func() { once.Do(func() { close(unblock) }) }
	t.Cleanup(release)
	return release
}

// waitPending waits until n functions are queued behind the GUI thread.
func waitPending(t *testing.T, h *consoletest.Harness, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.Driver.Pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d queued tasks, got %d", n, h.Driver.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClosingWindowDestroysOnGUIThread(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	h.Open(t, "main")
	s := h.Open(t, "secondary")
	surface := consoletest.SurfaceOf(s.View)
	inline := h.Loop.Stats().Inline

	release := blockLoop(t, h)
	done := surface.Close()
	waitPending(t, h, 1)
	select {
	case <-done:
		t.Fatalf("Expected close to wait for the GUI thread")
	default:
	}
	if !s.View.Alive() {
		t.Errorf("Expected view to stay alive until the GUI thread runs the destroy")
	}

	release()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Expected close to finish once the GUI thread is free")
	}
	if s.View.Alive() {
		t.Errorf("Expected view to be destroyed")
	}
	if got := h.Host.Registry().Len(); got != 1 {
		t.Errorf("Expected 1 view, got %d", got)
	}
	if got := h.Loop.Stats().Inline; got != inline {
		t.Errorf("Expected no inline tasks, got %d more", got-inline)
	}
}

func TestConcurrentOpensForOneOwner(t *testing.T) {
	h := consoletest.New(t, console.Options{})
	owner := console.NewOwner()

	release := blockLoop(t, h)
	type result struct {
		s   *console.Session
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, err := h.Host.OpenSession(context.Background(), console.SessionRequest{Owner: owner})
			results <- result{s, err}
		}()
	}
	waitPending(t, h, 2)
	release()

	var opened *console.Session
	for i := 0; i < 2; i++ {
		r := <-results
		switch {
		case r.err == nil && opened == nil:
			opened = r.s
		case errors.Is(r.err, console.ErrAlreadyBound):
		default:
			t.Errorf("Expected one session and one ErrAlreadyBound, got %v", r.err)
		}
	}
	if opened == nil {
		t.Fatalf("Expected one open to succeed")
	}
	if got := h.Host.Registry().FindOwnedBy(owner); got != opened.View {
		t.Errorf("Expected owner to resolve to its session's view")
	}
	if got := h.Host.Registry().Len(); got != 1 {
		t.Errorf("Expected no extra views, got %d", got)
	}
	if n := len(h.Surfaces()); n != 0 {
		t.Errorf("Expected no surfaces from the rejected open, got %d", n)
	}
}
