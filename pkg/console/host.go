package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phroun/pawconsole/pkg/conlog"
	"github.com/phroun/pawconsole/pkg/guiloop"
)

// Default tuning values.
const (
	DefaultRefreshRate  = 100
	DefaultHistoryLimit = 1000
	DefaultFlushDelay   = 100 * time.Millisecond
	DefaultFlushTimeout = 100 * time.Millisecond
)

// Options configures a Host.
type Options struct {
	Logger *conlog.Logger
	// RefreshRate forces a render after this many appends without one.
	RefreshRate int
	// MaxBlockCount caps the buffer's line count; 0 means unlimited.
	MaxBlockCount uint64
	// HistoryLimit caps each view's input history.
	HistoryLimit int
	// FlushDelay is how long a partial output line may sit before it is shown.
	FlushDelay time.Duration
	// FlushTimeout bounds how long Stream.Flush waits for the GUI thread.
	FlushTimeout time.Duration
}

// Host ties the GUI loop, the view registry and the surface factory
// together. It is the only place views are created, bound and destroyed.
type Host struct {
	loop     *guiloop.Loop
	registry *Registry
	factory  SurfaceFactory
	log      *conlog.Logger
	opts     Options
}

// NewHost creates a host. factory may be nil when sessions always reuse
// the first view.
func NewHost(loop *guiloop.Loop, factory SurfaceFactory, opts Options) *Host {
	if opts.Logger == nil {
		opts.Logger = conlog.Discard()
	}
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = DefaultRefreshRate
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = DefaultFlushDelay
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	return &Host{
		loop:     loop,
		registry: NewRegistry(),
		factory:  factory,
		log:      opts.Logger,
		opts:     opts,
	}
}

// Loop returns the GUI loop.
func (h *Host) Loop() *guiloop.Loop { return h.loop }

// Registry returns the view registry.
func (h *Host) Registry() *Registry { return h.registry }

// Logger returns the host logger.
func (h *Host) Logger() *conlog.Logger { return h.log }

// Lookup returns the view bound to the worker identified by ctx.
func (h *Host) Lookup(ctx context.Context) (*View, error) {
	v := h.registry.FindOwnedBy(OwnerFrom(ctx))
	if v == nil || !v.Alive() {
		return nil, ErrNoView
	}
	return v, nil
}

// AddView registers an unbound view around an existing surface, such as
// the main window a front-end builds at startup. The front-end must call
// DestroyView when the surface goes away.
func (h *Host) AddView(ctx context.Context, surface Surface) (*View, error) {
	var v *View
	err := h.loop.SubmitSync(ctx, func(context.Context) {
		v = newView(h, surface)
		h.registry.add(v)
		bindSurface(v)
		h.log.DebugCat(conlog.CatRegistry, "view %s added (%q)", v.id, surface.Title())
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// createView creates a surface through the factory and registers a view for
// it. GUI thread only.
//
// Toolkits call onClose from their own goroutine, so the destroy is
// dispatched rather than run where it is called.
func (h *Host) createView(title string) (*View, error) {
	if h.factory == nil {
		return nil, fmt.Errorf("%w: no surface factory", ErrUnsupported)
	}
	var v *View
	surface, err := h.factory.NewSurface(title, func() {
		if v != nil {
			h.DestroyView(context.Background(), v)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("creating surface: %w", err)
	}
	v = newView(h, surface)
	h.registry.add(v)
	bindSurface(v)
	h.log.DebugCat(conlog.CatRegistry, "view %s created (%q)", v.id, title)
	return v, nil
}

// discardView drops a view that was created but never bound. GUI thread only.
func (h *Host) discardView(v *View) {
	h.registry.remove(v)
	v.destroy()
	if ws, ok := v.surface.(WindowSurface); ok {
		ws.SetVisible(false)
	}
}

func bindSurface(v *View) {
	if vs, ok := v.surface.(ViewSurface); ok {
		vs.BindView(v)
	}
}

// DestroyView unregisters v and orphans its streams: blocked readers see
// EOF and later writes are dropped. Destroying twice is harmless.
func (h *Host) DestroyView(ctx context.Context, v *View) error {
	return h.loop.SubmitSync(ctx, func(context.Context) {
		if !h.registry.remove(v) {
			return
		}
		v.destroy()
		h.log.DebugCat(conlog.CatRegistry, "view %s destroyed", v.id)
	})
}

// Dispatch runs fn against v on the GUI thread without waiting. fn is
// skipped if v has been destroyed by the time it would run.
func (h *Host) Dispatch(v *View, fn func(ctx context.Context, v *View)) error {
	return h.loop.Submit(func(ctx context.Context) {
		if !v.Alive() {
			h.log.Trace(conlog.CatLoop, "skipping task for destroyed view %s", v.id)
			return
		}
		fn(ctx, v)
	})
}

// DispatchSync runs fn against v on the GUI thread and waits for it. It
// returns ErrNoView if v is destroyed before fn could run, including while
// the caller is waiting.
func (h *Host) DispatchSync(ctx context.Context, v *View, fn func(ctx context.Context, v *View)) error {
	if v == nil || !v.Alive() {
		return ErrNoView
	}
	ran := false
	err := h.loop.SubmitSyncUntil(ctx, v.Done(), func(ctx context.Context) {
		if !v.Alive() {
			return
		}
		ran = true
		fn(ctx, v)
	})
	switch {
	case errors.Is(err, guiloop.ErrAborted):
		return ErrNoView
	case err != nil:
		return err
	case !ran:
		return ErrNoView
	}
	return nil
}

// SessionRequest describes a session to open.
type SessionRequest struct {
	Title string
	// Owner binds the new view; NoOwner allocates a fresh one.
	Owner Owner
}

// OpenSession binds a console to a worker and returns its stream triple.
// The first view is reused while nobody owns it; otherwise a new view is
// created through the surface factory. Fails with ErrNoView when no view
// exists at all.
func (h *Host) OpenSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if h.registry.FindAny() == nil {
		return nil, ErrNoView
	}
	owner := req.Owner
	if owner == NoOwner {
		owner = NewOwner()
	}
	alreadyBound := fmt.Errorf("%s: %w", owner, ErrAlreadyBound)
	if h.registry.FindOwnedBy(owner) != nil {
		return nil, alreadyBound
	}

	var (
		sess    *Session
		openErr error
	)
	err := h.loop.SubmitSync(ctx, func(context.Context) {
		// Another open for the same owner may have run since the check above.
		if h.registry.FindOwnedBy(owner) != nil {
			openErr = alreadyBound
			return
		}
		v := h.registry.FindAny()
		if v == nil {
			openErr = ErrNoView
			return
		}
		created := false
		if v.Owner() != NoOwner {
			if v, openErr = h.createView(req.Title); openErr != nil {
				return
			}
			created = true
		} else if req.Title != "" {
			v.SetTitle(req.Title)
		}
		if err := h.registry.bind(v, owner); err != nil {
			openErr = fmt.Errorf("%s: %w", owner, err)
			if created {
				h.discardView(v)
			}
			return
		}
		sess = newSession(h, v, owner, req.Title)
		v.session.Store(sess)
	})
	if err != nil {
		return nil, err
	}
	if openErr != nil {
		return nil, openErr
	}
	h.log.DebugCat(conlog.CatSession, "session %s opened on view %s", owner, sess.View.id)
	return sess, nil
}

// Interrupt interrupts the view bound to the worker identified by ctx.
func (h *Host) Interrupt(ctx context.Context) error {
	v, err := h.Lookup(ctx)
	if err != nil {
		return err
	}
	v.Interrupt()
	return nil
}

// Close destroys every view and closes the loop.
func (h *Host) Close(ctx context.Context) {
	for _, v := range h.registry.Views() {
		dctx, cancel := context.WithTimeout(ctx, h.opts.FlushTimeout)
		err := h.DestroyView(dctx, v)
		cancel()
		if err != nil {
			h.log.DebugCat(conlog.CatRegistry, "destroy %s: %v", v.id, err)
			// The GUI thread is gone; tear down from here.
			h.registry.remove(v)
			v.destroy()
		}
	}
	h.loop.Close()
}
