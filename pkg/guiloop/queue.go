package guiloop

import (
	"context"
	"sync"
)

// QueueDriver is a Driver backed by an unbounded FIFO mailbox. The
// goroutine that calls Run becomes the GUI thread. It serves the terminal
// front-end and tests, where no toolkit main loop exists.
//
// Post never blocks, so tasks may post further tasks without deadlocking.
type QueueDriver struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
}

// NewQueueDriver creates an empty queue driver. size is the initial
// capacity of the mailbox.
func NewQueueDriver(size int) *QueueDriver {
	if size < 0 {
		size = 0
	}
	return &QueueDriver{
		tasks: make([]func(), 0, size),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
}

// Post appends fn to the mailbox. Posts after Stop are dropped.
func (d *QueueDriver) Post(fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.tasks = append(d.tasks, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued functions.
func (d *QueueDriver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// Drain runs everything queued right now, including work queued by the
// functions it runs, and returns how many ran. It must be called from the
// goroutine acting as the GUI thread.
func (d *QueueDriver) Drain() int {
	ran := 0
	for {
		batch := d.take()
		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

func (d *QueueDriver) take() []func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	batch := d.tasks
	d.tasks = nil
	return batch
}

// Run processes the mailbox until ctx is done or Stop is called.
func (d *QueueDriver) Run(ctx context.Context) error {
	for {
		d.Drain()
		select {
		case <-d.wake:
		case <-d.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop ends Run and drops queued and future posts.
func (d *QueueDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.tasks = nil
	close(d.stop)
}
