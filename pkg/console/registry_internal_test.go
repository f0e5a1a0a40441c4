package console

import (
	"errors"
	"testing"

	"github.com/phroun/pawconsole/pkg/guiloop"
)

func TestBindKeepsOneViewPerOwner(t *testing.T) {
	loop := guiloop.New(guiloop.NewQueueDriver(0))
	defer loop.Close()
	h := NewHost(loop, nil, Options{})
	first, second := newView(h, nil), newView(h, nil)

	r := NewRegistry()
	r.add(first)
	r.add(second)
	o := NewOwner()

	if err := r.bind(first, o); err != nil {
		t.Fatalf("bind() error = %v", err)
	}
	if err := r.bind(second, o); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("Expected ErrAlreadyBound, got %v", err)
	}
	if got := r.FindOwnedBy(o); got != first {
		t.Errorf("Expected owner to keep its first view")
	}
	if got := second.Owner(); got != NoOwner {
		t.Errorf("Expected second view to stay unbound, got %s", got)
	}
	if err := r.bind(first, NewOwner()); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("Expected ErrAlreadyBound rebinding a view, got %v", err)
	}
}
