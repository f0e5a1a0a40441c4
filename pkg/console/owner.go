package console

import (
	"context"
	"strconv"
	"sync/atomic"
)

// Owner identifies the worker a view is bound to. Goroutines have no
// identity of their own, so a worker carries its Owner in its context.
type Owner uint64

// NoOwner is the zero Owner; no view is ever bound to it.
const NoOwner Owner = 0

var lastOwner atomic.Uint64

// NewOwner allocates a fresh, never reused Owner.
func NewOwner() Owner {
	return Owner(lastOwner.Add(1))
}

func (o Owner) String() string {
	if o == NoOwner {
		return "none"
	}
	return "owner-" + strconv.FormatUint(uint64(o), 10)
}

type ownerKey struct{}

// WithOwner returns a context that identifies its holder as o.
func WithOwner(ctx context.Context, o Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, o)
}

// OwnerFrom returns the Owner carried by ctx, or NoOwner.
func OwnerFrom(ctx context.Context) Owner {
	if ctx == nil {
		return NoOwner
	}
	o, _ := ctx.Value(ownerKey{}).(Owner)
	return o
}
