package metadata

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Deduplicator shares one in-flight lookup between concurrent callers
// asking for the same ISBN. The shared call is detached from any single
// caller's cancellation and bounded by its own timeout; each caller still
// stops waiting when its own context is done.
type Deduplicator struct {
	next    Lookup
	timeout time.Duration
	group   singleflight.Group
}

func NewDeduplicator(next Lookup, timeout time.Duration) *Deduplicator {
	return &Deduplicator{next: next, timeout: timeout}
}

func (d *Deduplicator) Lookup(ctx context.Context, isbn string) (Metadata, error) {
	ch := d.group.DoChan(isbn, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		return d.next.Lookup(shared, isbn)
	})

	select {
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Metadata{}, res.Err
		}
		return res.Val.(Metadata), nil
	}
}
