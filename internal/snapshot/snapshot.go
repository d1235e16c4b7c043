// Package snapshot provides a lock-free cell for whole-value replacement of
// shared state.
package snapshot

import (
	"sync/atomic"
	"time"
)

// Snapshot is one fetched document. Raw is the body as received, kept so the
// document can be mirrored without re-encoding.
type Snapshot[T any] struct {
	Data      T
	Raw       []byte
	FetchedAt time.Time
}

// Cell holds the current Snapshot. Writers replace it whole; readers get the
// snapshot that was current at the time of the call and never a torn value.
// The zero value is an empty cell.
type Cell[T any] struct {
	p atomic.Pointer[Snapshot[T]]
}

func (c *Cell[T]) Replace(s Snapshot[T]) {
	c.p.Store(&s)
}

// Current returns nil until the first Replace.
func (c *Cell[T]) Current() *Snapshot[T] {
	return c.p.Load()
}
