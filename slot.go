package party

import (
	"context"
	"sync"
)

// pollable is the type-erased participant a slot holds. Spawn's generic
// type parameter is erased into this interface at spawn time, since Go
// forbids storing a heterogeneous set of Poll[T] closures in one array
// without erasure, since a Party hosts participants of many distinct
// result types at once.
type pollable interface {
	// poll runs one poll pass and reports whether the participant is done
	// (Ready or Cancelled) and should be retired.
	poll(ctx context.Context) (done bool)
}

// spawnedParticipant adapts a generic poll function and its completion
// callback to [pollable].
type spawnedParticipant[T any] struct {
	name     string
	fn       func(context.Context) Poll[T]
	onReady  func(T)
	onCancel func()
}

func (p *spawnedParticipant[T]) poll(ctx context.Context) bool {
	res := p.fn(ctx)
	switch res.State() {
	case StateReady:
		v, _ := res.Value()
		if p.onReady != nil {
			p.onReady(v)
		}
		return true
	case StateCancelled:
		if p.onCancel != nil {
			p.onCancel()
		}
		return true
	default:
		return false
	}
}

// slotRecord is one entry of a Party's fixed 16-slot participant table.
// generation increments every time the slot is reused, so a [Waker]
// captured for an earlier occupant can detect it targets a stale
// participant without needing to track pointer identity.
type slotRecord struct {
	participant pollable
	generation  uint32
	name        string
}

// slotRecordPool recycles slotRecord values, grounded on catrate's
// categoryDataPool sync.Pool idiom, avoiding an allocation on every
// Spawn/retire cycle on a busy Party.
var slotRecordPool = sync.Pool{
	New: func() any { return new(slotRecord) },
}

func acquireSlotRecord() *slotRecord {
	return slotRecordPool.Get().(*slotRecord)
}

func releaseSlotRecord(r *slotRecord) {
	gen := r.generation
	*r = slotRecord{generation: gen}
	slotRecordPool.Put(r)
}
