package party

import "weak"

// Waker lets code outside a Party's run loop mark a participant ready to
// be repolled. A Waker is either owning (keeps its Party reachable, via a
// strong ref taken at construction and released on [Waker.Close]) or
// non-owning (holds a [weak.Pointer], so it never keeps its Party alive
// on its own).
type Waker struct {
	target weak.Pointer[Party]
	strong *Party // non-nil only for an owning Waker
	slot   int
	gen    uint32
}

// makeOwningWaker creates a Waker that holds a strong ref on p until
// [Waker.Close] is called. Every owning Waker must be closed exactly
// once, mirroring gRPC's Handle destructor via IncrementRefCount/Unref.
func makeOwningWaker(p *Party, slot int, gen uint32) Waker {
	p.sync.IncrementRefCount()
	return Waker{target: weak.Make(p), strong: p, slot: slot, gen: gen}
}

// makeNonOwningWaker creates a Waker that does not keep p reachable. Once
// p is garbage collected, [Waker.Wakeup] silently becomes a no-op: there
// is no strong ref to release, so there is nothing to leak either.
func makeNonOwningWaker(p *Party, slot int, gen uint32) Waker {
	return Waker{target: weak.Make(p), slot: slot, gen: gen}
}

// Wakeup marks the participant this Waker was captured for as ready to be
// repolled. It is a no-op if the participant's slot has since been
// retired, whether or not it was then reused (a reuse is detected via a
// generation mismatch), or if the
// Party has already been garbage collected (only possible for a
// non-owning Waker).
func (w Waker) Wakeup() {
	p := w.target.Value()
	if p == nil {
		return
	}
	p.wakeupSlot(w.slot, w.gen)
}

// WakeupAsync behaves like [Waker.Wakeup], except the state transition
// (and, if it wins the run-lock, driving the run loop) is posted onto the
// Party's [Executor] instead of running on the calling goroutine. Use
// this when the caller holds a lock a participant might itself try to
// take: Wakeup performs the CAS and, if it wins the run-lock, calls the
// Executor's Run on the calling goroutine, and an Executor that runs the
// closure inline would poll the participant while that lock is held. It
// is a no-op under the same conditions as Wakeup.
func (w Waker) WakeupAsync() {
	p := w.target.Value()
	if p == nil {
		return
	}
	slot, gen := w.slot, w.gen
	p.executor.Run(func() {
		p.wakeupSlot(slot, gen)
	})
}

// IsUnwakeable reports whether this Waker can no longer have any effect:
// its Party has been garbage collected (non-owning only) or its slot has
// been retired, whether or not it was then reused. Intended for
// diagnostics; Wakeup is always
// safe to call regardless.
func (w Waker) IsUnwakeable() bool {
	p := w.target.Value()
	if p == nil {
		return true
	}
	return !p.slotMatchesGeneration(w.slot, w.gen)
}

// Close releases the strong ref an owning Waker holds. It is a no-op on a
// non-owning Waker (Close is always safe to call, including on the zero
// Waker, so callers don't need to track which kind they have).
func (w Waker) Close() error {
	if w.strong == nil {
		return nil
	}
	w.strong.unref()
	return nil
}
