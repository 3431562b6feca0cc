package party

import (
	"context"
	"sync"
)

// Poller is the result handle returned by [SpawnWaitable]: a settled
// value observable from outside the Party that produced it, and — via
// its own [Poller.Poll] method — a poll function usable to [Spawn] the
// same result onto a different Party. This drops JS-style Promise/A+
// chaining (Then/Catch/Finally), which nothing in this domain needs;
// what survives is the settled-value-observable-outside-the-closure
// idea behind a ToChannel-style handle.
type Poller[T any] struct {
	mu        sync.Mutex
	done      bool
	cancelled bool
	value     T
	waker     *Waker
	waiters   []chan struct{}
}

func newPoller[T any]() *Poller[T] {
	return &Poller[T]{}
}

func (p *Poller[T]) resolve(v T) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.value = v
	waiters := p.waiters
	p.waiters = nil
	w := p.waker
	p.waker = nil
	p.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
	if w != nil {
		w.Wakeup()
	}
}

func (p *Poller[T]) cancel() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.cancelled = true
	waiters := p.waiters
	p.waiters = nil
	w := p.waker
	p.waker = nil
	p.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
	if w != nil {
		w.Wakeup()
	}
}

// Poll implements the func(context.Context) Poll[T] signature [Spawn]
// and [SpawnWaitable] expect, letting one Party's result be spawned as a
// participant on another Party. While pending, it registers a
// non-owning waker for the calling participant's slot, so resolving or
// cancelling this Poller schedules that participant's next repoll
// instead of leaving it parked until something else happens to wake it.
func (p *Poller[T]) Poll(ctx context.Context) Poll[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		if act, ok := ActivityFromContext(ctx); ok {
			if pa, ok := act.(*partyActivity); ok {
				w := pa.party.makeWaker(pa.slot, false)
				p.waker = &w
			}
		}
		return PendingPoll[T]()
	}
	if p.cancelled {
		return Cancelled[T]()
	}
	return Ready(p.value)
}

// Done reports whether the participant has settled (Ready or Cancelled).
func (p *Poller[T]) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Wait blocks the calling goroutine until the participant settles or ctx
// is done, whichever happens first. This is for code outside any Party's
// run loop (blocking inside a poll function would starve the Party, so
// participants should use [Poller.Poll] via [Spawn] instead).
func (p *Poller[T]) Wait(ctx context.Context) (T, bool, error) {
	ch := p.subscribe()
	if ch == nil {
		p.mu.Lock()
		v, cancelled := p.value, p.cancelled
		p.mu.Unlock()
		return v, !cancelled, nil
	}
	select {
	case <-ch:
		p.mu.Lock()
		v, cancelled := p.value, p.cancelled
		p.mu.Unlock()
		return v, !cancelled, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (p *Poller[T]) subscribe() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	return ch
}
