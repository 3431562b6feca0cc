package party

import (
	"sync/atomic"
)

// atomicSync is the lock-free [PartySync], grounded on gRPC's
// PartySyncUsingAtomics and on the packed-state CAS-loop idiom in
// state.go. The word itself is cache-line padded, since the state word
// is by far the hottest-written field on a busy Party.
type atomicSync struct {
	_     [64]byte
	word  atomic.Uint64
	_     [56]byte
}

func newAtomicSync(initialRef uint8) PartySync {
	s := &atomicSync{}
	s.word.Store(uint64(makePartyState(initialRef, false, 0, 0, 0)))
	return s
}

func (s *atomicSync) load() partyState { return partyState(s.word.Load()) }

func (s *atomicSync) cas(old, new partyState) bool {
	return s.word.CompareAndSwap(uint64(old), uint64(new))
}

func (s *atomicSync) IncrementRefCount() {
	for {
		old := s.load()
		if old.refCount() == 0xFF {
			failFast(ErrOverflow)
		}
		if s.cas(old, old.withRefCount(old.refCount()+1)) {
			return
		}
	}
}

func (s *atomicSync) Unref() bool {
	for {
		old := s.load()
		next := old.withRefCount(old.refCount() - 1)
		if s.cas(old, next) {
			return next.refCount() == 0
		}
	}
}

func (s *atomicSync) AddParticipantsAndRef(n int, assign func(indices []int)) (acquiredLock bool, ok bool) {
	for {
		old := s.load()
		slots, mask, fits := lowestFreeSlots(old.allocated(), n)
		if !fits {
			return false, false
		}
		// One ref per reserved participant, matching the per-participant
		// Unref a retiring participant performs; a batch of n therefore
		// takes n refs, not one.
		if int(old.refCount())+n > 0xFF {
			failFast(ErrOverflow)
		}
		next := old.
			withAllocated(old.allocated() | mask).
			withAddQueued(old.addQueued() | mask).
			withWakeups(old.wakeups() | mask).
			withRefCount(old.refCount() + uint8(n))
		takesLock := !old.locked()
		if takesLock {
			next = next.withLocked(true)
		}
		if s.cas(old, next) {
			assign(slots)
			return takesLock, true
		}
	}
}

func (s *atomicSync) WakeupSlot(i int) (acquiredLock bool) {
	bit := uint16(1) << uint(i)
	for {
		old := s.load()
		next := old.withWakeups(old.wakeups() | bit)
		takesLock := !old.locked()
		if takesLock {
			next = next.withLocked(true)
		}
		if s.cas(old, next) {
			return takesLock
		}
	}
}

func (s *atomicSync) ForceImmediateRepoll(i int) {
	bit := uint16(1) << uint(i)
	for {
		old := s.load()
		next := old.withWakeups(old.wakeups() | bit)
		if s.cas(old, next) {
			return
		}
	}
}

func (s *atomicSync) RunParty(pollOne func(slot int) bool) (destroy bool) {
	for {
		// Snapshot and clear add_queued/wakeups; keep the lock held.
		var pending uint16
		for {
			old := s.load()
			pending = old.wakeups() | old.addQueued()
			next := old.withWakeups(0).withAddQueued(0)
			if s.cas(old, next) {
				break
			}
		}

		if pending != 0 {
			completed := uint16(0)
			for i := 0; i < MaxParticipants; i++ {
				if pending&(1<<uint(i)) == 0 {
					continue
				}
				if pollOne(i) {
					completed |= 1 << uint(i)
				}
				// A nested AddParticipantsAndRef/WakeupSlot/ForceImmediateRepoll
				// targeting a higher slot index may have run inside pollOne.
				// Claim those bits now so the same pass reaches them, instead
				// of deferring a higher-index child to the next pass.
				if i+1 < MaxParticipants {
					hiMask := ^uint16(0) << uint(i+1)
					for {
						old := s.load()
						hi := (old.wakeups() | old.addQueued()) & hiMask
						if hi == 0 {
							break
						}
						next := old.withWakeups(old.wakeups() &^ hi).withAddQueued(old.addQueued() &^ hi)
						if s.cas(old, next) {
							pending |= hi
							break
						}
					}
				}
			}
			if completed != 0 {
				for {
					old := s.load()
					next := old.withAllocated(old.allocated() &^ completed)
					if s.cas(old, next) {
						break
					}
				}
			}
		}

		// Try to release the run-lock. If more work arrived while we were
		// polling (wakeups or add_queued non-empty), loop instead of
		// releasing, so nothing added mid-pass is ever left undrained.
		for {
			old := s.load()
			if old.wakeups() != 0 || old.addQueued() != 0 {
				break // re-enter the outer loop to drain it
			}
			next := old.withLocked(false)
			if s.cas(old, next) {
				return next.refCount() == 0
			}
		}
	}
}

func (s *atomicSync) snapshot() partyState { return s.load() }
