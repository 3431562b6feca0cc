package party

// MaxParticipants is the fixed number of participant slots a Party
// hosts. It is also the bit-width of the allocated/wakeups/add_queued
// fields of the packed state word.
const MaxParticipants = 16

// partyState is the packed 64-bit state word:
//
//	63..56  ref_count   (u8)
//	55..48  locked(1)+reserved(7)
//	47..32  allocated   (u16)
//	31..16  wakeups     (u16)
//	15..0   add_queued  (u16)
//
// All fields are read/written as a unit so that a single CAS can decide
// "did I take the run-lock, did I cause destruction, is there more to
// poll" atomically.
type partyState uint64

const (
	refShift       = 56
	lockedShift    = 55
	allocatedShift = 32
	wakeupsShift   = 16
	addQueuedShift = 0

	refMask   partyState = 0xFF
	lockedBit partyState = 1 << lockedShift
	slotMask  partyState = (1 << MaxParticipants) - 1
)

func makePartyState(ref uint8, locked bool, allocated, wakeups, addQueued uint16) partyState {
	s := partyState(ref) << refShift
	if locked {
		s |= lockedBit
	}
	s |= partyState(allocated&uint16(slotMask)) << allocatedShift
	s |= partyState(wakeups&uint16(slotMask)) << wakeupsShift
	s |= partyState(addQueued&uint16(slotMask)) << addQueuedShift
	return s
}

func (s partyState) refCount() uint8   { return uint8((s >> refShift) & refMask) }
func (s partyState) locked() bool      { return s&lockedBit != 0 }
func (s partyState) allocated() uint16 { return uint16((s >> allocatedShift) & slotMask) }
func (s partyState) wakeups() uint16   { return uint16((s >> wakeupsShift) & slotMask) }
func (s partyState) addQueued() uint16 { return uint16((s >> addQueuedShift) & slotMask) }

func (s partyState) withRefCount(ref uint8) partyState {
	return (s &^ (refMask << refShift)) | partyState(ref)<<refShift
}

func (s partyState) withLocked(locked bool) partyState {
	if locked {
		return s | lockedBit
	}
	return s &^ lockedBit
}

func (s partyState) withAllocated(v uint16) partyState {
	return (s &^ (slotMask << allocatedShift)) | partyState(v&uint16(slotMask))<<allocatedShift
}

func (s partyState) withWakeups(v uint16) partyState {
	return (s &^ (slotMask << wakeupsShift)) | partyState(v&uint16(slotMask))<<wakeupsShift
}

func (s partyState) withAddQueued(v uint16) partyState {
	return (s &^ (slotMask << addQueuedShift)) | partyState(v&uint16(slotMask))<<addQueuedShift
}

// lowestFreeSlots returns the n lowest bit indices not set in allocated,
// or ok=false if fewer than n remain. The lowest free slot always wins
// ties; BulkSpawner may reserve any n lowest, not necessarily contiguous.
func lowestFreeSlots(allocated uint16, n int) (slots []int, mask uint16, ok bool) {
	if n == 0 {
		return nil, 0, true
	}
	slots = make([]int, 0, n)
	for i := 0; i < MaxParticipants && len(slots) < n; i++ {
		if allocated&(1<<uint(i)) == 0 {
			slots = append(slots, i)
			mask |= 1 << uint(i)
		}
	}
	if len(slots) < n {
		return nil, 0, false
	}
	return slots, mask, true
}

// PartySync is the atomic state-word protocol. Two interchangeable
// implementations exist: [newAtomicSync] (lock-free CAS loop) and
// [newMutexSync] (mutex-guarded fallback); both must satisfy the same
// invariants and pass the same property suite.
type PartySync interface {
	// IncrementRefCount adds a strong ref. Fails fast (panics via a
	// [PanicError] wrapping [ErrOverflow]) if the 8-bit ref_count field
	// would overflow.
	IncrementRefCount()

	// Unref removes a strong ref. Returns true iff this call transitioned
	// ref_count from 1 to 0; the caller must then run destruction.
	Unref() bool

	// AddParticipantsAndRef reserves n free slot indices and increments
	// ref_count in one CAS, sets their bits in allocated/add_queued/wakeups,
	// and — if the run-lock was free — takes it. assign is invoked with the
	// reserved indices after the CAS succeeds, before AddParticipantsAndRef
	// returns. Returns ok=false if fewer than n slots were free (no CAS is
	// attempted in that case); otherwise acquiredLock is true iff this call
	// took the run-lock, meaning the caller must drive the run loop.
	AddParticipantsAndRef(n int, assign func(indices []int)) (acquiredLock bool, ok bool)

	// WakeupSlot sets slot i's wake bit. Returns true iff this call took
	// the run-lock (the caller must drive the run loop).
	WakeupSlot(i int) (acquiredLock bool)

	// RunParty runs poll passes while holding the run-lock (precondition:
	// the caller just acquired it). pollOne is called once per flagged
	// slot in ascending order and must return true iff the participant
	// completed (Ready), causing its allocated bit to clear. Returns true
	// iff the CAS that released the run-lock also observed ref_count==0,
	// in which case the caller must destroy the Party.
	RunParty(pollOne func(slot int) bool) (destroy bool)

	// ForceImmediateRepoll sets slot i's wake bit unconditionally, for use
	// only from inside pollOne: the slot is re-polled later in the current
	// pass if i is above the slot being polled, otherwise in the next pass;
	// never recursively within the current call.
	ForceImmediateRepoll(i int)

	// snapshot returns the current state word, for tests and diagnostics.
	snapshot() partyState
}
