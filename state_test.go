package party

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncFactories parametrizes the property suite over both [PartySync]
// implementations, the way gRPC's PartySyncTest is a typed test over
// PartySyncUsingAtomics and PartySyncUsingMutex.
var syncFactories = map[string]func(uint8) PartySync{
	"atomic": newAtomicSync,
	"mutex":  newMutexSync,
}

func forEachSync(t *testing.T, fn func(t *testing.T, newSync func(uint8) PartySync)) {
	for name, factory := range syncFactories {
		t.Run(name, func(t *testing.T) { fn(t, factory) })
	}
}

func TestPartyState_PackUnpackRoundTrip(t *testing.T) {
	s := makePartyState(7, true, 0b1010, 0b0110, 0b0001)
	assert.Equal(t, uint8(7), s.refCount())
	assert.True(t, s.locked())
	assert.Equal(t, uint16(0b1010), s.allocated())
	assert.Equal(t, uint16(0b0110), s.wakeups())
	assert.Equal(t, uint16(0b0001), s.addQueued())
}

func TestPartyState_WithHelpersDoNotDisturbOtherFields(t *testing.T) {
	s := makePartyState(3, false, 0b0011, 0b0101, 0b1000)
	s2 := s.withRefCount(9)
	assert.Equal(t, uint8(9), s2.refCount())
	assert.Equal(t, s.locked(), s2.locked())
	assert.Equal(t, s.allocated(), s2.allocated())
	assert.Equal(t, s.wakeups(), s2.wakeups())
	assert.Equal(t, s.addQueued(), s2.addQueued())
}

func TestLowestFreeSlots(t *testing.T) {
	slots, mask, ok := lowestFreeSlots(0b0000000000000101, 2)
	require.True(t, ok)
	assert.Equal(t, []int{1, 3}, slots)
	assert.Equal(t, uint16(0b1010), mask)

	_, _, ok = lowestFreeSlots(0xFFFF, 1)
	assert.False(t, ok)

	_, mask, ok = lowestFreeSlots(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint16(0), mask)
}

// TestPartySync_RefAndUnref is grounded on party_test.cc's RefAndUnref:
// concurrent increments (kept below the 8-bit ref_count limit) followed
// by one Unref per ref must never lose an increment or a decrement.
func TestPartySync_RefAndUnref(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		const n = 100
		s := newSync(1)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				s.IncrementRefCount()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				s.IncrementRefCount()
			}
		}()
		wg.Wait()

		destroyed := 0
		for i := 0; i < 2*n+1; i++ {
			if s.Unref() {
				destroyed++
			}
		}
		assert.Equal(t, 1, destroyed, "exactly one Unref call must observe the transition to zero")
	})
}

// TestPartySync_MutualExclusion checks that RunParty is never entered by
// two goroutines concurrently: a shared counter incremented inside
// pollOne must never be observed above 1 by a racing reader.
func TestPartySync_MutualExclusion(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		s := newSync(1)
		var inside int32
		var sawOverlap bool
		var mu sync.Mutex

		var wg sync.WaitGroup
		const n = 200
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				if acquired := s.WakeupSlot(0); acquired {
					s.RunParty(func(slot int) bool {
						mu.Lock()
						inside++
						if inside > 1 {
							sawOverlap = true
						}
						mu.Unlock()
						mu.Lock()
						inside--
						mu.Unlock()
						return false
					})
				}
			}()
		}
		wg.Wait()
		assert.False(t, sawOverlap, "RunParty must never run concurrently with itself")
	})
}

// TestPartySync_AddParticipantsAndRef_NoSlotsLeft covers the
// resource-exhaustion edge case: a request that cannot be satisfied must
// fail outright rather than partially reserve slots.
func TestPartySync_AddParticipantsAndRef_NoSlotsLeft(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		s := newSync(1)
		_, ok := s.AddParticipantsAndRef(MaxParticipants, func([]int) {})
		require.True(t, ok)

		_, ok = s.AddParticipantsAndRef(1, func([]int) { t.Fatal("assign must not run when slots are full") })
		assert.False(t, ok)
	})
}

// TestPartySync_BulkSpawnerAtomicity checks that a request for more
// slots than remain must not partially reserve slots.
func TestPartySync_BulkSpawnerAtomicity(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		s := newSync(1)
		_, ok := s.AddParticipantsAndRef(MaxParticipants-2, func([]int) {})
		require.True(t, ok)

		before := s.snapshot().allocated()
		_, ok = s.AddParticipantsAndRef(3, func([]int) { t.Fatal("must not assign a partial batch") })
		assert.False(t, ok)
		assert.Equal(t, before, s.snapshot().allocated(), "allocated bitmap must be unchanged on a failed bulk reservation")
	})
}

// TestPartySync_RunParty_DrainsWakeupsQueuedDuringPoll checks that a
// wakeup that arrives while RunParty is polling must be observed before
// the lock is released, not lost.
func TestPartySync_RunParty_DrainsWakeupsQueuedDuringPoll(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		s := newSync(1)
		acquired, ok := s.AddParticipantsAndRef(1, func([]int) {})
		require.True(t, ok)
		require.True(t, acquired)

		passes := 0
		s.RunParty(func(slot int) bool {
			passes++
			if passes == 1 {
				// simulate a concurrent wakeup arriving mid-poll
				s.WakeupSlot(slot)
				return false
			}
			return true
		})
		assert.Equal(t, 2, passes, "a wakeup queued during the first pass must trigger a second pass before unlocking")
	})
}

// TestPartySync_ForceImmediateRepoll checks that a forced repoll is
// observed by the *next* pass of the same RunParty call, not recursively
// within the current pollOne call.
func TestPartySync_ForceImmediateRepoll(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		s := newSync(1)
		acquired, ok := s.AddParticipantsAndRef(1, func([]int) {})
		require.True(t, ok)
		require.True(t, acquired)

		count := 10
		s.RunParty(func(slot int) bool {
			count--
			if count > 0 {
				s.ForceImmediateRepoll(slot)
				return false
			}
			return true
		})
		assert.Equal(t, 0, count)
	})
}

// TestPartySync_RunParty_NestedSpawnHigherIndexPolledSamePass checks that
// a slot reserved by a nested AddParticipantsAndRef call made from inside
// pollOne, at a higher index than the slot currently being polled, is
// polled within the same RunParty pass rather than deferred to the next
// one.
func TestPartySync_RunParty_NestedSpawnHigherIndexPolledSamePass(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		s := newSync(1)
		acquired, ok := s.AddParticipantsAndRef(1, func([]int) {})
		require.True(t, ok)
		require.True(t, acquired)

		var order []int
		var childSlot int
		spawned := false
		s.RunParty(func(slot int) bool {
			order = append(order, slot)
			if slot == 0 && !spawned {
				spawned = true
				_, ok := s.AddParticipantsAndRef(1, func(indices []int) {
					childSlot = indices[0]
				})
				require.True(t, ok)
				require.Greater(t, childSlot, 0, "the nested reservation must land on a higher slot index")
			}
			return true
		})

		assert.Equal(t, []int{0, childSlot}, order,
			"a higher-index slot reserved mid-poll must be polled within the same pass, not the next one")
	})
}

// TestPartySync_RunParty_NestedForceRepollLowerIndexDeferredToNextPass
// checks the mirror case: a ForceImmediateRepoll on a *lower*-index slot,
// already polled earlier in the current pass, is not pulled forward into
// that pass — only higher indices are. It is instead picked up by the
// next pass within the same RunParty call.
func TestPartySync_RunParty_NestedForceRepollLowerIndexDeferredToNextPass(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		s := newSync(1)
		acquired, ok := s.AddParticipantsAndRef(2, func([]int) {})
		require.True(t, ok)
		require.True(t, acquired)

		var order []int
		repolled := false
		s.RunParty(func(slot int) bool {
			order = append(order, slot)
			if slot == 1 && !repolled {
				repolled = true
				s.ForceImmediateRepoll(0)
			}
			return true
		})

		assert.Equal(t, []int{0, 1, 0}, order,
			"a lower-index slot forced to repoll mid-pass runs in the next pass, not the current one")
	})
}

// TestPartySync_ConcurrentUnrefNeverDoubleDestroys is grounded on
// party_test.cc's UnrefWhileRunning: racing Unref calls that together
// bring ref_count to zero must report the transition exactly once, no
// matter how they interleave.
func TestPartySync_ConcurrentUnrefNeverDoubleDestroys(t *testing.T) {
	forEachSync(t, func(t *testing.T, newSync func(uint8) PartySync) {
		for trial := 0; trial < 100; trial++ {
			s := newSync(1)
			s.IncrementRefCount() // ref=2

			var wg sync.WaitGroup
			wg.Add(2)
			results := make([]bool, 2)
			go func() { defer wg.Done(); results[0] = s.Unref() }()
			go func() { defer wg.Done(); results[1] = s.Unref() }()
			wg.Wait()

			destroyCount := 0
			for _, d := range results {
				if d {
					destroyCount++
				}
			}
			assert.Equal(t, 1, destroyCount, "trial %d: exactly one of two racing Unref calls must observe the transition to zero", trial)
		}
	})
}
