// Package party provides a cooperative multi-participant activity
// scheduler: the execution substrate for asynchronous call pipelines that
// need many suspendable computations to share one serial timeline.
//
// A [Party] hosts up to 16 independently-suspendable participants.
// Participants run serially on their Party — no two participants of the
// same Party ever execute concurrently — but different Parties run in
// parallel across a shared [Executor]. Wakeups from arbitrary goroutines
// re-enter a Party and poll only the participants with pending work,
// tracked by a bitmap packed into a single atomic word.
//
// # Architecture
//
//   - State: a packed 64-bit atomic word fuses liveness (ref_count), the
//     wake-set, the allocation-set, the run-lock and the destruction
//     handshake into one compare-and-swap domain. See [PartySync].
//   - Participants: type-erased polling closures occupying fixed slots.
//     [Spawn] allocates a slot; a participant's poll either retires it
//     (returns [Ready]) or leaves it allocated ([Pending]) until a
//     [Waker] re-arms its wake bit.
//   - Wakers: an owning [Waker] keeps a Party alive until [Waker.Close];
//     a non-owning one does not, and silently tombstones once the Party
//     orphans. Build one for the currently-polling participant with
//     [WakerFromContext].
//   - Execution: the run loop drains wake bits under the run-lock,
//     polling each flagged slot exactly once per pass, until the
//     wake-set is empty; a concurrent wake that arrives mid-pass forces
//     another pass rather than being lost.
//
// # Thread Safety
//
//   - [Spawn], [SpawnWaitable] and [Waker.Wakeup] are safe to call from
//     any goroutine, including from inside a participant's own poll.
//   - At most one goroutine ever executes a given Party's participants
//     at a time; this is the run-lock bit of [PartySync]'s state word.
//   - [BulkSpawner] is not itself safe for concurrent use; each spawner
//     is meant to be owned by a single goroutine for its scope.
//
// # Usage
//
//	p, err := party.New(party.NewPoolExecutor(4))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	var done sync.WaitGroup
//	done.Add(1)
//	party.Spawn(p, "answer", func(ctx context.Context) party.Poll[int] {
//		return party.Ready(42)
//	}, func(v int) {
//		fmt.Println(v)
//		done.Done()
//	})
//	done.Wait()
//
// # Error Types
//
// The package provides a small, focused error taxonomy:
//   - [ErrPartyOrphaned]: Spawn attempted after the last strong ref dropped.
//   - [ErrNoSlotAvailable]: all 16 participant slots are occupied.
//   - [PanicError]: wraps a recovered contract violation (e.g. ref-count
//     overflow), matching [errors.Is]/[errors.As] through its cause chain.
package party
