package party

import (
	"context"
	"sync"
	"sync/atomic"
)

var partyIDCounter atomic.Uint64

// Party is a cooperative scheduler for up to [MaxParticipants] concurrent
// activities that share one serialized run loop. All exported
// mutating operations (Spawn, SpawnWaitable, BulkSpawner.Close, a Waker's
// Wakeup) are safe to call from any goroutine; only one goroutine ever
// runs a given Party's participants at a time.
type Party struct {
	id       uint64
	sync     PartySync
	executor Executor
	logger   Logger
	metrics  Metrics
	arena    Arena

	slotsMu     sync.Mutex
	slots       [MaxParticipants]*slotRecord
	generations [MaxParticipants]uint32

	orphaned    atomic.Bool
	destroyOnce sync.Once
}

// New creates a Party bound to executor, which every run-loop pass is
// posted onto. The returned Party starts with one strong ref,
// owned by the caller; release it with [Party.Close] once no more
// participants will be spawned.
func New(executor Executor, opts ...PartyOption) (*Party, error) {
	if executor == nil {
		return nil, WrapError("party.New", errNilExecutor)
	}
	cfg, err := resolvePartyOptions(executor, opts)
	if err != nil {
		return nil, err
	}
	p := &Party{
		id:       partyIDCounter.Add(1),
		sync:     cfg.sync(1),
		executor: cfg.executor,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		arena:    cfg.arena,
	}
	return p, nil
}

// ID returns an identifier unique among Parties in this process, for
// logs and metrics.
func (p *Party) ID() uint64 { return p.id }

// Arena returns the Party's attached [Arena].
func (p *Party) Arena() Arena { return p.arena }

// Ref adds a strong ref to the Party, which must later be balanced by a
// call to [Party.Close] (or [Waker.Close], for a ref taken via
// [makeOwningWaker]). Use this when a component outside the Party's own
// spawned participants needs to keep it alive.
func (p *Party) Ref() { p.sync.IncrementRefCount() }

// Close releases one strong ref. When the last ref is released, the
// Party is destroyed: its remaining slots are cleared and no further
// Spawn will succeed. In-flight participants that were already polling
// are unaffected; they simply cannot cause a further run-loop pass to be
// scheduled once the run-lock is released, since Unref-to-zero is only
// observed at that point.
func (p *Party) Close() error {
	p.unref()
	return nil
}

func (p *Party) unref() {
	if p.sync.Unref() {
		p.triggerDestroy()
	}
}

// triggerDestroy runs destroyNow exactly once. Two independent events can
// both observe ref_count reaching zero — a participant's own retire-time
// Unref (below) and RunParty's release-time check — so destruction itself
// must be idempotent.
func (p *Party) triggerDestroy() {
	p.destroyOnce.Do(p.destroyNow)
}

func (p *Party) destroyNow() {
	p.orphaned.Store(true)
	p.slotsMu.Lock()
	for i := range p.slots {
		if p.slots[i] != nil {
			releaseSlotRecord(p.slots[i])
			p.slots[i] = nil
		}
	}
	p.slotsMu.Unlock()
	p.metrics.OnOrphan(p.id)
	logInfo(p.logger, "party", p.id, -1, 0, "party destroyed")
}

func (p *Party) dispatchRun() {
	p.executor.Run(p.runOnce)
}

func (p *Party) runOnce() {
	if p.sync.RunParty(p.pollSlot) {
		p.triggerDestroy()
	}
}

// pollSlot is the PartySync.RunParty callback: it looks up slot's current
// occupant, polls it once inside an installed [Activity], and retires it
// on Ready/Cancelled.
func (p *Party) pollSlot(slot int) bool {
	p.slotsMu.Lock()
	rec := p.slots[slot]
	p.slotsMu.Unlock()
	if rec == nil {
		// A wakeup arrived for a slot that has since been retired (e.g. a
		// stale Waker raced a legitimate completion, or the Party was
		// torn down mid-pass by another slot's retire-time Unref racing
		// to zero first). Spurious wakeups are expected and tolerated.
		logWarn(p.logger, "party", p.id, slot, "spurious wakeup: slot not occupied")
		return false
	}

	p.metrics.OnPoll(p.id, slot)

	ctx := withActivity(p.arena.Context(), &partyActivity{party: p, slot: slot})
	done := rec.participant.poll(ctx)
	if done {
		p.slotsMu.Lock()
		p.slots[slot] = nil
		gen := p.generations[slot]
		p.slotsMu.Unlock()
		releaseSlotRecord(rec)
		p.metrics.OnRetire(p.id, slot)
		logDebug(p.logger, "party", p.id, slot, gen, "participant retired")
		// The ref taken when this slot was reserved (AddParticipantsAndRef)
		// is released here; a participant keeps its Party alive only while
		// it is pending.
		p.unref()
	}
	return done
}

func (p *Party) wakeupSlot(slot int, gen uint32) {
	if !p.slotMatchesGeneration(slot, gen) {
		return
	}
	if p.sync.WakeupSlot(slot) {
		p.dispatchRun()
	}
}

func (p *Party) slotMatchesGeneration(slot int, gen uint32) bool {
	p.slotsMu.Lock()
	defer p.slotsMu.Unlock()
	return p.slots[slot] != nil && p.generations[slot] == gen
}

// partyActivity is the [Activity] installed in a participant's context
// while it is being polled.
type partyActivity struct {
	party *Party
	slot  int
}

func (a *partyActivity) ForceImmediateRepoll() { a.party.sync.ForceImmediateRepoll(a.slot) }
func (a *partyActivity) PartyID() uint64       { return a.party.id }

// spawnOne reserves a single slot for part, wiring it into the Party.
func (p *Party) spawnOne(name string, part pollable) error {
	if p.orphaned.Load() {
		return ErrPartyOrphaned
	}
	var idx int
	acquired, ok := p.sync.AddParticipantsAndRef(1, func(indices []int) {
		idx = indices[0]
		p.slotsMu.Lock()
		p.generations[idx]++
		rec := acquireSlotRecord()
		rec.participant = part
		rec.generation = p.generations[idx]
		rec.name = name
		p.slots[idx] = rec
		p.slotsMu.Unlock()
	})
	if !ok {
		return ErrNoSlotAvailable
	}
	p.metrics.OnSpawn(p.id, idx, name)
	logDebug(p.logger, "party", p.id, idx, p.generations[idx], "participant spawned: "+name)
	if acquired {
		p.dispatchRun()
	}
	return nil
}

// Spawn adds a participant to p: fn is polled repeatedly until it returns
// [Ready] or [Cancelled], at which point onReady (if the result was
// Ready) is invoked with the value and the slot is retired. Spawn cannot
// be a method because Go disallows generic methods.
//
// It returns [ErrPartyOrphaned] if p's last strong ref has already been
// released, or [ErrNoSlotAvailable] if all [MaxParticipants] slots are
// occupied.
func Spawn[T any](p *Party, name string, fn func(context.Context) Poll[T], onReady func(T)) error {
	if fn == nil {
		failFast(errNilPollFn)
	}
	return p.spawnOne(name, &spawnedParticipant[T]{name: name, fn: fn, onReady: onReady})
}

// SpawnWaitable is [Spawn], except the participant's result is also
// exposed as a [Poller], which can itself be polled by a participant on a
// different Party.
func SpawnWaitable[T any](p *Party, name string, fn func(context.Context) Poll[T]) (*Poller[T], error) {
	if fn == nil {
		failFast(errNilPollFn)
	}
	poller := newPoller[T]()
	part := &spawnedParticipant[T]{
		name:     name,
		fn:       fn,
		onReady:  poller.resolve,
		onCancel: poller.cancel,
	}
	if err := p.spawnOne(name, part); err != nil {
		return nil, err
	}
	return poller, nil
}

// BulkSpawner batches multiple participants so they are added to a Party
// in one atomic step: either all of them get slots and one ref each, or
// none do. Go has no destructor to trigger this atomically at scope exit, so
// the commit is explicit: call [BulkSpawner.Close], making BulkSpawner
// an [io.Closer]. A BulkSpawner must not be used concurrently with
// itself.
type BulkSpawner struct {
	party *Party
	items []bulkItem
	done  bool
}

type bulkItem struct {
	name string
	part pollable
}

// NewBulkSpawner creates a BulkSpawner targeting p.
func NewBulkSpawner(p *Party) *BulkSpawner {
	return &BulkSpawner{party: p}
}

// BulkSpawn queues a participant on b; it is not visible to p until
// [BulkSpawner.Close] commits the batch. Like [Spawn], this must be a
// free function rather than a method.
func BulkSpawn[T any](b *BulkSpawner, name string, fn func(context.Context) Poll[T], onReady func(T)) {
	if b.done {
		failFast(errBulkSpawnerClosed)
	}
	if fn == nil {
		failFast(errNilPollFn)
	}
	b.items = append(b.items, bulkItem{name: name, part: &spawnedParticipant[T]{name: name, fn: fn, onReady: onReady}})
}

// Close commits the batch, atomically reserving one slot per queued
// participant and taking one ref per participant. Close is idempotent: calling it
// again after a successful or failed commit is a no-op returning nil.
func (b *BulkSpawner) Close() error {
	if b.done {
		return nil
	}
	b.done = true
	if len(b.items) == 0 {
		return nil
	}
	if b.party.orphaned.Load() {
		return ErrPartyOrphaned
	}

	items := b.items
	acquired, ok := b.party.sync.AddParticipantsAndRef(len(items), func(indices []int) {
		b.party.slotsMu.Lock()
		for k, idx := range indices {
			b.party.generations[idx]++
			rec := acquireSlotRecord()
			rec.participant = items[k].part
			rec.generation = b.party.generations[idx]
			rec.name = items[k].name
			b.party.slots[idx] = rec
		}
		b.party.slotsMu.Unlock()
	})
	if !ok {
		return ErrNoSlotAvailable
	}
	for _, it := range items {
		b.party.metrics.OnSpawn(b.party.id, -1, it.name)
	}
	if acquired {
		b.party.dispatchRun()
	}
	return nil
}

// makeWaker returns a [Waker] for the participant currently occupying
// slot on p. An owning Waker holds a strong ref on p until it is
// [Waker.Close]d; a non-owning one does not. Intended for use from inside
// a poll function, where slot is the participant's own slot (obtained via
// the installed [Activity]); see [WakerFromContext].
func (p *Party) makeWaker(slot int, owning bool) Waker {
	p.slotsMu.Lock()
	gen := p.generations[slot]
	p.slotsMu.Unlock()
	if owning {
		return makeOwningWaker(p, slot, gen)
	}
	return makeNonOwningWaker(p, slot, gen)
}

// WakerFromContext builds a [Waker] for the participant currently being
// polled in ctx (i.e. the caller must be inside a poll function). owning
// selects whether the Waker keeps the Party alive until [Waker.Close].
// It fails fast if ctx carries no current [Activity].
func WakerFromContext(ctx context.Context, owning bool) Waker {
	act, ok := ActivityFromContext(ctx)
	if !ok {
		failFast(WrapError("WakerFromContext", ErrNotPolling))
	}
	pa, ok := act.(*partyActivity)
	if !ok {
		failFast(WrapError("WakerFromContext", ErrNotPolling))
	}
	return pa.party.makeWaker(pa.slot, owning)
}
