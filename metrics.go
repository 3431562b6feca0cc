package party

import "sync/atomic"

// Metrics is the opaque hook sink a Party reports lifecycle events to.
// This is deliberately not a hot-path percentile aggregator: a real
// percentile pipeline belongs outside the core as an external
// collaborator that consumes these hooks, not something the core
// computes itself. Absent an explicit [WithMetrics] option, a Party
// uses [NoopMetrics].
type Metrics interface {
	// OnSpawn fires when a participant is given a slot. slot is -1 for
	// participants added via a [BulkSpawner] (their individual slot
	// indices are not meaningful outside the batch).
	OnSpawn(partyID uint64, slot int, name string)
	// OnPoll fires immediately before a participant's poll function runs.
	OnPoll(partyID uint64, slot int)
	// OnRetire fires after a participant returns Ready or Cancelled and
	// its slot is freed.
	OnRetire(partyID uint64, slot int)
	// OnOrphan fires once, when a Party's last strong ref is released.
	OnOrphan(partyID uint64)
}

// NoopMetrics discards every event.
type NoopMetrics struct{}

func (NoopMetrics) OnSpawn(uint64, int, string) {}
func (NoopMetrics) OnPoll(uint64, int)          {}
func (NoopMetrics) OnRetire(uint64, int)        {}
func (NoopMetrics) OnOrphan(uint64)             {}

// CountingMetrics is a reference [Metrics] implementation keeping simple
// atomic counters, grounded on the same atomic-counter idiom as
// TPSCounter but without its percentile machinery. Useful for tests and
// small programs that want basic visibility without wiring an external
// metrics backend.
type CountingMetrics struct {
	Spawns  atomic.Uint64
	Polls   atomic.Uint64
	Retires atomic.Uint64
	Orphans atomic.Uint64
}

func (m *CountingMetrics) OnSpawn(uint64, int, string) { m.Spawns.Add(1) }
func (m *CountingMetrics) OnPoll(uint64, int)          { m.Polls.Add(1) }
func (m *CountingMetrics) OnRetire(uint64, int)        { m.Retires.Add(1) }
func (m *CountingMetrics) OnOrphan(uint64)             { m.Orphans.Add(1) }
