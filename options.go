package party

// partyOptions holds configuration resolved at [New] time.
type partyOptions struct {
	logger   Logger
	metrics  Metrics
	sync     func(uint8) PartySync
	arena    Arena
	executor Executor
}

// PartyOption configures a Party at construction. See [WithLogger],
// [WithMetrics], [WithSyncKind] and [WithArena].
type PartyOption interface {
	applyParty(*partyOptions) error
}

type partyOptionImpl struct {
	applyPartyFunc func(*partyOptions) error
}

func (o *partyOptionImpl) applyParty(opts *partyOptions) error {
	return o.applyPartyFunc(opts)
}

// WithLogger attaches a [Logger] to the Party. Absent this option, a
// Party defers to the package-level logger installed via
// [SetStructuredLogger] (a no-op logger if none was installed).
func WithLogger(logger Logger) PartyOption {
	return &partyOptionImpl{func(opts *partyOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics attaches a [Metrics] sink. Absent this option, a Party uses
// [NoopMetrics].
func WithMetrics(m Metrics) PartyOption {
	return &partyOptionImpl{func(opts *partyOptions) error {
		opts.metrics = m
		return nil
	}}
}

// SyncKind selects a [PartySync] implementation. Both must pass the same
// property suite.
type SyncKind int

const (
	// SyncAtomic selects the lock-free CAS-loop implementation. This is
	// the default.
	SyncAtomic SyncKind = iota
	// SyncMutex selects the mutex-guarded fallback implementation.
	SyncMutex
)

// WithSyncKind selects which [PartySync] implementation backs the Party.
func WithSyncKind(kind SyncKind) PartyOption {
	return &partyOptionImpl{func(opts *partyOptions) error {
		switch kind {
		case SyncMutex:
			opts.sync = newMutexSync
		default:
			opts.sync = newAtomicSync
		}
		return nil
	}}
}

// WithArena attaches an [Arena] participants can look up via
// [Party.Arena]. Absent this option, a Party gets an empty [contextArena].
func WithArena(a Arena) PartyOption {
	return &partyOptionImpl{func(opts *partyOptions) error {
		opts.arena = a
		return nil
	}}
}

// resolvePartyOptions applies opts over a Party's defaults.
func resolvePartyOptions(executor Executor, opts []PartyOption) (*partyOptions, error) {
	cfg := &partyOptions{
		logger:   getGlobalLogger(),
		metrics:  NoopMetrics{},
		sync:     newAtomicSync,
		arena:    newContextArena(),
		executor: executor,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyParty(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
