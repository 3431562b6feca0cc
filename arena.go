package party

import "context"

// Arena is the per-Party typed side-channel a Party consumes, modeled on
// gRPC's arena->SetContext<T>()/GetContext<T>(). Go has no arena
// allocator equivalent worth building here; what a Party actually needs
// from one is typed key/value storage that outlives any single
// participant, which context.Context already provides.
type Arena interface {
	// Context returns the arena's backing context, carrying whatever
	// values have been attached via [SetArenaValue].
	Context() context.Context
}

// contextArena is the default [Arena], a thin context.Context wrapper.
type contextArena struct {
	ctx context.Context
}

// newContextArena creates an empty Arena, or one seeded from a base
// context if one is given.
func newContextArena(base ...context.Context) *contextArena {
	if len(base) > 0 && base[0] != nil {
		return &contextArena{ctx: base[0]}
	}
	return &contextArena{ctx: context.Background()}
}

func (a *contextArena) Context() context.Context { return a.ctx }

// arenaValueKey namespaces arena values by their static type, so distinct
// T's set on the same Arena never collide even without an explicit string
// key (mirroring SetContext<T>'s type-keyed slot in the original).
type arenaValueKey[T any] struct{}

// SetArenaValue returns an [Arena] with v attached, retrievable later with
// [ArenaValue]. Since Go disallows generic methods, this is a free
// function rather than an Arena method: gRPC's arena->SetContext<T>(v)
// becomes party.SetArenaValue[T](arena, v).
func SetArenaValue[T any](a Arena, v T) Arena {
	return newContextArena(context.WithValue(a.Context(), arenaValueKey[T]{}, v))
}

// ArenaValue retrieves the value of type T previously attached to a with
// [SetArenaValue]. ok is false if none was ever set.
func ArenaValue[T any](a Arena) (T, bool) {
	v, ok := a.Context().Value(arenaValueKey[T]{}).(T)
	return v, ok
}
