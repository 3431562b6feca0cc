package party

import "context"

// activityKey is the context key installed while a participant's poll
// function runs. Go goroutines have no stable per-thread identity to hang
// a thread-local "current activity" pointer off of the way gRPC's Party
// does, so this core threads it through context.Context instead.
type activityKey struct{}

// Activity is the subset of a running Party a participant's poll function
// may reach into while it runs, retrieved via [ActivityFromContext]. It is
// the Go substitute for gRPC's thread-local `Activity::current()`.
type Activity interface {
	// ForceImmediateRepoll marks the currently-polling participant to be
	// repolled on the next pass of the run loop, without waiting for an
	// external wakeup. Calling it from outside a poll function is a
	// contract violation (fails fast).
	ForceImmediateRepoll()

	// PartyID returns the identity of the Party currently running this
	// participant, for logging and diagnostics.
	PartyID() uint64
}

// withActivity installs act as the current activity for ctx.
func withActivity(ctx context.Context, act Activity) context.Context {
	return context.WithValue(ctx, activityKey{}, act)
}

// ActivityFromContext retrieves the [Activity] installed by the Party
// currently polling the participant that owns ctx. It returns nil, false
// outside of a poll call.
func ActivityFromContext(ctx context.Context) (Activity, bool) {
	act, ok := ctx.Value(activityKey{}).(Activity)
	return act, ok
}

// ForceImmediateRepoll is a convenience wrapper over
// [ActivityFromContext] and [Activity.ForceImmediateRepoll]. It fails
// fast if ctx carries no current activity: calling it outside of a poll
// is a contract violation.
func ForceImmediateRepoll(ctx context.Context) {
	act, ok := ActivityFromContext(ctx)
	if !ok {
		failFast(WrapError("ForceImmediateRepoll", ErrNotPolling))
	}
	act.ForceImmediateRepoll()
}
