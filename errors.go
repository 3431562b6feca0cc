// Package party's error taxonomy:
//
//	Contract violation        -> fail-fast (PanicError, recovered and re-panicked by callers that choose to)
//	Resource exhaustion       -> ErrNoSlotAvailable
//	Participant-internal      -> not an error for the core; delivered via on-done
//	Waker-after-orphan        -> silent no-op, observable via Waker.IsUnwakeable
package party

import (
	"errors"
	"fmt"
)

// ErrPartyOrphaned is returned by [Spawn], [SpawnWaitable] and
// [BulkSpawner.Close] when the Party's last strong ref has already been
// released. In-flight participants keep running; no new ones may join.
var ErrPartyOrphaned = errors.New("party: spawn on orphaned party")

// ErrNoSlotAvailable is returned when all 16 participant slots of a Party
// are occupied. There is no queueing: the caller decides whether to retry,
// spawn on a different Party, or fail the request upstream.
var ErrNoSlotAvailable = errors.New("party: no participant slot available")

// ErrNotPolling is the cause wrapped by a [PanicError] when
// [ForceImmediateRepoll] is called from a context that carries no current
// [Activity]: it is only meaningful from inside a poll function.
var ErrNotPolling = errors.New("party: not currently polling")

// errNilPollFn and errBulkSpawnerClosed back fail-fast contract
// violations raised from party.go: Spawning a nil poll function, and
// using a BulkSpawner after it has been Closed. errNilExecutor is the
// cause of the error [New] returns when given a nil Executor.
var (
	errNilExecutor       = errors.New("party: nil Executor")
	errNilPollFn         = errors.New("party: nil poll function")
	errBulkSpawnerClosed = errors.New("party: BulkSpawner already closed")
)

// ErrOverflow is the cause wrapped by a [PanicError] when IncrementRefCount
// would overflow the packed word's 8-bit ref_count field. This is a
// programming error (too many strong refs outstanding), not a runtime
// condition callers should plan to recover from.
var ErrOverflow = errors.New("party: ref_count overflow")

// PanicError wraps a contract violation the core chooses to fail fast on
// instead of returning an error the caller could plausibly ignore.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("party: contract violation: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type,
// enabling [errors.Is] and [errors.As] through the cause chain.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// failFast panics with a PanicError wrapping cause. Used for contract
// violations that must abort rather than surface as a returned error:
// spawning with a nil promise, IncrementRefCount overflow, calling
// ForceImmediateRepoll outside of a poll, and similar programmer errors.
func failFast(cause error) {
	panic(PanicError{Value: cause})
}

// WrapError wraps an error with a message and optional cause chain.
//
// The result satisfies errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
