package types

import "errors"

// Sentinel errors surfaced across the ingestion and query boundary, declared
// as package-level vars in the teacher's style (modules/transactionpool.go's
// ErrDuplicateTransactionSet and friends).
var (
	// ErrInvalidDelta is returned when a GraphDelta references malformed ids
	// or otherwise fails structural validation (spec.md §4.1).
	ErrInvalidDelta = errors.New("invalid delta")

	// ErrTenantMismatch is returned when a delta's entities do not all agree
	// on the same tenant (spec.md §4.1).
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrUnknownID is returned when a delta references a wallet, item or
	// collection the Graph Store has never seen and the operation requires
	// it to already exist.
	ErrUnknownID = errors.New("unknown id")

	// ErrConsistencyConflict is returned when two concurrent deltas target
	// the same (wallet, item) pair with different effects; retryable by the
	// caller against the returned snapshot version (spec.md §4.1).
	ErrConsistencyConflict = errors.New("consistency conflict")

	// ErrTimeout is returned when an ingestion call cannot acquire the
	// tenant's writer lock within its deadline. No partial state is applied.
	ErrTimeout = errors.New("timeout acquiring tenant writer lock")

	// ErrQuotaExceeded is returned when an ingestion call would push a
	// tenant past one of its configured quotas (spec.md §4.8).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrInvariantViolation marks a fatal, tenant-scoped integrity failure.
	// No component in this module returns it, and nothing purges a tenant's
	// Loop Cache or schedules a full rescan in response to it.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrUnknownTenant is returned by the Persistent Trade Service's
	// Subscribe when no Event Bus is wired. The Tenant Isolation Layer
	// creates a tenant's container on first use and does not return it.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrCacheMiss is returned by the Loop Cache when a fingerprint has no
	// fresh entry and no builder was supplied.
	ErrCacheMiss = errors.New("loop not cached")

	// ErrBuilderFailed wraps a failed single-flight builder invocation. It
	// does not poison the cache slot; the next caller may retry.
	ErrBuilderFailed = errors.New("loop builder failed")
)
