// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Sync error taxonomy. Recovery decisions are made with errors.Is against
// these sentinels, never by matching message text.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSyncInProgress indicates another sync holds a lock for a requested identity.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrMalformedResponse indicates a non-success status or a response missing required keys.
	ErrMalformedResponse = errors.New("malformed export response")

	// ErrUnexpectedUser indicates the export contained a user that was not requested.
	ErrUnexpectedUser = errors.New("unexpected user in export response")

	// ErrStaleExport indicates the primary returned data older than local state.
	ErrStaleExport = errors.New("export older than local state")

	// ErrNonContiguousClock indicates a gap or duplicate between local and
	// exported clock ranges. Triggers destructive local recovery.
	ErrNonContiguousClock = errors.New("non-contiguous clock range")

	// ErrForeignKeyViolation indicates a referential-integrity failure during
	// bulk insert. Triggers destructive local recovery.
	ErrForeignKeyViolation = errors.New("referential integrity violation")

	// ErrFetchExhausted indicates every fallback host failed to serve a content fetch.
	ErrFetchExhausted = errors.New("all fallback hosts failed")
)
