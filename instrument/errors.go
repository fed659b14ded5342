package instrument

import "errors"

var (
	// ErrLockDenied indicates that the instrument lock is held incompatibly by
	// another session. The caller may retry or report the failure to its client.
	ErrLockDenied = errors.New("lock denied, instrument locked by another session")

	// ErrLockTimeout indicates that a blocking lock request did not become
	// grantable within the caller's timeout budget.
	ErrLockTimeout = errors.New("lock request timed out")

	// ErrAlreadyLocked indicates that the session already holds a lock on the
	// instrument. Lock requests are not re-entrant; the held lock must be
	// released first.
	ErrAlreadyLocked = errors.New("session already holds a lock on the instrument")

	// ErrNotLocked indicates an unlock request from a session that holds no
	// lock on the instrument.
	ErrNotLocked = errors.New("session holds no lock on the instrument")
)

var (
	// ErrClearInProgress indicates that a device clear is in progress and the
	// requested operation was rejected. The condition is transient; the caller
	// should retry shortly.
	ErrClearInProgress = errors.New("device clear in progress")

	// ErrUnknownInstrument indicates that the addressed logical instrument is
	// not registered. This is an addressing error fatal to the request, not to
	// the server.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrSessionClosed indicates that the session was closed while an operation
	// was pending or was already closed when the operation was issued.
	ErrSessionClosed = errors.New("session closed")
)
