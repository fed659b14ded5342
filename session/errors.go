package session

import "errors"

var (
	// ErrSessionNotFound indicates a lookup for a session id that is not
	// registered, either never opened or already closed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidOperation indicates a request with an operation code the
	// dispatcher does not know.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNoInterpreter indicates a Query or Write request on a dispatcher
	// constructed without a command interpreter.
	ErrNoInterpreter = errors.New("no command interpreter configured")
)
