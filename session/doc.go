// Package session tracks client sessions across transports and dispatches
// their commands against the shared logical instruments.
//
// A Session is one client's connection or link to a logical instrument,
// regardless of transport. The Registry owns all live sessions and guarantees
// that no lock survives its owning session. The Dispatcher is the single
// entry point transports call per request: it sequences the clear-in-progress
// check and the lock admission decision, executes the requested primitive and
// returns a uniform result.
//
// Per-session request serialization is the transport adapter's
// responsibility; the dispatcher tolerates concurrent calls from different
// sessions on the same instrument at arbitrary granularity.
package session
