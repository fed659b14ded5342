// Package socket implements the raw-socket transport adapter: a line-framed
// SCPI server in the style of the conventional port-5025 instrument socket,
// with an optional telnet-flavored mode (prompt, port 5024, no option
// negotiation).
//
// Each accepted connection becomes one session. The adapter translates wire
// lines into dispatcher operations and renders results back as terminated
// lines; all arbitration semantics live in the session and instrument
// packages. Commands on one connection are handled strictly in order, which
// provides the per-session serialization the core requires.
package socket
