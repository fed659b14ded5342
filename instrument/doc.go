// Package instrument implements the shared state of a logical instrument: its
// latched status register and the exclusive/shared lock arbitration that every
// transport (raw socket, telnet, VXI-11, HiSLIP, HTTP) must honor identically.
//
// A logical instrument is the addressable device (e.g. "inst0") exposed over
// all transports. Each instrument owns exactly one StatusRegister and one
// LockManager; different instruments are fully independent.
//
// The LockManager is the single synchronization point per instrument: all lock
// state transitions happen under one instrument-scoped critical section, and
// waiters blocked on an incompatible lock are queued and served in
// first-come-first-served order.
package instrument
