package session

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-lxi/instrument"
)

// Kind identifies the transport a session arrived over.
type Kind string

const (
	KindSocket Kind = "socket"
	KindTelnet Kind = "telnet"
	KindVXI11  Kind = "vxi11"
	KindHiSLIP Kind = "hislip"
	KindHTTP   Kind = "http"
)

// Session is one client's link to a logical instrument, regardless of
// transport. Sessions are created by Registry.Open and destroyed by
// Registry.Close; a closed session always leaves its instrument unlocked.
type Session struct {
	id        uuid.UUID
	kind      Kind
	inst      *instrument.Instrument
	createdAt time.Time
	closed    atomic.Bool
}

// ID returns the unique session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Kind returns the transport kind the session arrived over.
func (s *Session) Kind() Kind {
	return s.kind
}

// Instrument returns the logical instrument the session is bound to.
func (s *Session) Instrument() *instrument.Instrument {
	return s.inst
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// LockState returns the session's current lock ownership on its instrument:
// the mode and shared key, or false when the session holds no lock.
func (s *Session) LockState() (instrument.LockMode, string, bool) {
	return s.inst.Lock().HolderMode(s.id)
}
