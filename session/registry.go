package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-lxi/instrument"
	"github.com/arloliu/go-lxi/logger"
)

// Registry tracks the live sessions of a server across all transports.
//
// It owns the session-to-instrument binding and enforces the invariant that
// no lock survives its owning session: Close force-releases any lock the
// session holds and cancels any lock wait it has pending.
type Registry struct {
	instruments *instrument.Registry
	sessions    *xsync.MapOf[uuid.UUID, *Session]
	logger      logger.Logger
}

// NewRegistry creates a session registry over the given instrument registry.
func NewRegistry(instruments *instrument.Registry, l logger.Logger) *Registry {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Registry{
		instruments: instruments,
		sessions:    xsync.NewMapOf[uuid.UUID, *Session](),
		logger:      l,
	}
}

// Instruments returns the underlying instrument registry.
func (reg *Registry) Instruments() *instrument.Registry {
	return reg.instruments
}

// Open creates a session bound to the named logical instrument, creating the
// instrument on first reference. On a strict instrument registry an unknown
// name fails with instrument.ErrUnknownInstrument.
func (reg *Registry) Open(kind Kind, instrumentName string) (*Session, error) {
	inst, err := reg.instruments.GetOrCreate(instrumentName)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.New(),
		kind:      kind,
		inst:      inst,
		createdAt: time.Now(),
	}
	reg.sessions.Store(s.id, s)

	reg.logger.Debug("session opened", "session", s.id, "kind", kind, "instrument", instrumentName)
	return s, nil
}

// Close destroys the session, force-releasing any lock it holds. Closing an
// already-closed session is a no-op; transports may report disconnect more
// than once.
func (reg *Registry) Close(s *Session) {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.inst.Lock().ForceRelease(s.id)
	reg.sessions.Delete(s.id)

	reg.logger.Debug("session closed", "session", s.id, "kind", s.kind, "instrument", s.inst.Name())
}

// Lookup returns the live session with the given id.
func (reg *Registry) Lookup(id uuid.UUID) (*Session, error) {
	s, ok := reg.sessions.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Count returns the number of live sessions.
func (reg *Registry) Count() int {
	return reg.sessions.Size()
}
