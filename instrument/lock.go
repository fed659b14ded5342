package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-lxi/internal/pool"
	"github.com/arloliu/go-lxi/internal/queue"
	"github.com/arloliu/go-lxi/logger"
)

// LockMode selects between the two lock flavors of a logical instrument.
type LockMode int

const (
	// LockShared is a multi-holder lock gated by a caller-supplied key.
	// Holders must agree on the key.
	LockShared LockMode = iota + 1

	// LockExclusive is single-holder mutual exclusion over the instrument.
	LockExclusive
)

// String returns the lock mode name.
func (m LockMode) String() string {
	switch m {
	case LockShared:
		return "shared"
	case LockExclusive:
		return "exclusive"
	default:
		return "none"
	}
}

type lockState int

const (
	stateFree lockState = iota
	stateShared
	stateExclusive
)

// LockInfo is a snapshot of the current lock state, for diagnostics and tests.
type LockInfo struct {
	// Mode is LockShared, LockExclusive, or zero when the instrument is free.
	Mode LockMode
	// Key is the shared lock key; empty unless Mode is LockShared.
	Key string
	// Holders is the number of sessions holding the lock.
	Holders int
	// Waiters is the number of sessions queued for the lock.
	Waiters int
}

// waiter is one queued lock request. All fields except the channels are
// guarded by the LockManager mutex.
type waiter struct {
	session  uuid.UUID
	mode     LockMode
	key      string
	granted  bool
	grantCh  chan struct{}
	cancelCh chan struct{}
}

// LockManager arbitrates exclusive and keyed-shared lock access to one
// logical instrument, independent of transport.
//
// Waiters blocked on an incompatible lock state are queued in arrival order.
// On every release the queue is scanned front to back and each now-compatible
// waiter is granted inside the same critical section: among compatible
// waiters earlier ones win, and all of them are served before any fresh
// request that races with the release.
type LockManager struct {
	mu        sync.Mutex
	state     lockState
	key       string
	holders   map[uuid.UUID]struct{}
	exclusive uuid.UUID
	waiters   *queue.Queue[*waiter]
	logger    logger.Logger
}

// NewLockManager creates a LockManager in the free state.
func NewLockManager(l logger.Logger) *LockManager {
	if l == nil {
		l = logger.GetLogger()
	}
	return &LockManager{
		holders: make(map[uuid.UUID]struct{}),
		waiters: queue.New[*waiter](4),
		logger:  l,
	}
}

// Acquire requests a lock for the session.
//
// A timeout of zero (or negative) performs a single non-blocking attempt and
// fails with ErrLockDenied when the current state is incompatible. With a
// positive timeout the caller blocks until the lock is granted, the timeout
// elapses (ErrLockTimeout), or ctx is canceled.
//
// A session that already holds any lock on the instrument is denied with
// ErrAlreadyLocked; lock requests are not re-entrant.
//
// The key argument is only meaningful for LockShared.
func (m *LockManager) Acquire(ctx context.Context, session uuid.UUID, mode LockMode, key string, timeout time.Duration) error {
	m.mu.Lock()
	if m.holdsAny(session) {
		m.mu.Unlock()
		return ErrAlreadyLocked
	}

	if m.tryGrant(session, mode, key) {
		m.mu.Unlock()
		m.logger.Debug("lock granted", "session", session, "mode", mode.String(), "key", key)
		return nil
	}

	if timeout <= 0 {
		m.mu.Unlock()
		return ErrLockDenied
	}

	w := &waiter{
		session:  session,
		mode:     mode,
		key:      key,
		grantCh:  make(chan struct{}),
		cancelCh: make(chan struct{}),
	}
	m.waiters.Enqueue(w)
	m.mu.Unlock()

	timer := pool.GetTimer(timeout)
	defer pool.PutTimer(timer)

	select {
	case <-w.grantCh:
		m.logger.Debug("queued lock granted", "session", session, "mode", mode.String(), "key", key)
		return nil

	case <-w.cancelCh:
		return ErrSessionClosed

	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		if w.granted {
			// The grant raced with the timer; the lock is held.
			return nil
		}
		m.removeWaiter(w)
		return ErrLockTimeout

	case <-ctx.Done():
		m.mu.Lock()
		defer m.mu.Unlock()
		if w.granted {
			// A canceled waiter must not end up holding the lock.
			m.releaseLocked(session)
			m.grantWaiters()
		} else {
			m.removeWaiter(w)
		}
		return ctx.Err()
	}
}

// Release removes the session's lock. A shared lock transitions to free when
// the holder set empties. Returns ErrNotLocked if the session holds no lock
// on this instrument.
func (m *LockManager) Release(session uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.releaseLocked(session) {
		return ErrNotLocked
	}

	m.logger.Debug("lock released", "session", session)
	m.grantWaiters()
	return nil
}

// ForceRelease releases any lock held by the session and cancels any lock
// wait it has pending. It never errors; it is invoked by the session registry
// on disconnect and must leave no trace of the session behind.
func (m *LockManager) ForceRelease(session uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := m.releaseLocked(session)

	for m.waiters.Remove(func(w *waiter) bool {
		if w.session != session || w.granted {
			return false
		}
		close(w.cancelCh)
		return true
	}) {
	}

	if released {
		m.logger.Debug("lock force released", "session", session)
		m.grantWaiters()
	}
}

// HasAccess reports whether the session currently holds a lock in any mode.
func (m *LockManager) HasAccess(session uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.holdsAny(session)
}

// Admit decides whether a mutating command from the session may proceed:
// permitted when the instrument is free or when the session is a holder of
// the active lock, denied otherwise.
func (m *LockManager) Admit(session uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selfHeal()

	switch m.state {
	case stateFree:
		return nil
	case stateExclusive:
		if m.exclusive == session {
			return nil
		}
		return ErrLockDenied
	case stateShared:
		if _, ok := m.holders[session]; ok {
			return nil
		}
		return ErrLockDenied
	default:
		return ErrLockDenied
	}
}

// HolderMode returns the mode and key of the lock held by the session, or
// false when the session holds no lock on this instrument.
func (m *LockManager) HolderMode(session uuid.UUID) (LockMode, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateExclusive:
		if m.exclusive == session {
			return LockExclusive, "", true
		}
	case stateShared:
		if _, ok := m.holders[session]; ok {
			return LockShared, m.key, true
		}
	case stateFree:
	}
	return 0, "", false
}

// Info returns a snapshot of the current lock state.
func (m *LockManager) Info() LockInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := LockInfo{Waiters: m.waiters.Length()}
	switch m.state {
	case stateShared:
		info.Mode = LockShared
		info.Key = m.key
		info.Holders = len(m.holders)
	case stateExclusive:
		info.Mode = LockExclusive
		info.Holders = 1
	case stateFree:
	}
	return info
}

// holdsAny reports whether the session holds the lock in any mode.
// Must be called with m.mu held.
func (m *LockManager) holdsAny(session uuid.UUID) bool {
	switch m.state {
	case stateExclusive:
		return m.exclusive == session
	case stateShared:
		_, ok := m.holders[session]
		return ok
	default:
		return false
	}
}

// tryGrant attempts a non-blocking grant and mutates the lock state on
// success. Must be called with m.mu held.
func (m *LockManager) tryGrant(session uuid.UUID, mode LockMode, key string) bool {
	m.selfHeal()

	switch m.state {
	case stateFree:
		if mode == LockExclusive {
			m.state = stateExclusive
			m.exclusive = session
		} else {
			m.state = stateShared
			m.key = key
			m.holders[session] = struct{}{}
		}
		return true

	case stateShared:
		if mode == LockShared && key == m.key {
			m.holders[session] = struct{}{}
			return true
		}
		return false

	case stateExclusive:
		return false

	default:
		return false
	}
}

// releaseLocked removes the session from the current lock state. Returns
// false when the session holds no lock. Must be called with m.mu held.
func (m *LockManager) releaseLocked(session uuid.UUID) bool {
	switch m.state {
	case stateExclusive:
		if m.exclusive != session {
			return false
		}
		m.state = stateFree
		m.exclusive = uuid.Nil
		return true

	case stateShared:
		if _, ok := m.holders[session]; !ok {
			return false
		}
		delete(m.holders, session)
		if len(m.holders) == 0 {
			m.state = stateFree
			m.key = ""
		}
		return true

	default:
		return false
	}
}

// grantWaiters scans the waiter queue in arrival order and grants every
// waiter the current state is compatible with. Must be called with m.mu held.
func (m *LockManager) grantWaiters() {
	m.waiters.Scan(func(w *waiter) bool {
		if !m.tryGrant(w.session, w.mode, w.key) {
			return false
		}
		w.granted = true
		close(w.grantCh)
		return true
	})
}

// removeWaiter drops a waiter from the queue after a timeout or cancellation.
// Must be called with m.mu held.
func (m *LockManager) removeWaiter(target *waiter) {
	m.waiters.Remove(func(w *waiter) bool { return w == target })
}

// selfHeal repairs an invariant violation instead of propagating it: a shared
// state with no holders is treated as free. Must be called with m.mu held.
func (m *LockManager) selfHeal() {
	if m.state == stateShared && len(m.holders) == 0 {
		m.logger.Error("shared lock state with empty holder set, treating as free", "key", m.key)
		m.state = stateFree
		m.key = ""
	}
}
