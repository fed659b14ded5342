package instrument

import (
	"time"

	"github.com/arloliu/go-lxi/logger"
)

// Instrument is one logical instrument: a stable name, its latched status
// register and its lock manager. Instruments are created at startup or on
// first reference and live for the process lifetime.
type Instrument struct {
	name      string
	status    *StatusRegister
	lock      *LockManager
	createdAt time.Time
}

// New creates a logical instrument with the given name.
func New(name string, l logger.Logger) *Instrument {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Instrument{
		name:      name,
		status:    NewStatusRegister(),
		lock:      NewLockManager(l.With("instrument", name)),
		createdAt: time.Now(),
	}
}

// Name returns the instrument name, e.g. "inst0".
func (inst *Instrument) Name() string {
	return inst.name
}

// Status returns the instrument's status register.
func (inst *Instrument) Status() *StatusRegister {
	return inst.status
}

// Lock returns the instrument's lock manager.
func (inst *Instrument) Lock() *LockManager {
	return inst.lock
}

// CreatedAt returns the instrument creation time.
func (inst *Instrument) CreatedAt() time.Time {
	return inst.createdAt
}
