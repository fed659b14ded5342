package instrument

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-lxi/logger"
)

// Registry holds the process-wide set of logical instruments by name.
//
// It is an explicitly owned object, not ambient global state, so tests and
// embedders can construct isolated instances.
//
// A registry created with a fixed name set is strict: referencing an
// unregistered name fails with ErrUnknownInstrument. A registry created
// without names grows on first reference, which matches the VXI-11 behavior
// of multiple named sub-devices per server.
type Registry struct {
	instruments *xsync.MapOf[string, *Instrument]
	strict      bool
	logger      logger.Logger
}

// NewRegistry creates a registry that creates instruments on first reference.
func NewRegistry(l logger.Logger) *Registry {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Registry{
		instruments: xsync.NewMapOf[string, *Instrument](),
		logger:      l,
	}
}

// NewFixedRegistry creates a strict registry pre-populated with the given
// instrument names. Any other name fails with ErrUnknownInstrument.
func NewFixedRegistry(l logger.Logger, names ...string) *Registry {
	reg := NewRegistry(l)
	reg.strict = true
	for _, name := range names {
		reg.instruments.Store(name, New(name, reg.logger))
	}
	return reg
}

// Get returns the named instrument, or ErrUnknownInstrument if it does not
// exist. It never creates.
func (reg *Registry) Get(name string) (*Instrument, error) {
	inst, ok := reg.instruments.Load(name)
	if !ok {
		return nil, ErrUnknownInstrument
	}
	return inst, nil
}

// GetOrCreate returns the named instrument, creating it on first reference.
// On a strict registry an unregistered name fails with ErrUnknownInstrument.
func (reg *Registry) GetOrCreate(name string) (*Instrument, error) {
	if reg.strict {
		return reg.Get(name)
	}

	inst, loaded := reg.instruments.LoadOrCompute(name, func() *Instrument {
		return New(name, reg.logger)
	})
	if !loaded {
		reg.logger.Info("instrument created", "instrument", name)
	}
	return inst, nil
}

// Names returns the names of all registered instruments.
func (reg *Registry) Names() []string {
	names := make([]string, 0, reg.instruments.Size())
	reg.instruments.Range(func(name string, _ *Instrument) bool {
		names = append(names, name)
		return true
	})
	return names
}
