package session

import (
	"context"
	"time"

	"github.com/arloliu/go-lxi/instrument"
	"github.com/arloliu/go-lxi/logger"
)

// Operation enumerates the primitives a transport can request on behalf of a
// session.
type Operation int

const (
	// OpQuery forwards a command payload to the interpreter and returns its
	// response bytes.
	OpQuery Operation = iota + 1
	// OpWrite forwards a command payload to the interpreter without expecting
	// response data.
	OpWrite
	// OpLock acquires an exclusive or keyed-shared lock on the instrument.
	OpLock
	// OpUnlock releases the session's lock.
	OpUnlock
	// OpAssertTrigger latches the trigger bit in the status register.
	OpAssertTrigger
	// OpClear aborts in-flight state and resets all latched event bits.
	OpClear
	// OpReadStatusByte reads the latched status byte.
	OpReadStatusByte
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpQuery:
		return "query"
	case OpWrite:
		return "write"
	case OpLock:
		return "lock"
	case OpUnlock:
		return "unlock"
	case OpAssertTrigger:
		return "trigger"
	case OpClear:
		return "clear"
	case OpReadStatusByte:
		return "read_stb"
	default:
		return "invalid"
	}
}

// Request describes one operation. Payload is used by Query/Write; Mode, Key
// and Timeout are used by Lock.
type Request struct {
	Op      Operation
	Payload []byte
	Mode    instrument.LockMode
	Key     string
	Timeout time.Duration
}

// Result is the uniform outcome of an operation. Data carries the interpreter
// response for Query; Status carries the status byte for ReadStatusByte.
type Result struct {
	Data   []byte
	Status byte
}

// Interpreter executes instrument-specific command payloads. It is invoked
// only after the dispatcher has admitted a Query or Write request.
type Interpreter interface {
	// Interpret executes the payload against the named instrument and returns
	// the response bytes, which are empty for commands that produce no reply.
	Interpret(ctx context.Context, instrument string, payload []byte) ([]byte, error)
}

// InterpreterFunc adapts a function to the Interpreter interface.
type InterpreterFunc func(ctx context.Context, instrument string, payload []byte) ([]byte, error)

func (f InterpreterFunc) Interpret(ctx context.Context, instrument string, payload []byte) ([]byte, error) {
	return f(ctx, instrument, payload)
}

// Dispatcher is the entry point transports call per request. It decides, for
// every incoming command, whether the session may proceed, must block, or
// must fail, and keeps the instrument's shared status state consistent across
// concurrently connected sessions.
type Dispatcher struct {
	registry *Registry
	interp   Interpreter
	logger   logger.Logger
}

// NewDispatcher creates a dispatcher over the given session registry.
// The interpreter may be nil for servers that only use the lock, trigger,
// clear and status primitives.
func NewDispatcher(registry *Registry, interp Interpreter, l logger.Logger) *Dispatcher {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Dispatcher{
		registry: registry,
		interp:   interp,
		logger:   l,
	}
}

// Registry returns the dispatcher's session registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Execute runs one operation on behalf of the session.
//
// Admission rules per operation:
//   - Query/Write/AssertTrigger are rejected with ErrClearInProgress while a
//     device clear runs, then admitted iff the instrument is free or the
//     session holds the active lock.
//   - Clear and ReadStatusByte are always admitted; Clear does not alter or
//     release the lock.
//   - Lock and Unlock delegate to the instrument's lock manager.
//
// Every returned error is scoped to this request; none are fatal to the
// server.
func (d *Dispatcher) Execute(ctx context.Context, s *Session, req Request) (Result, error) {
	if s == nil || s.Closed() {
		return Result{}, instrument.ErrSessionClosed
	}

	inst := s.Instrument()

	switch req.Op {
	case OpLock:
		return Result{}, inst.Lock().Acquire(ctx, s.ID(), req.Mode, req.Key, req.Timeout)

	case OpUnlock:
		return Result{}, inst.Lock().Release(s.ID())

	case OpClear:
		// Clearing must be possible even under contention, mirroring a
		// physical front-panel clear.
		inst.Status().Clear()
		return Result{}, nil

	case OpReadStatusByte:
		return Result{Status: inst.Status().ReadStatusByte()}, nil

	case OpAssertTrigger:
		if err := d.admit(s); err != nil {
			return Result{}, err
		}
		inst.Status().AssertTrigger()
		return Result{}, nil

	case OpQuery, OpWrite:
		if err := d.admit(s); err != nil {
			return Result{}, err
		}
		if d.interp == nil {
			return Result{}, ErrNoInterpreter
		}
		data, err := d.interp.Interpret(ctx, inst.Name(), req.Payload)
		if err != nil {
			return Result{}, err
		}
		if req.Op == OpWrite {
			return Result{}, nil
		}
		return Result{Data: data}, nil

	default:
		d.logger.Warn("invalid operation", "session", s.ID(), "op", int(req.Op))
		return Result{}, ErrInvalidOperation
	}
}

// admit applies the shared admission rule for mutating commands: no device
// clear in progress, and a compatible lock state.
func (d *Dispatcher) admit(s *Session) error {
	if s.Instrument().Status().ClearInProgress() {
		return instrument.ErrClearInProgress
	}
	return s.Instrument().Lock().Admit(s.ID())
}
