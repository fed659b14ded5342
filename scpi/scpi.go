// Package scpi provides a minimal SCPI command interpreter that plugs into
// the dispatcher as its command-execution collaborator.
//
// The package deliberately does not implement a full SCPI parser; it routes
// admitted command payloads to per-instrument Device implementations.
// Instrument-specific command trees belong in the Device, not here.
package scpi

import (
	"bytes"
	"context"
	"errors"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-lxi/logger"
	"github.com/arloliu/go-lxi/session"
)

// ErrNoDevice indicates a command addressed to an instrument that has no
// registered device.
var ErrNoDevice = errors.New("no device registered for instrument")

// Device executes raw command payloads for one instrument.
type Device interface {
	// Execute runs a single command and returns its response bytes, which are
	// empty for commands that produce no reply.
	Execute(ctx context.Context, cmd []byte) ([]byte, error)
}

// DeviceFunc adapts a function to the Device interface.
type DeviceFunc func(ctx context.Context, cmd []byte) ([]byte, error)

func (f DeviceFunc) Execute(ctx context.Context, cmd []byte) ([]byte, error) {
	return f(ctx, cmd)
}

// Interpreter routes admitted command payloads to per-instrument devices.
// It implements session.Interpreter.
type Interpreter struct {
	devices *xsync.MapOf[string, Device]
	logger  logger.Logger
}

var _ session.Interpreter = (*Interpreter)(nil)

// NewInterpreter creates an empty interpreter.
func NewInterpreter(l logger.Logger) *Interpreter {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Interpreter{
		devices: xsync.NewMapOf[string, Device](),
		logger:  l,
	}
}

// Register binds a device to an instrument name, replacing any previous one.
func (i *Interpreter) Register(instrument string, dev Device) {
	i.devices.Store(instrument, dev)
}

// Interpret executes the payload against the named instrument's device.
func (i *Interpreter) Interpret(ctx context.Context, instrument string, payload []byte) ([]byte, error) {
	dev, ok := i.devices.Load(instrument)
	if !ok {
		i.logger.Warn("command for unregistered device", "instrument", instrument)
		return nil, ErrNoDevice
	}
	return dev.Execute(ctx, bytes.TrimSpace(payload))
}
