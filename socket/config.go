package socket

import (
	"errors"
	"time"

	"github.com/arloliu/go-lxi/logger"
	"github.com/arloliu/go-lxi/session"
)

// Standard instrument control ports.
const (
	// StandardPort is the conventional raw SCPI socket port.
	StandardPort = 5025
	// TelnetStandardPort is the conventional SCPI telnet port.
	TelnetStandardPort = 5024
)

// ErrConfigNil indicates that a nil ServerConfig was provided.
var ErrConfigNil = errors.New("server config is nil")

// ServerConfig represents the configuration parameters for a raw-socket SCPI
// server.
type ServerConfig struct {
	// host specifies the local address to bind, e.g. "0.0.0.0".
	host string

	// port specifies the TCP port to listen on.
	port int

	// instrument is the logical instrument name sessions on this server bind
	// to. Defaults to "inst0".
	instrument string

	// kind is the transport kind recorded on sessions. Defaults to
	// session.KindSocket; NewTelnetConfig sets session.KindTelnet.
	kind session.Kind

	// prompt, when non-empty, is written after connect and after every
	// processed line. Used by the telnet-flavored mode.
	prompt string

	// readBufferSize bounds the length of one command line.
	// Defaults to 16 KiB.
	readBufferSize int

	// lockTimeout is the wait budget applied to lock requests arriving over
	// this transport. Defaults to 0 (single non-blocking attempt).
	lockTimeout time.Duration

	// logger provides a logger instance for transport events and errors.
	logger logger.Logger
}

// NewServerConfig creates a raw-socket server configuration with the given
// bind host, port, and optional functional options.
func NewServerConfig(host string, port int, opts ...Option) (*ServerConfig, error) {
	cfg := &ServerConfig{
		host:           host,
		port:           port,
		instrument:     "inst0",
		kind:           session.KindSocket,
		readBufferSize: 16 * 1024,
		logger:         logger.GetLogger(),
	}

	if port < 0 || port > 65535 {
		return nil, errors.New("port is out of range [0, 65535]")
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewTelnetConfig creates a telnet-flavored server configuration: the telnet
// transport kind and a command prompt. Port is typically TelnetStandardPort.
func NewTelnetConfig(host string, port int, opts ...Option) (*ServerConfig, error) {
	base := []Option{withKind(session.KindTelnet), WithPrompt("SCPI> ")}
	return NewServerConfig(host, port, append(base, opts...)...)
}

// Option represents a functional option for configuring a ServerConfig.
type Option interface {
	apply(*ServerConfig) error
}

type optFunc struct {
	name      string
	applyFunc func(*ServerConfig) error
}

func (o *optFunc) apply(cfg *ServerConfig) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*ServerConfig) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithInstrument sets the logical instrument name sessions on this server
// bind to. The default is "inst0".
func WithInstrument(name string) Option {
	return newOptFunc("WithInstrument", func(cfg *ServerConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if name == "" {
			return errors.New("instrument name is empty")
		}
		cfg.instrument = name

		return nil
	})
}

// WithPrompt sets a prompt written after connect and after every processed
// line. An empty prompt disables prompting.
func WithPrompt(prompt string) Option {
	return newOptFunc("WithPrompt", func(cfg *ServerConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.prompt = prompt

		return nil
	})
}

// WithReadBufferSize bounds the length of one command line in bytes.
// The default is 16 KiB.
func WithReadBufferSize(size int) Option {
	return newOptFunc("WithReadBufferSize", func(cfg *ServerConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if size < 64 {
			return errors.New("read buffer size is too small, minimum is 64 bytes")
		}
		cfg.readBufferSize = size

		return nil
	})
}

// WithLockTimeout sets the wait budget applied to lock requests arriving over
// this transport. The default is 0, a single non-blocking attempt.
func WithLockTimeout(timeout time.Duration) Option {
	return newOptFunc("WithLockTimeout", func(cfg *ServerConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if timeout < 0 {
			return errors.New("lock timeout is negative")
		}
		cfg.lockTimeout = timeout

		return nil
	})
}

// WithLogger sets the logger for transport events and errors.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *ServerConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

func withKind(kind session.Kind) Option {
	return newOptFunc("withKind", func(cfg *ServerConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.kind = kind

		return nil
	})
}
