package socket

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-lxi/instrument"
	"github.com/arloliu/go-lxi/internal/task"
	"github.com/arloliu/go-lxi/logger"
	"github.com/arloliu/go-lxi/session"
)

// Server is a line-framed SCPI socket server. Each accepted connection is
// bound to one session on the configured logical instrument and its commands
// are translated into dispatcher operations.
type Server struct {
	cfg        *ServerConfig
	dispatcher *session.Dispatcher
	listener   net.Listener
	taskMgr    *task.Manager
	conns      *xsync.MapOf[string, net.Conn]
	metrics    ServerMetrics
	logger     logger.Logger
}

// NewServer creates a socket server over the given dispatcher.
func NewServer(dispatcher *session.Dispatcher, cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		conns:      xsync.NewMapOf[string, net.Conn](),
		logger:     cfg.logger.With("transport", string(cfg.kind)),
	}, nil
}

// Start binds the listener and starts the accept loop. It returns once the
// server is listening; use Stop to shut it down.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.host, strconv.Itoa(s.cfg.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.taskMgr = task.NewManager(ctx, s.logger)

	s.logger.Info("server listening", "addr", listener.Addr().String(), "instrument", s.cfg.instrument)

	s.taskMgr.Start("acceptLoop", s.acceptLoop)
	return nil
}

// Stop closes the listener and all open connections, then waits for the
// connection handlers to terminate.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.conns.Range(func(_ string, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
	if s.taskMgr != nil {
		s.taskMgr.Stop()
		s.taskMgr.Wait()
	}
}

// Addr returns the listener address, useful when the server was started on
// port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Metrics returns the server's metrics counters.
func (s *Server) Metrics() *ServerMetrics {
	return &s.metrics
}

// acceptLoop accepts one connection per iteration. Returning false stops the
// task; the listener being closed is the shutdown signal.
func (s *Server) acceptLoop() bool {
	conn, err := s.listener.Accept()
	if err != nil {
		s.logger.Debug("accept loop terminated", "error", err)
		return false
	}

	s.metrics.incConnAcceptCount()
	remote := conn.RemoteAddr().String()
	s.conns.Store(remote, conn)

	s.taskMgr.StartWithCancel("conn-"+remote, s.connHandler(conn), func() {
		_ = conn.Close()
		s.conns.Delete(remote)
		s.metrics.decConnActiveGauge()
	})

	return true
}

// connHandler returns a task function that serves one connection for its
// whole lifetime, then reports the disconnect to the session registry.
func (s *Server) connHandler(conn net.Conn) task.Func {
	return func() bool {
		defer s.logger.Debug("connection closed", "remote", conn.RemoteAddr().String())

		sess, err := s.dispatcher.Registry().Open(s.cfg.kind, s.cfg.instrument)
		if err != nil {
			s.logger.Error("failed to open session", "remote", conn.RemoteAddr().String(), "error", err)
			return false
		}
		// Disconnect must always release the session, and with it any lock.
		defer s.dispatcher.Registry().Close(sess)

		s.logger.Debug("connection open",
			"remote", conn.RemoteAddr().String(),
			"session", sess.ID(),
			"instrument", s.cfg.instrument,
		)

		if s.cfg.prompt != "" {
			if _, err := conn.Write([]byte(s.cfg.prompt)); err != nil {
				return false
			}
		}

		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 4096), s.cfg.readBufferSize)

		ctx := s.taskMgr.Context()
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" {
				continue
			}
			s.metrics.incCmdRecvCount()

			resp, hasResp := s.dispatchLine(ctx, sess, line)
			if hasResp {
				if _, err := conn.Write(append([]byte(resp), '\n')); err != nil {
					return false
				}
			}
			if s.cfg.prompt != "" {
				if _, err := conn.Write([]byte(s.cfg.prompt)); err != nil {
					return false
				}
			}
		}

		if err := scanner.Err(); err != nil {
			s.logger.Debug("connection read ended", "remote", conn.RemoteAddr().String(), "error", err)
		}
		return false
	}
}

// dispatchLine translates one wire line into a dispatcher operation and
// renders the result. The raw socket has no out-of-band error channel, so
// failed commands produce no response; lock requests report success as "1"
// and failure as "0" in the SYSTem:LOCK convention.
func (s *Server) dispatchLine(ctx context.Context, sess *session.Session, line string) (string, bool) {
	upper := strings.ToUpper(line)

	switch {
	case upper == "*TRG":
		s.execute(ctx, sess, session.Request{Op: session.OpAssertTrigger})
		return "", false

	case upper == "*CLS":
		s.execute(ctx, sess, session.Request{Op: session.OpClear})
		return "", false

	case upper == "*STB?":
		res, err := s.execute(ctx, sess, session.Request{Op: session.OpReadStatusByte})
		if err != nil {
			return "", false
		}
		return strconv.Itoa(int(res.Status)), true

	case upper == "SYST:LOCK:REQ?" || upper == "SYSTEM:LOCK:REQUEST?":
		_, err := s.execute(ctx, sess, session.Request{
			Op:      session.OpLock,
			Mode:    instrument.LockExclusive,
			Timeout: s.cfg.lockTimeout,
		})
		return lockReply(err), true

	case strings.HasPrefix(upper, "SYST:LOCK:SHAR? ") || strings.HasPrefix(upper, "SYSTEM:LOCK:SHARED? "):
		_, key, _ := strings.Cut(line, "? ")
		_, err := s.execute(ctx, sess, session.Request{
			Op:      session.OpLock,
			Mode:    instrument.LockShared,
			Key:     strings.TrimSpace(key),
			Timeout: s.cfg.lockTimeout,
		})
		return lockReply(err), true

	case upper == "SYST:LOCK:REL" || upper == "SYSTEM:LOCK:RELEASE":
		s.execute(ctx, sess, session.Request{Op: session.OpUnlock})
		return "", false

	case strings.HasSuffix(line, "?"):
		res, err := s.execute(ctx, sess, session.Request{Op: session.OpQuery, Payload: []byte(line)})
		if err != nil {
			return "", false
		}
		return string(res.Data), true

	default:
		s.execute(ctx, sess, session.Request{Op: session.OpWrite, Payload: []byte(line)})
		return "", false
	}
}

// execute runs one dispatcher operation and accounts the outcome.
func (s *Server) execute(ctx context.Context, sess *session.Session, req session.Request) (session.Result, error) {
	res, err := s.dispatcher.Execute(ctx, sess, req)
	if err != nil {
		s.metrics.incCmdErrCount()
		s.logger.Debug("command rejected", "session", sess.ID(), "op", req.Op.String(), "error", err)
	}
	return res, err
}

func lockReply(err error) string {
	if err != nil {
		return "0"
	}
	return "1"
}
