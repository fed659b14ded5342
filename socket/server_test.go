package socket

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-lxi/instrument"
	"github.com/arloliu/go-lxi/logger"
	"github.com/arloliu/go-lxi/scpi"
	"github.com/arloliu/go-lxi/session"
)

type testClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newTestClient(t *testing.T, addr string) *testClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testClient) send(t *testing.T, line string) {
	t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (c *testClient) recv(t *testing.T) string {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.reader.ReadString('\n')
	require.NoError(t, err)
	return line[:len(line)-1]
}

func startTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	interp := scpi.NewInterpreter(logger.GetLogger())
	interp.Register("inst0", scpi.NewSimpleDevice())

	registry := session.NewRegistry(instrument.NewRegistry(logger.GetLogger()), logger.GetLogger())
	dispatcher := session.NewDispatcher(registry, interp, logger.GetLogger())

	cfg, err := NewServerConfig("127.0.0.1", 0, opts...)
	require.NoError(t, err)

	server, err := NewServer(dispatcher, cfg)
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(server.Stop)

	return server
}

func TestServerQuery(t *testing.T) {
	require := require.New(t)

	server := startTestServer(t)
	client := newTestClient(t, server.Addr().String())

	client.send(t, "*IDN?")
	require.Equal(scpi.DefaultIDN, client.recv(t))

	client.send(t, "QUERY?")
	require.Equal("RESPONSE", client.recv(t))

	require.Equal(uint64(2), server.Metrics().CmdRecvCount.Load())
}

func TestServerTriggerStatusClear(t *testing.T) {
	require := require.New(t)

	server := startTestServer(t)
	a := newTestClient(t, server.Addr().String())
	b := newTestClient(t, server.Addr().String())

	a.send(t, "*STB?")
	require.Equal("0", a.recv(t))

	a.send(t, "*TRG")
	a.send(t, "*STB?")
	status, err := strconv.Atoi(a.recv(t))
	require.NoError(err)
	require.NotZero(byte(status) & instrument.StatusTriggered)

	// The trigger latch is shared across connections.
	b.send(t, "*STB?")
	status, err = strconv.Atoi(b.recv(t))
	require.NoError(err)
	require.NotZero(byte(status) & instrument.StatusTriggered)

	b.send(t, "*CLS")
	b.send(t, "*STB?")
	require.Equal("0", b.recv(t))
}

func TestServerLockContention(t *testing.T) {
	require := require.New(t)

	server := startTestServer(t)
	a := newTestClient(t, server.Addr().String())
	b := newTestClient(t, server.Addr().String())

	a.send(t, "SYST:LOCK:REQ?")
	require.Equal("1", a.recv(t))

	b.send(t, "SYST:LOCK:REQ?")
	require.Equal("0", b.recv(t))

	// Query path is denied for the non-holder but open for the holder.
	a.send(t, "*IDN?")
	require.Equal(scpi.DefaultIDN, a.recv(t))
	b.send(t, "*STB?")
	require.Equal("0", b.recv(t))

	a.send(t, "SYST:LOCK:REL")
	b.send(t, "SYST:LOCK:REQ?")
	require.Equal("1", b.recv(t))
}

func TestServerSharedLock(t *testing.T) {
	require := require.New(t)

	server := startTestServer(t)
	a := newTestClient(t, server.Addr().String())
	b := newTestClient(t, server.Addr().String())
	c := newTestClient(t, server.Addr().String())

	a.send(t, "SYST:LOCK:SHAR? foo")
	require.Equal("1", a.recv(t))
	b.send(t, "SYST:LOCK:SHAR? foo")
	require.Equal("1", b.recv(t))
	c.send(t, "SYST:LOCK:SHAR? bar")
	require.Equal("0", c.recv(t))
}

func TestServerDisconnectReleasesLock(t *testing.T) {
	require := require.New(t)

	server := startTestServer(t)
	a := newTestClient(t, server.Addr().String())
	b := newTestClient(t, server.Addr().String())

	a.send(t, "SYST:LOCK:REQ?")
	require.Equal("1", a.recv(t))
	b.send(t, "SYST:LOCK:REQ?")
	require.Equal("0", b.recv(t))

	// Session teardown is asynchronous to the TCP close.
	require.NoError(a.conn.Close())
	require.Eventually(func() bool {
		b.send(t, "SYST:LOCK:REQ?")
		return b.recv(t) == "1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerTelnetPrompt(t *testing.T) {
	require := require.New(t)

	interp := scpi.NewInterpreter(logger.GetLogger())
	interp.Register("inst0", scpi.NewSimpleDevice())
	registry := session.NewRegistry(instrument.NewRegistry(logger.GetLogger()), logger.GetLogger())
	dispatcher := session.NewDispatcher(registry, interp, logger.GetLogger())

	cfg, err := NewTelnetConfig("127.0.0.1", 0)
	require.NoError(err)
	server, err := NewServer(dispatcher, cfg)
	require.NoError(err)
	require.NoError(server.Start(context.Background()))
	t.Cleanup(server.Stop)

	client := newTestClient(t, server.Addr().String())

	prompt := make([]byte, len("SCPI> "))
	_ = client.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(client.reader, prompt)
	require.NoError(err)
	require.Equal("SCPI> ", string(prompt))

	client.send(t, "*IDN?")
	require.Equal(scpi.DefaultIDN, client.recv(t))
}

func TestServerUnknownInstrumentClosesConn(t *testing.T) {
	require := require.New(t)

	registry := session.NewRegistry(instrument.NewFixedRegistry(logger.GetLogger(), "inst0"), logger.GetLogger())
	dispatcher := session.NewDispatcher(registry, nil, logger.GetLogger())

	cfg, err := NewServerConfig("127.0.0.1", 0, WithInstrument("inst9"))
	require.NoError(err)
	server, err := NewServer(dispatcher, cfg)
	require.NoError(err)
	require.NoError(server.Start(context.Background()))
	t.Cleanup(server.Stop)

	client := newTestClient(t, server.Addr().String())
	_ = client.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = client.reader.ReadByte()
	require.Error(err) // connection closed by server
}
