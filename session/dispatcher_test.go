package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-lxi/instrument"
	"github.com/arloliu/go-lxi/logger"
)

type echoInterpreter struct {
	mu    sync.Mutex
	calls []string
}

func (e *echoInterpreter) Interpret(_ context.Context, inst string, payload []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, inst+":"+string(payload))
	return payload, nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *echoInterpreter) {
	t.Helper()
	interp := &echoInterpreter{}
	reg := NewRegistry(instrument.NewRegistry(logger.GetLogger()), logger.GetLogger())
	return NewDispatcher(reg, interp, logger.GetLogger()), interp
}

func TestDispatcherQueryWrite(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, interp := newTestDispatcher(t)

	s, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)

	res, err := d.Execute(ctx, s, Request{Op: OpQuery, Payload: []byte("*IDN?")})
	require.NoError(err)
	require.Equal([]byte("*IDN?"), res.Data)

	res, err = d.Execute(ctx, s, Request{Op: OpWrite, Payload: []byte("TRIG:SOUR BUS")})
	require.NoError(err)
	require.Nil(res.Data)

	require.Equal([]string{"inst0:*IDN?", "inst0:TRIG:SOUR BUS"}, interp.calls)
}

func TestDispatcherLockAdmission(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, _ := newTestDispatcher(t)

	holder, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)
	other, err := d.Registry().Open(KindHiSLIP, "inst0")
	require.NoError(err)

	// Unlocked instrument admits everyone.
	_, err = d.Execute(ctx, other, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.NoError(err)

	_, err = d.Execute(ctx, holder, Request{Op: OpLock, Mode: instrument.LockExclusive})
	require.NoError(err)

	// Exclusive lock admits only the holder.
	_, err = d.Execute(ctx, holder, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.NoError(err)
	_, err = d.Execute(ctx, other, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.ErrorIs(err, instrument.ErrLockDenied)
	_, err = d.Execute(ctx, other, Request{Op: OpAssertTrigger})
	require.ErrorIs(err, instrument.ErrLockDenied)

	// Status read and clear are always admitted.
	_, err = d.Execute(ctx, other, Request{Op: OpReadStatusByte})
	require.NoError(err)
	_, err = d.Execute(ctx, other, Request{Op: OpClear})
	require.NoError(err)

	// Clear did not release the lock.
	_, err = d.Execute(ctx, other, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.ErrorIs(err, instrument.ErrLockDenied)

	_, err = d.Execute(ctx, holder, Request{Op: OpUnlock})
	require.NoError(err)
	_, err = d.Execute(ctx, other, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.NoError(err)

	_, err = d.Execute(ctx, other, Request{Op: OpUnlock})
	require.ErrorIs(err, instrument.ErrNotLocked)
}

func TestDispatcherSharedLockAdmission(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, _ := newTestDispatcher(t)

	a, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)
	b, err := d.Registry().Open(KindVXI11, "inst0")
	require.NoError(err)
	c, err := d.Registry().Open(KindTelnet, "inst0")
	require.NoError(err)

	_, err = d.Execute(ctx, a, Request{Op: OpLock, Mode: instrument.LockShared, Key: "foo"})
	require.NoError(err)
	_, err = d.Execute(ctx, b, Request{Op: OpLock, Mode: instrument.LockShared, Key: "foo"})
	require.NoError(err)

	// Holders of the shared key are admitted, everyone else is denied.
	_, err = d.Execute(ctx, a, Request{Op: OpWrite, Payload: []byte("W")})
	require.NoError(err)
	_, err = d.Execute(ctx, b, Request{Op: OpWrite, Payload: []byte("W")})
	require.NoError(err)
	_, err = d.Execute(ctx, c, Request{Op: OpWrite, Payload: []byte("W")})
	require.ErrorIs(err, instrument.ErrLockDenied)
}

func TestDispatcherTriggerStatusClear(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, _ := newTestDispatcher(t)

	a, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)
	b, err := d.Registry().Open(KindHiSLIP, "inst0")
	require.NoError(err)

	_, err = d.Execute(ctx, a, Request{Op: OpAssertTrigger})
	require.NoError(err)

	// The trigger latch is visible to every session until cleared.
	res, err := d.Execute(ctx, b, Request{Op: OpReadStatusByte})
	require.NoError(err)
	require.Equal(instrument.StatusTriggered, res.Status&instrument.StatusTriggered)

	_, err = d.Execute(ctx, b, Request{Op: OpClear})
	require.NoError(err)

	res, err = d.Execute(ctx, a, Request{Op: OpReadStatusByte})
	require.NoError(err)
	require.Equal(byte(0), res.Status)
}

func TestDispatcherClearInProgressRejectsMutations(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, _ := newTestDispatcher(t)

	a, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)
	b, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)

	status := a.Instrument().Status()

	clearEntered := make(chan struct{})
	clearRelease := make(chan struct{})
	status.OnClear(func() {
		close(clearEntered)
		<-clearRelease
	})

	go func() {
		_, _ = d.Execute(ctx, a, Request{Op: OpClear})
	}()
	<-clearEntered

	// Mutating operations observe a deterministic abort, not a race.
	_, err = d.Execute(ctx, b, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.ErrorIs(err, instrument.ErrClearInProgress)
	_, err = d.Execute(ctx, b, Request{Op: OpWrite, Payload: []byte("W")})
	require.ErrorIs(err, instrument.ErrClearInProgress)
	_, err = d.Execute(ctx, b, Request{Op: OpAssertTrigger})
	require.ErrorIs(err, instrument.ErrClearInProgress)

	// Status reads stay admitted during the clear.
	_, err = d.Execute(ctx, b, Request{Op: OpReadStatusByte})
	require.NoError(err)

	close(clearRelease)
	require.Eventually(func() bool { return !status.ClearInProgress() }, time.Second, time.Millisecond)

	_, err = d.Execute(ctx, b, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.NoError(err)
}

func TestDispatcherClosedSession(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, _ := newTestDispatcher(t)

	s, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)
	d.Registry().Close(s)

	_, err = d.Execute(ctx, s, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.ErrorIs(err, instrument.ErrSessionClosed)

	_, err = d.Execute(ctx, nil, Request{Op: OpReadStatusByte})
	require.ErrorIs(err, instrument.ErrSessionClosed)
}

func TestDispatcherNoInterpreter(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	reg := NewRegistry(instrument.NewRegistry(logger.GetLogger()), logger.GetLogger())
	d := NewDispatcher(reg, nil, logger.GetLogger())

	s, err := reg.Open(KindSocket, "inst0")
	require.NoError(err)

	_, err = d.Execute(ctx, s, Request{Op: OpQuery, Payload: []byte("Q?")})
	require.ErrorIs(err, ErrNoInterpreter)

	// Primitives still work without an interpreter.
	_, err = d.Execute(ctx, s, Request{Op: OpAssertTrigger})
	require.NoError(err)
	res, err := d.Execute(ctx, s, Request{Op: OpReadStatusByte})
	require.NoError(err)
	require.Equal(instrument.StatusTriggered, res.Status&instrument.StatusTriggered)
}

func TestDispatcherLockTimeoutScenario(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	d, _ := newTestDispatcher(t)

	a, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)
	b, err := d.Registry().Open(KindHiSLIP, "inst0")
	require.NoError(err)

	_, err = d.Execute(ctx, a, Request{Op: OpLock, Mode: instrument.LockExclusive})
	require.NoError(err)

	start := time.Now()
	_, err = d.Execute(ctx, b, Request{Op: OpLock, Mode: instrument.LockExclusive, Timeout: 300 * time.Millisecond})
	require.ErrorIs(err, instrument.ErrLockTimeout)
	require.GreaterOrEqual(time.Since(start), 300*time.Millisecond)

	_, err = d.Execute(ctx, a, Request{Op: OpUnlock})
	require.NoError(err)

	_, err = d.Execute(ctx, b, Request{Op: OpLock, Mode: instrument.LockExclusive})
	require.NoError(err)
}

func TestDispatcherInvalidOperation(t *testing.T) {
	require := require.New(t)

	d, _ := newTestDispatcher(t)

	s, err := d.Registry().Open(KindSocket, "inst0")
	require.NoError(err)

	_, err = d.Execute(context.Background(), s, Request{Op: Operation(99)})
	require.ErrorIs(err, ErrInvalidOperation)
}
