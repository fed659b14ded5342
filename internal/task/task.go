// Package task provides a small lifecycle manager for the goroutines that
// drive transport accept and read loops.
package task

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-lxi/logger"
)

// Func represents a function that performs one iteration of a task within a
// goroutine managed by the Manager. It should return true to continue running
// the task, or false to stop the goroutine.
type Func func() bool

// CancelFunc is called when a goroutine managed by the Manager exits or is
// canceled. It can be used to release resources associated with the goroutine,
// e.g. closing a network connection to unblock a pending read.
type CancelFunc func()

// Manager manages the lifecycle of goroutines within a transport server.
//
// It uses a context.Context to signal all running goroutines to stop, and a
// sync.WaitGroup to wait for them to terminate.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32
}

// NewManager creates a new Manager with the given context as the parent context and logger.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)
	return mgr
}

// Context returns the context that governs all tasks started by this Manager.
func (mgr *Manager) Context() context.Context {
	return mgr.ctx
}

// Start starts a new goroutine with the given name and task function.
//
// The taskFunc should return true to continue running, or false to stop the goroutine.
func (mgr *Manager) Start(name string, taskFunc Func) {
	mgr.StartWithCancel(name, taskFunc, nil)
}

// StartWithCancel starts a new goroutine with the given name, task function,
// and a cancel function invoked when the goroutine exits.
func (mgr *Manager) StartWithCancel(name string, taskFunc Func, cancelFunc CancelFunc) {
	mgr.logger.Debug("start task", "name", name)
	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer func() {
			if cancelFunc != nil {
				cancelFunc()
			}
			mgr.count.Add(-1)
			mgr.wg.Done()
			mgr.logger.Debug("task terminated", "name", name)
		}()

		for {
			select {
			case <-mgr.ctx.Done():
				return
			default:
			}

			if !taskFunc() {
				return
			}
		}
	}()
}

// Stop signals all running goroutines to stop.
func (mgr *Manager) Stop() {
	mgr.cancel()
}

// Wait blocks until all goroutines started by this Manager have terminated.
func (mgr *Manager) Wait() {
	mgr.wg.Wait()
}

// TaskCount returns the number of currently running tasks.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}
