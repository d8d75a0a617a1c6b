// Package lifecycle coordinates startup and shutdown across subsystems.
// Components register hooks with a Coordinator; readiness is reported
// only once every startup hook has finished, and shutdown cancels a
// shared context that hooks block on before cleaning up.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator tracks startup and shutdown hooks and owns the context
// that signals shutdown to long-running subsystems.
type Coordinator struct {
	ctx      context.Context
	cancel   context.CancelFunc
	starting sync.WaitGroup
	stopping sync.WaitGroup
	ready    atomic.Bool
}

// New creates a Coordinator with a cancellable root context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{ctx: ctx, cancel: cancel}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn concurrently as part of startup.
func (c *Coordinator) OnStartup(fn func()) {
	c.starting.Go(fn)
}

// OnShutdown runs fn concurrently for the life of the process. Hooks
// must block on <-c.Context().Done() before performing cleanup.
func (c *Coordinator) OnShutdown(fn func()) {
	c.stopping.Go(fn)
}

// Ready reports whether all startup hooks have completed.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup blocks until every startup hook has finished, then
// marks the coordinator ready.
func (c *Coordinator) WaitForStartup() {
	c.starting.Wait()
	c.ready.Store(true)
}

// Shutdown cancels the context and waits up to timeout for all
// shutdown hooks to drain.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	drained := make(chan struct{})
	go func() {
		c.stopping.Wait()
		close(drained)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-drained:
		return nil
	case <-timer.C:
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
