// Package lifecycle coordinates startup and shutdown of long-lived subsystems.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator manages startup and shutdown hooks for the application lifecycle.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup
	ready      bool
	readyMu    sync.RWMutex

	drainMu sync.Mutex
	drain   []func()
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a function to run concurrently during startup.
func (c *Coordinator) OnStartup(fn func()) {
	c.startupWg.Go(fn)
}

// OnShutdown registers a function to run concurrently during shutdown.
// Shutdown hooks should block on <-c.Context().Done() before executing cleanup.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

// OnDrain registers a function that runs at the start of Shutdown, before the
// context is cancelled. Shutdown hooks waiting on the context therefore run
// only after every drain hook has returned.
func (c *Coordinator) OnDrain(fn func()) {
	c.drainMu.Lock()
	c.drain = append(c.drain, fn)
	c.drainMu.Unlock()
}

// Go runs fn in the background for the lifetime of the coordinator.
// fn must return once ctx is cancelled; Shutdown waits for it.
func (c *Coordinator) Go(fn func(ctx context.Context)) {
	c.shutdownWg.Go(func() {
		fn(c.ctx)
	})
}

// Ready returns true after all startup hooks have completed.
func (c *Coordinator) Ready() bool {
	c.readyMu.RLock()
	defer c.readyMu.RUnlock()
	return c.ready
}

// WaitForStartup blocks until all startup hooks have completed and sets the ready flag.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.readyMu.Lock()
	c.ready = true
	c.readyMu.Unlock()
}

// Shutdown runs drain hooks, cancels the context, and waits for shutdown
// hooks to complete, all within the given timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		c.runDrain()
		c.cancel()
		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		c.cancel()
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

func (c *Coordinator) runDrain() {
	c.drainMu.Lock()
	hooks := c.drain
	c.drain = nil
	c.drainMu.Unlock()

	var wg sync.WaitGroup
	for _, fn := range hooks {
		wg.Go(fn)
	}
	wg.Wait()
}
