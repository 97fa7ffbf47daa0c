package core

// gate.go implements the readiness gate for external capabilities.
//
// Capabilities (the table parser and the spreadsheet encoder) are loaded
// concurrently exactly once. The gate becomes ready only when every load
// succeeds. A single failure is terminal: the gate never becomes ready and
// every registered failure callback runs once.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Capability is an external dependency that must be loaded before use.
type Capability interface {
	// Name identifies the capability in logs and errors.
	Name() string

	// Loaded reports whether the capability is already usable, in which
	// case Load is skipped.
	Loaded() bool

	// Load makes the capability usable.
	Load(ctx context.Context) error
}

// Gate tracks the readiness of a fixed set of capabilities.
type Gate struct {
	caps    []Capability
	timeout time.Duration

	startOnce sync.Once
	done      chan struct{}
	ready     atomic.Bool

	mu        sync.Mutex
	err       error
	onFailure []func(error)
}

// NewGate creates a gate over caps. A positive timeout bounds the whole load.
func NewGate(timeout time.Duration, caps ...Capability) *Gate {
	return &Gate{
		caps:    caps,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Start begins loading in the background. Calls after the first are no-ops.
func (g *Gate) Start(ctx context.Context) {
	g.startOnce.Do(func() {
		go g.load(ctx)
	})
}

func (g *Gate) load(ctx context.Context) {
	defer close(g.done)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range g.caps {
		if c.Loaded() {
			slog.Debug("capability already present", "capability", c.Name())
			continue
		}
		eg.Go(func() error {
			return loadOne(egCtx, c)
		})
	}

	if err := eg.Wait(); err != nil {
		slog.Error("capability load failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		g.fail(err)
		return
	}

	g.ready.Store(true)
	slog.Info("capabilities ready", "count", len(g.caps), "duration_ms", time.Since(start).Milliseconds())
}

// loadOne runs c.Load but returns as soon as ctx ends, even if Load ignores it.
func loadOne(ctx context.Context, c Capability) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Load(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("load %s: %w", c.Name(), err)
		}
		slog.Debug("capability loaded", "capability", c.Name())
		return nil
	case <-ctx.Done():
		return fmt.Errorf("load %s: %w", c.Name(), ctx.Err())
	}
}

func (g *Gate) fail(err error) {
	g.mu.Lock()
	g.err = err
	callbacks := g.onFailure
	g.onFailure = nil
	g.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}

// Ready reports whether every capability loaded successfully.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// Err returns the load failure, or nil if loading succeeded or is still running.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Done is closed when loading finishes, successfully or not.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until loading finishes and returns its error.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnFailure registers fn to run once if loading fails. If loading has
// already failed, fn runs immediately.
func (g *Gate) OnFailure(fn func(error)) {
	g.mu.Lock()
	if g.err != nil {
		err := g.err
		g.mu.Unlock()
		fn(err)
		return
	}
	g.onFailure = append(g.onFailure, fn)
	g.mu.Unlock()
}
