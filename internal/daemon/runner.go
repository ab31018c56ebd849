// Package daemon runs the restcue background process: an ordered set of
// components started together and stopped in reverse on shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/restcue/restcue/pkg/logger"
)

var (
	// ErrAlreadyRunning is returned when Run is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when stopping exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultShutdownTimeout bounds the stop phase when Config leaves it zero.
const DefaultShutdownTimeout = 10 * time.Second

// Component is one piece of the daemon. Start must not block; Stop may be
// nil.
type Component struct {
	Name  string
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}

type Config struct {
	ShutdownTimeout time.Duration
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config Config
	log    logger.Logger

	mu      sync.Mutex
	comps   []Component
	running bool
	cancel  context.CancelFunc
}

func New(config Config, l logger.Logger) *Runner {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Runner{config: config, log: l}
}

// Add appends a component. Components start in the order added.
func (r *Runner) Add(c Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comps = append(r.comps, c)
}

// Run starts every component and blocks until ctx is cancelled or
// Shutdown is called, then stops them in reverse order. If a component
// fails to start, the ones already started are stopped and the start
// error is returned.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, r.cancel = context.WithCancel(ctx)
	comps := append([]Component(nil), r.comps...)
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.cancel()
		r.mu.Unlock()
	}()

	for i, c := range comps {
		if c.Start == nil {
			continue
		}
		r.log.Debug("starting %s", c.Name)
		if err := c.Start(ctx); err != nil {
			startErr := fmt.Errorf("start %s: %w", c.Name, err)
			if stopErr := r.stopAll(comps[:i]); stopErr != nil {
				return errors.Join(startErr, stopErr)
			}
			return startErr
		}
	}
	r.log.Info("daemon running")

	<-ctx.Done()
	r.log.Info("daemon shutting down")
	return r.stopAll(comps)
}

// stopAll stops comps in reverse order within the shutdown timeout.
func (r *Runner) stopAll(comps []Component) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(comps) - 1; i >= 0; i-- {
			c := comps[i]
			if c.Stop == nil {
				continue
			}
			if err := c.Stop(ctx); err != nil {
				r.log.Warning("stop %s: %v", c.Name, err)
				errs = append(errs, fmt.Errorf("stop %s: %w", c.Name, err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}

// Shutdown asks a running daemon to stop. Run returns once components
// have stopped.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}
	r.cancel()
	return nil
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
