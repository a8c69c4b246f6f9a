// Package pricesync refreshes the price cache from a market-data provider.
// Outbound requests are serialised through one worker with a minimum delay
// between calls, and only one sync may run at a time.
package pricesync

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
)

// ErrDispatcherClosed is returned by Submit after Close
var ErrDispatcherClosed = errors.New("dispatcher closed")

type task struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// Dispatcher runs submitted tasks one at a time on a single worker,
// waiting at least minDelay between task starts.
type Dispatcher struct {
	tasks   chan task
	done    chan struct{}
	limiter *rate.Limiter
	logger  *common.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts the worker. A zero minDelay disables spacing.
func NewDispatcher(minDelay time.Duration, logger *common.Logger) *Dispatcher {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	d := &Dispatcher{
		tasks:   make(chan task),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run()
	}()

	d.logger.Debug().Dur("min_delay", minDelay).Msg("Price dispatcher started")
	return d
}

func (d *Dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case t := <-d.tasks:
			t.result <- d.execute(t)
		}
	}
}

// execute waits for the limiter, then runs the task with panic recovery
func (d *Dispatcher) execute(t task) (err error) {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	if err := d.limiter.Wait(t.ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in price dispatcher task")
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.fn(t.ctx)
}

// Submit queues fn and blocks until it has run, returning its error.
// Returns early if ctx is cancelled or the dispatcher is closed.
func (d *Dispatcher) Submit(ctx context.Context, fn func(context.Context) error) error {
	t := task{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case d.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrDispatcherClosed
	}

	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after the running task finishes. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}
