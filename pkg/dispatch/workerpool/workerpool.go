package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
	"github.com/nanoserve/nanoserve/pkg/common/validation"
	"github.com/nanoserve/nanoserve/pkg/dispatch/queue"
)

// Config holds configuration options for creating a Pool.
type Config[T any] struct {
	// Workers is the number of worker goroutines to start.
	Workers int

	// Queue is the dispatch queue the workers consume from.
	Queue *queue.Queue[T]

	// Handle processes a single item. It runs on a worker goroutine; a
	// returned error or a panic is logged and contained to that item.
	Handle func(ctx context.Context, item T) error

	// Release runs after Handle for every popped item, even when Handle
	// fails or panics. Use it to return the item's resources (close a
	// connection, return a buffer). Optional.
	Release func(item T)

	// OnWorkerStart runs once per worker slot before its goroutine is
	// started. An error skips that slot. Optional.
	OnWorkerStart func(workerID int) error

	// Logger is used for worker lifecycle and failure logging.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Stats is a snapshot of pool activity counters.
type Stats struct {
	// Started is the number of worker goroutines that actually started.
	Started int

	// Handled is the total number of items processed, including failures.
	Handled int64

	// Failed is the number of items whose handler returned an error or
	// panicked.
	Failed int64

	// Active is the number of workers currently inside a handler.
	Active int64
}

// Pool is a fixed-size worker pool draining a dispatch queue.
type Pool[T any] struct {
	cfg Config[T]
	log *slog.Logger

	started int
	wg      sync.WaitGroup

	handled atomic.Int64
	failed  atomic.Int64
	active  atomic.Int64

	startOnce    sync.Once
	shutdownOnce sync.Once
}

// New validates the configuration and returns an unstarted pool.
func New[T any](cfg Config[T]) (*Pool[T], error) {
	if err := validation.ValidatePositive("workerpool", "workers", cfg.Workers); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil("workerpool", "queue", cfg.Queue); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil("workerpool", "handle", cfg.Handle); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pool[T]{cfg: cfg, log: log}, nil
}

// Start launches the worker goroutines. Slots whose OnWorkerStart hook
// fails are skipped; Start returns an error only when no worker at all
// could be started. Start is idempotent.
func (p *Pool[T]) Start(ctx context.Context) error {
	var err error
	p.startOnce.Do(func() {
		for i := 0; i < p.cfg.Workers; i++ {
			if p.cfg.OnWorkerStart != nil {
				if hookErr := p.cfg.OnWorkerStart(i); hookErr != nil {
					p.log.Warn("worker slot skipped", "worker", i, "error", hookErr)
					continue
				}
			}
			p.started++
			p.wg.Add(1)
			go p.run(ctx, i)
		}

		if p.started == 0 {
			err = fmt.Errorf("worker pool: no workers could be started (wanted %d)", p.cfg.Workers)
			return
		}
		if p.started < p.cfg.Workers {
			p.log.Warn("worker pool running degraded",
				"started", p.started, "wanted", p.cfg.Workers)
		}
		p.log.Info("worker pool started", "workers", p.started)
	})
	return err
}

// run is the main loop for a worker. It exits when the queue reports end
// of queue, which only happens after a shutdown has drained the backlog.
func (p *Pool[T]) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		item, err := p.cfg.Queue.Pop()
		if err != nil {
			if errors.Is(err, nserrors.ErrEndOfQueue) {
				p.log.Debug("worker exiting", "worker", id)
				return
			}
			p.log.Error("worker pop failed", "worker", id, "error", err)
			return
		}
		p.handleItem(ctx, id, item)
	}
}

// handleItem processes a single item with panic containment. Release is
// registered before the handler runs so it fires even on panic.
func (p *Pool[T]) handleItem(ctx context.Context, id int, item T) {
	start := time.Now()
	p.active.Add(1)

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.log.Error("worker handler panicked",
				"worker", id,
				"panic", r,
				"stack", string(debug.Stack()))
		}
		p.active.Add(-1)
		p.handled.Add(1)
		if p.cfg.Release != nil {
			p.cfg.Release(item)
		}
	}()

	if err := p.cfg.Handle(ctx, item); err != nil {
		p.failed.Add(1)
		p.log.Warn("worker handler failed",
			"worker", id,
			"duration", time.Since(start),
			"error", err)
	}
}

// Shutdown closes the queue and blocks until every worker has drained the
// backlog and exited. Idempotent.
func (p *Pool[T]) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.cfg.Queue.Shutdown()
		p.wg.Wait()
		p.log.Info("worker pool stopped",
			"handled", p.handled.Load(), "failed", p.failed.Load())
	})
}

// Size returns the number of workers that actually started.
func (p *Pool[T]) Size() int {
	return p.started
}

// Stats returns a snapshot of the pool's activity counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Started: p.started,
		Handled: p.handled.Load(),
		Failed:  p.failed.Load(),
		Active:  p.active.Load(),
	}
}
