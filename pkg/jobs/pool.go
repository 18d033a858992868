// Package jobs runs best-effort background work on a fixed worker pool.
// Notification fan-out is the only tenant today; anything that must not be
// lost belongs in Postgres, not here.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolStopped and ErrPoolFull are returned by Enqueue. A full pool sheds
// the task instead of blocking the request path.
var (
	ErrPoolStopped = errors.New("jobs: pool not running")
	ErrPoolFull    = errors.New("jobs: pool buffer full")
)

// Task is one unit of background work.
type Task struct {
	ID       string
	Kind     string
	Payload  interface{}
	Enqueued time.Time

	attempt int
}

// Handler processes a task. A non-nil error triggers a retry until the
// attempt budget is spent.
type Handler func(context.Context, Task) error

// PoolConfig tunes the worker pool.
type PoolConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Pool dispatches tasks to a bounded set of workers.
type Pool struct {
	name    string
	handler Handler
	cfg     PoolConfig
	logger  *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewPool builds a pool around the handler. Zero config values get safe
// defaults.
func NewPool(name string, handler Handler, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("pool", name)),
		tasks:   make(chan Task, cfg.BufferSize),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.running = true
	p.logger.Info("worker pool started", zap.Int("workers", p.cfg.Workers))
}

// Stop cancels the workers and waits for them to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Enqueue offers a task to the pool without blocking.
func (p *Pool) Enqueue(task Task) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return ErrPoolStopped
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			if err := p.handler(p.ctx, task); err != nil {
				p.retry(task, err)
			}
		}
	}
}

func (p *Pool) retry(task Task, err error) {
	task.attempt++
	if task.attempt > p.cfg.MaxRetries {
		p.logger.Error("task dropped after retries",
			zap.String("task_id", task.ID),
			zap.String("kind", task.Kind),
			zap.Error(err))
		return
	}
	p.logger.Warn("task failed, scheduling retry",
		zap.String("task_id", task.ID),
		zap.String("kind", task.Kind),
		zap.Int("attempt", task.attempt),
		zap.Error(err))

	time.AfterFunc(p.cfg.RetryDelay, func() {
		select {
		case <-p.ctx.Done():
		case p.tasks <- task:
		default:
			p.logger.Error("task dropped, retry buffer full", zap.String("task_id", task.ID))
		}
	})
}
