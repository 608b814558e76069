// Package jobs runs the engine's maintenance tasks on a small in-memory
// worker pool. Failed runs are retried with a fixed delay up to a cap.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a named unit of maintenance work, such as the overdue-invoice
// sweep.
type Task struct {
	Name     string
	Run      func(ctx context.Context) error
	attempts int
}

// Config tunes the runner. Zero values fall back to one worker, three
// retries and a ten second delay.
type Config struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// Runner owns the worker pool. Tasks reaching the runner after Stop are
// dropped with an error.
type Runner struct {
	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan Task
	tickers []*time.Ticker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewRunner builds a runner with the given pool settings.
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
		tasks:      make(chan Task, cfg.Workers*4),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.running = true
	r.logger.Info("task runner started", zap.Int("workers", r.workers))
}

// Stop halts the tickers, cancels in-flight tasks and waits for the
// workers to drain.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	for _, t := range r.tickers {
		t.Stop()
	}
	r.cancel()
	r.running = false
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// Submit queues a task for a single execution.
func (r *Runner) Submit(task Task) error {
	r.mu.Lock()
	ctx := r.ctx
	running := r.running
	r.mu.Unlock()

	if !running {
		return fmt.Errorf("task runner not started")
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("task runner stopped: %w", ctx.Err())
	case r.tasks <- task:
		return nil
	}
}

// Every submits the task now and then again on each tick until the runner
// stops. Start must have been called first.
func (r *Runner) Every(interval time.Duration, task Task) error {
	if err := r.Submit(task); err != nil {
		return err
	}

	r.mu.Lock()
	ticker := time.NewTicker(interval)
	r.tickers = append(r.tickers, ticker)
	ctx := r.ctx
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Submit(task); err != nil {
					return
				}
			}
		}
	}()
	return nil
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case task := <-r.tasks:
			if err := task.Run(r.ctx); err != nil {
				r.retry(task, err)
			}
		}
	}
}

func (r *Runner) retry(task Task, err error) {
	task.attempts++
	if task.attempts > r.maxRetries {
		r.logger.Error("task exhausted retries",
			zap.String("task", task.Name),
			zap.Int("attempts", task.attempts),
			zap.Error(err))
		return
	}
	r.logger.Warn("task failed, retrying",
		zap.String("task", task.Name),
		zap.Int("attempt", task.attempts),
		zap.Error(err))

	r.wg.Add(1)
	go func(t Task) {
		defer r.wg.Done()
		timer := time.NewTimer(r.retryDelay)
		defer timer.Stop()
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
			select {
			case <-r.ctx.Done():
			case r.tasks <- t:
			}
		}
	}(task)
}
