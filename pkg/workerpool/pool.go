// Package workerpool provides a bounded goroutine pool used to parallelize
// per-schema migration work across tenants while each schema's sequence
// stays on a single worker.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of work; for migrations, one schema end-to-end.
type Task struct {
	ID string
	Fn func(ctx context.Context) error
}

// Pool runs tasks on a fixed number of workers.
type Pool struct {
	name      string
	workers   int
	taskQueue chan Task
	logger    *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}

	completed uint64
	failed    uint64
}

// Config holds pool settings.
type Config struct {
	Name      string
	Workers   int
	QueueSize int
	Logger    *zap.Logger
}

// New starts a worker pool.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Pool{
		name:      cfg.Name,
		workers:   cfg.Workers,
		taskQueue: make(chan Task, cfg.QueueSize),
		logger:    cfg.Logger,
		stopChan:  make(chan struct{}),
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case task := <-p.taskQueue:
			start := time.Now()
			err := p.run(task)
			if err != nil {
				atomic.AddUint64(&p.failed, 1)
				p.logger.Error("task failed",
					zap.String("pool", p.name),
					zap.Int("worker", id),
					zap.String("task", task.ID),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err))
				continue
			}
			atomic.AddUint64(&p.completed, 1)
			p.logger.Debug("task done",
				zap.String("pool", p.name),
				zap.Int("worker", id),
				zap.String("task", task.ID),
				zap.Duration("duration", time.Since(start)))
		}
	}
}

func (p *Pool) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.ID, r)
		}
	}()
	return task.Fn(context.Background())
}

// Submit queues a task, blocking until accepted, the context ends, or the
// pool stops.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-p.stopChan:
		return fmt.Errorf("worker pool %q is stopped", p.name)
	case <-ctx.Done():
		return ctx.Err()
	case p.taskQueue <- task:
		return nil
	}
}

// Stop shuts the pool down, waiting up to timeout for in-flight tasks.
func (p *Pool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopChan)
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool %q stop timeout after %v", p.name, timeout)
		}
	})
	return err
}

// Completed returns the number of tasks that finished without error.
func (p *Pool) Completed() uint64 { return atomic.LoadUint64(&p.completed) }

// Failed returns the number of tasks that returned an error or panicked.
func (p *Pool) Failed() uint64 { return atomic.LoadUint64(&p.failed) }
