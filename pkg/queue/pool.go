package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// Config controls worker counts per pool, queue depth per pool, and the
// retry envelope every worker uses for transient failures.
type Config struct {
	WorkerCounts map[models.Pool]int
	QueueDepths  map[models.Pool]int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Defaults mirrors spec §6's dispatcher configuration table.
func Defaults() Config {
	return Config{
		WorkerCounts: map[models.Pool]int{
			models.PoolSimple:   4,
			models.PoolStandard: 3,
			models.PoolComplex:  1,
		},
		QueueDepths: map[models.Pool]int{
			models.PoolSimple:   100,
			models.PoolStandard: 50,
			models.PoolComplex:  10,
		},
		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// WorkerPool owns the Dispatcher and every pool tier's workers.
type WorkerPool struct {
	cfg        Config
	dispatcher *Dispatcher
	workers    []*Worker
	started    bool
}

// NewWorkerPool builds a WorkerPool wiring answerer and results into
// every worker across every configured pool tier.
func NewWorkerPool(cfg Config, answerer Answerer, results ResultWriter) *WorkerPool {
	dispatcher := NewDispatcher(cfg.QueueDepths)
	p := &WorkerPool{cfg: cfg, dispatcher: dispatcher}

	for pool, count := range cfg.WorkerCounts {
		for i := 0; i < count; i++ {
			id := fmt.Sprintf("%s-%d", pool, i)
			w := NewWorker(id, pool, dispatcher.queues[pool], answerer, results, dispatcher, cfg.MaxRetries, cfg.RetryBackoff)
			p.workers = append(p.workers, w)
		}
	}
	return p
}

// Submit routes a Job through the dispatcher. Safe to call concurrently.
func (p *WorkerPool) Submit(job *models.Job) error {
	return p.dispatcher.Submit(job)
}

// Cancel cancels a running Job.
func (p *WorkerPool) Cancel(jobID string) bool {
	return p.dispatcher.Cancel(jobID)
}

// Start spawns every worker's goroutine. Safe to call once; a second
// call is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate start")
		return
	}
	p.started = true
	for _, w := range p.workers {
		w.Start(ctx)
	}
	slog.Info("worker pool started", "worker_count", len(p.workers))
}

// Stop signals every worker to stop and waits for in-flight jobs to
// finish.
func (p *WorkerPool) Stop() {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
	slog.Info("worker pool stopped")
}

// Health returns a snapshot of queue depth and every worker's activity.
func (p *WorkerPool) Health() PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Health()
	}
	return PoolHealth{QueueDepth: p.dispatcher.QueueDepth(), Workers: stats}
}
