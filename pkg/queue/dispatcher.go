package queue

import (
	"context"
	"sync"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// Dispatcher fans submitted Jobs into one of three bounded, per-pool
// channels and tracks cancel functions so a caller can cancel a Job
// that is already running.
type Dispatcher struct {
	queues map[models.Pool]chan *models.Job

	mu      sync.RWMutex
	cancels map[string]context.CancelFunc
}

// NewDispatcher builds a Dispatcher with the given per-pool queue
// depths.
func NewDispatcher(depths map[models.Pool]int) *Dispatcher {
	d := &Dispatcher{
		queues:  make(map[models.Pool]chan *models.Job, len(depths)),
		cancels: make(map[string]context.CancelFunc),
	}
	for pool, depth := range depths {
		d.queues[pool] = make(chan *models.Job, depth)
	}
	return d
}

// Submit enqueues a Job onto its pool's channel, non-blocking. Returns
// ErrQueueFull if the pool is at capacity — back-pressure the caller is
// expected to surface as Overloaded.
func (d *Dispatcher) Submit(job *models.Job) error {
	q, ok := d.queues[job.Pool]
	if !ok {
		q = d.queues[models.PoolStandard]
	}
	select {
	case q <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel triggers cancellation for a running Job. Returns false if the
// Job is unknown to this dispatcher (queued but not yet picked up,
// already finished, or never submitted here).
func (d *Dispatcher) Cancel(jobID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cancel, ok := d.cancels[jobID]
	if !ok {
		return false
	}
	cancel()
	return true
}

func (d *Dispatcher) register(jobID string, cancel context.CancelFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancels[jobID] = cancel
}

func (d *Dispatcher) unregister(jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cancels, jobID)
}

// QueueDepth reports the number of jobs currently queued per pool (not
// counting the job a worker has already dequeued and is running).
func (d *Dispatcher) QueueDepth() map[models.Pool]int {
	depths := make(map[models.Pool]int, len(d.queues))
	for pool, q := range d.queues {
		depths[pool] = len(q)
	}
	return depths
}
