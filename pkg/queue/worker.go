package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// transientKinds are error kinds worth retrying without failing the
// Job outright — both reflect a busy downstream, not a bad question.
var transientKinds = map[models.ErrorKind]bool{
	models.ErrorKindOverloaded:    true,
	models.ErrorKindLMUnavailable: true,
}

// Worker pulls Jobs off one pool's channel and runs them to completion
// through the SQL Agent, writing every state transition to the Result
// Store.
type Worker struct {
	id         string
	pool       models.Pool
	queue      <-chan *models.Job
	answerer   Answerer
	results    ResultWriter
	dispatcher *Dispatcher

	maxRetries   int
	retryBackoff time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker builds a Worker draining queue.
func NewWorker(id string, pool models.Pool, queue <-chan *models.Job, answerer Answerer, results ResultWriter, dispatcher *Dispatcher, maxRetries int, retryBackoff time.Duration) *Worker {
	return &Worker{
		id:           id,
		pool:         pool,
		queue:        queue,
		answerer:     answerer,
		results:      results,
		dispatcher:   dispatcher,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker's drain loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop after finishing any job in flight.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns a snapshot of the worker's current activity.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Pool:          w.pool,
		Status:        w.status,
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id, "pool", w.pool)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job *models.Job) {
	log := slog.With("job_id", job.ID, "worker_id", w.id)

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancel := context.WithDeadline(ctx, job.HardDeadline)
	jobCtx = models.WithSoftDeadline(jobCtx, job.SoftDeadline)
	w.dispatcher.register(job.ID, cancel)
	defer func() {
		cancel()
		w.dispatcher.unregister(job.ID)
	}()

	record := models.Pending(job.ID, job.Question).Running(time.Now())
	if err := w.results.Write(jobCtx, record); err != nil {
		log.Warn("writing running result failed", "error", err)
	}

	payload, err := w.answerWithRetry(jobCtx, job)

	switch {
	case err == nil:
		record = record.Succeeded(payload)
	case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		record = record.Failed(models.ErrorKindTimeout, models.ErrorKindTimeout.Message())
	case errors.Is(jobCtx.Err(), context.Canceled):
		record = record.Cancelled()
	default:
		kind, msg := classify(err)
		record = record.Failed(kind, msg)
	}

	if writeErr := w.results.Write(context.Background(), record); writeErr != nil {
		log.Error("writing terminal result failed", "error", writeErr)
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job processing complete", "state", record.State)
}

// answerWithRetry retries transient failures (Overloaded, LMUnavailable)
// with an exponential backoff (retryBackoff, doubled on each further
// attempt), up to maxRetries, before giving up.
func (w *Worker) answerWithRetry(ctx context.Context, job *models.Job) (*models.AnswerPayload, error) {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(w.retryBackoff << (attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		payload, err := w.answerer.Answer(ctx, job)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		kind, _ := classify(err)
		if !transientKinds[kind] {
			return nil, err
		}
	}
	return nil, lastErr
}

func classify(err error) (models.ErrorKind, string) {
	var kindErr *models.KindError
	if errors.As(err, &kindErr) {
		msg := kindErr.Message
		if msg == "" {
			msg = kindErr.Kind.Message()
		}
		return kindErr.Kind, msg
	}
	return models.ErrorKindInternalError, models.ErrorKindInternalError.Message()
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
