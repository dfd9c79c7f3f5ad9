// Package queue implements the Task Dispatcher and worker pools (spec
// §4.7, C7): routing a Job to one of three capacity tiers, bounding
// in-flight work, and enforcing soft/hard deadlines.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

// Sentinel errors for dispatcher operations.
var (
	// ErrQueueFull indicates the target pool's channel is at capacity.
	ErrQueueFull = errors.New("queue: pool at capacity")
	// ErrUnknownJob names a job not tracked by this dispatcher (already
	// finished, or never submitted here). Cancel does not return it; it
	// reports such a job by returning false.
	ErrUnknownJob = errors.New("queue: unknown job")
)

// Answerer is the subset of the SQL Agent the worker depends on.
type Answerer interface {
	Answer(ctx context.Context, job *models.Job) (*models.AnswerPayload, error)
}

// ResultWriter is the subset of the Result Store the worker depends on.
type ResultWriter interface {
	Write(ctx context.Context, record *models.ResultRecord) error
}

// WorkerStatus is a worker's current activity.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth is a point-in-time snapshot of one worker.
type WorkerHealth struct {
	ID            string
	Pool          models.Pool
	Status        WorkerStatus
	CurrentJobID  string
	JobsProcessed int
	LastActivity  time.Time
}

// PoolHealth is a point-in-time snapshot of the whole dispatcher.
type PoolHealth struct {
	QueueDepth map[models.Pool]int
	Workers    []WorkerHealth
}
