package models

import (
	"context"
	"time"
)

// JobState is the Job's position in the Task State Machine (spec §4.7).
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Pool names the worker pool a Job is routed to.
type Pool string

const (
	PoolSimple   Pool = "simple"
	PoolStandard Pool = "standard"
	PoolComplex  Pool = "complex"
)

// Job is a submitted unit of work flowing through the dispatcher.
// Owned exclusively by a single worker once dequeued; never mutated
// concurrently — all sharing happens through the Result Store.
type Job struct {
	ID          string
	Question    string
	SessionID   string // optional; empty means no conversation memory
	Pool        Pool
	SubmittedAt time.Time
	SoftDeadline time.Time
	HardDeadline time.Time
}

type softDeadlineKey struct{}

// WithSoftDeadline attaches a Job's soft deadline to ctx so pipeline
// stages downstream of the worker (spec §4.7/§5) can check it without
// threading the Job itself through every call.
func WithSoftDeadline(ctx context.Context, deadline time.Time) context.Context {
	return context.WithValue(ctx, softDeadlineKey{}, deadline)
}

// SoftDeadlineExceeded reports whether ctx carries a soft deadline that
// has already passed. A ctx with no soft deadline attached never
// reports exceeded, so stages run outside a Job's context (tests,
// background refreshes) are unaffected.
func SoftDeadlineExceeded(ctx context.Context) bool {
	deadline, ok := ctx.Value(softDeadlineKey{}).(time.Time)
	if !ok || deadline.IsZero() {
		return false
	}
	return time.Now().After(deadline)
}

// Table is an ordered set of column names plus ordered rows of scalars
// or nulls, as returned by the connector and rendered back to the caller.
type Table struct {
	Columns []string
	Rows    [][]any
}

// VisualizationKind is the closed set of chart types the recommend_visualization
// operation may return (spec §6).
type VisualizationKind string

const (
	VisualizationBar           VisualizationKind = "bar"
	VisualizationHorizontalBar VisualizationKind = "horizontal_bar"
	VisualizationLine          VisualizationKind = "line"
	VisualizationPie           VisualizationKind = "pie"
	VisualizationScatter       VisualizationKind = "scatter"
	VisualizationTable         VisualizationKind = "table"
	VisualizationNone          VisualizationKind = "none"
)

// VisualizationRecommendation is the result of recommend_visualization:
// a chart kind plus the model's short justification for it.
type VisualizationRecommendation struct {
	Kind   VisualizationKind
	Reason string
}

// AnswerPayload is the successful product of one Agent run (spec §3).
type AnswerPayload struct {
	SQL               string
	Summary           string
	Table             Table
	Suggestions       []string // at most 5
	CorrectionApplied bool
}

// ResultRecord is the terminal or interim product of a Job (spec §3).
// Exactly one of the fields below is meaningful for a given State.
type ResultRecord struct {
	JobID     string
	Question  string // carried from the Job so later operations (visualization) don't need to re-fetch it
	State     JobState
	StartedAt time.Time // set once Running
	Payload   *AnswerPayload
	ErrorKind ErrorKind
	Error     string
}

// Pending builds a job's initial Queued record. No record is written at
// submit time; the worker's first write is this record moved to Running.
func Pending(jobID, question string) *ResultRecord {
	return &ResultRecord{JobID: jobID, Question: question, State: JobQueued}
}

// Running returns a copy of the record transitioned to Running.
func (r *ResultRecord) Running(startedAt time.Time) *ResultRecord {
	next := *r
	next.State = JobRunning
	next.StartedAt = startedAt
	return &next
}

// Succeeded returns a copy of the record transitioned to the terminal
// Succeeded state carrying payload.
func (r *ResultRecord) Succeeded(payload *AnswerPayload) *ResultRecord {
	next := *r
	next.State = JobSucceeded
	next.Payload = payload
	return &next
}

// Failed returns a copy of the record transitioned to the terminal Failed
// state carrying the classified error.
func (r *ResultRecord) Failed(kind ErrorKind, message string) *ResultRecord {
	next := *r
	next.State = JobFailed
	next.ErrorKind = kind
	next.Error = message
	return &next
}

// Cancelled returns a copy of the record transitioned to the terminal
// Cancelled state.
func (r *ResultRecord) Cancelled() *ResultRecord {
	next := *r
	next.State = JobCancelled
	return &next
}

// Terminal reports whether State is one with no further transitions.
func (r *ResultRecord) Terminal() bool {
	switch r.State {
	case JobSucceeded, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}
