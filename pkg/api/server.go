// Package api is the thin HTTP submission boundary spec §6 describes as
// out of core scope but names as a real collaborator: submit a job, poll
// a result, request a visualization recommendation. It owns no business
// logic — every route is a direct call into the dispatcher, result
// store, or SQL agent.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tarsy-labs/sqlagent-core/pkg/config"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
	"github.com/tarsy-labs/sqlagent-core/pkg/queue"
	"github.com/tarsy-labs/sqlagent-core/pkg/resultstore"
	"github.com/tarsy-labs/sqlagent-core/pkg/sqlagent"
)

var _ Recommender = (*sqlagent.Agent)(nil)

// Dispatcher is the subset of *queue.WorkerPool the HTTP boundary needs.
type Dispatcher interface {
	Submit(job *models.Job) error
	Cancel(jobID string) bool
}

// Results is the subset of *resultstore.Store the HTTP boundary needs.
type Results interface {
	Get(ctx context.Context, jobID string) (*models.ResultRecord, bool, error)
}

// Recommender is the subset of *sqlagent.Agent the HTTP boundary needs
// for the recommend_visualization route.
type Recommender interface {
	RecommendVisualization(ctx context.Context, question, sql string, table *models.Table) (*models.VisualizationRecommendation, error)
}

// Server wires the three routes spec §6 names onto a gin.Engine.
type Server struct {
	dispatcher   Dispatcher
	results      Results
	recommender  Recommender
	cfg          config.APIConfig
	softDeadline time.Duration
	hardDeadline time.Duration
	router       *gin.Engine
}

// NewServer builds the router. softDeadline and hardDeadline mirror
// the Dispatcher's TaskSoftTimeLimit/TaskTimeLimit (spec §4.7/§5) and
// are stamped onto every Job at submit time.
func NewServer(dispatcher Dispatcher, results Results, recommender Recommender, cfg config.APIConfig, softDeadline, hardDeadline time.Duration) *Server {
	s := &Server{dispatcher: dispatcher, results: results, recommender: recommender, cfg: cfg, softDeadline: softDeadline, hardDeadline: hardDeadline}
	s.router = gin.Default()
	s.routes()
	return s
}

// Router exposes the underlying gin.Engine, e.g. for tests or for
// http.ListenAndServe wiring in main.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/jobs", s.handleSubmit)
	s.router.GET("/jobs/:id", s.handlePoll)
	s.router.POST("/jobs/:id/recommend_visualization", s.handleRecommendVisualization)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type submitRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// handleSubmit implements spec §5's submit operation: validate, assign a
// pool, enqueue, and return the job_id. No Pending ResultRecord is
// written at submit: the first Result Store write is the worker's
// Running record at pickup, so a poll before pickup reports unknown_job.
func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, models.ErrorKindInvalidInput, "request body must be valid JSON")
		return
	}
	if req.Question == "" {
		writeError(c, http.StatusBadRequest, models.ErrorKindInvalidInput, "question must not be empty")
		return
	}
	maxBytes := s.cfg.MaxQuestionBytes
	if maxBytes <= 0 {
		maxBytes = 4 * 1024
	}
	if len(req.Question) > maxBytes {
		writeError(c, http.StatusBadRequest, models.ErrorKindInvalidInput, "question exceeds configured size limit")
		return
	}

	now := time.Now()
	job := &models.Job{
		ID:           uuid.NewString(),
		Question:     req.Question,
		SessionID:    req.SessionID,
		Pool:         queue.ClassifyPool(req.Question),
		SubmittedAt:  now,
		SoftDeadline: now.Add(s.softDeadline),
		HardDeadline: now.Add(s.hardDeadline),
	}

	if err := s.dispatcher.Submit(job); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			writeError(c, http.StatusServiceUnavailable, models.ErrorKindOverloaded, models.ErrorKindOverloaded.Message())
			return
		}
		writeError(c, http.StatusInternalServerError, models.ErrorKindInternalError, models.ErrorKindInternalError.Message())
		return
	}

	c.JSON(http.StatusAccepted, submitResponse{JobID: job.ID})
}

// handlePoll implements spec §5's poll operation, surfacing a
// ResultRecord in whatever state it is currently in.
func (s *Server) handlePoll(c *gin.Context) {
	jobID := c.Param("id")
	record, ok, err := s.results.Get(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, models.ErrorKindInternalError, models.ErrorKindInternalError.Message())
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, models.ErrorKindUnknownJob, models.ErrorKindUnknownJob.Message())
		return
	}

	resp := gin.H{"job_id": record.JobID, "state": record.State}
	switch record.State {
	case models.JobSucceeded:
		resp["payload"] = record.Payload
	case models.JobFailed:
		resp["error"] = gin.H{"kind": record.ErrorKind, "message": record.ErrorKind.Message()}
		if !s.cfg.SuppressDebugDetails {
			resp["error"].(gin.H)["detail"] = record.Error
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleRecommendVisualization implements spec §6's recommend_visualization
// operation over a Job's already-completed payload: one LM call over
// the original question, the generated SQL, and a sample of the result.
func (s *Server) handleRecommendVisualization(c *gin.Context) {
	jobID := c.Param("id")
	record, ok, err := s.results.Get(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, models.ErrorKindInternalError, models.ErrorKindInternalError.Message())
		return
	}
	if !ok || record.State != models.JobSucceeded {
		writeError(c, http.StatusNotFound, models.ErrorKindUnknownJob, models.ErrorKindUnknownJob.Message())
		return
	}

	rec, err := s.recommender.RecommendVisualization(c.Request.Context(), record.Question, record.Payload.SQL, &record.Payload.Table)
	if err != nil {
		kind, msg := classifyRecommendError(err)
		writeError(c, http.StatusInternalServerError, kind, msg)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": rec.Kind, "reason": rec.Reason})
}

func classifyRecommendError(err error) (models.ErrorKind, string) {
	var kindErr *models.KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind, kindErr.Message
	}
	return models.ErrorKindInternalError, models.ErrorKindInternalError.Message()
}

func writeError(c *gin.Context, status int, kind models.ErrorKind, message string) {
	c.JSON(status, gin.H{"error": gin.H{"kind": kind, "message": message}})
}

var _ Dispatcher = (*queue.WorkerPool)(nil)
var _ Results = (*resultstore.Store)(nil)
