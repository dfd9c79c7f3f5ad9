package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/sqlagent-core/pkg/config"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDispatcher struct {
	submitErr error
	lastJob   *models.Job
}

func (f *fakeDispatcher) Submit(job *models.Job) error {
	f.lastJob = job
	return f.submitErr
}

func (f *fakeDispatcher) Cancel(jobID string) bool { return false }

type fakeResults struct {
	records map[string]*models.ResultRecord
}

func (f *fakeResults) Get(_ context.Context, jobID string) (*models.ResultRecord, bool, error) {
	r, ok := f.records[jobID]
	return r, ok, nil
}

type fakeRecommender struct {
	rec *models.VisualizationRecommendation
	err error
}

func (f *fakeRecommender) RecommendVisualization(_ context.Context, _, _ string, _ *models.Table) (*models.VisualizationRecommendation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.rec != nil {
		return f.rec, nil
	}
	return &models.VisualizationRecommendation{Kind: models.VisualizationNone}, nil
}

func TestSubmitRejectsEmptyQuestion(t *testing.T) {
	s := NewServer(&fakeDispatcher{}, &fakeResults{}, &fakeRecommender{}, config.Defaults().API, 45*time.Second, 60*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"question":""}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d", rec.Code)
	}
}

func TestSubmitAcceptsValidQuestion(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	s := NewServer(dispatcher, &fakeResults{}, &fakeRecommender{}, config.Defaults().API, 45*time.Second, 60*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"question":"How many users signed up today?"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected non-empty job_id")
	}
	if dispatcher.lastJob == nil || dispatcher.lastJob.Question == "" {
		t.Fatal("expected job to have been submitted to the dispatcher")
	}
}

func TestSubmitOverLimitQuestionRejected(t *testing.T) {
	cfg := config.Defaults().API
	cfg.MaxQuestionBytes = 8
	s := NewServer(&fakeDispatcher{}, &fakeResults{}, &fakeRecommender{}, cfg, 45*time.Second, 60*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"question":"this question is far too long"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d", rec.Code)
	}
}

func TestPollUnknownJobReturns404(t *testing.T) {
	s := NewServer(&fakeDispatcher{}, &fakeResults{records: map[string]*models.ResultRecord{}}, &fakeRecommender{}, config.Defaults().API, 45*time.Second, 60*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/jobs/no-such-job", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d", rec.Code)
	}
}

func TestPollSucceededJobIncludesPayload(t *testing.T) {
	record := models.Pending("job-1", "how many users?").Succeeded(&models.AnswerPayload{SQL: "SELECT 1", Summary: "one row"})
	s := NewServer(&fakeDispatcher{}, &fakeResults{records: map[string]*models.ResultRecord{"job-1": record}}, &fakeRecommender{}, config.Defaults().API, 45*time.Second, 60*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["state"] != string(models.JobSucceeded) {
		t.Fatalf("got state %v", resp["state"])
	}
}

func TestRecommendVisualizationOnUnfinishedJobReturns404(t *testing.T) {
	record := models.Pending("job-1", "how many users?")
	s := NewServer(&fakeDispatcher{}, &fakeResults{records: map[string]*models.ResultRecord{"job-1": record}}, &fakeRecommender{}, config.Defaults().API, 45*time.Second, 60*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/jobs/job-1/recommend_visualization", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d", rec.Code)
	}
}

func TestRecommendVisualizationOnSucceededJobReturnsKindAndReason(t *testing.T) {
	record := models.Pending("job-1", "totals by category").Succeeded(&models.AnswerPayload{
		SQL:   "SELECT category, total FROM orders",
		Table: models.Table{Columns: []string{"category", "total"}, Rows: [][]any{{"books", int64(4)}}},
	})
	recommender := &fakeRecommender{rec: &models.VisualizationRecommendation{Kind: models.VisualizationBar, Reason: "two categories"}}
	s := NewServer(&fakeDispatcher{}, &fakeResults{records: map[string]*models.ResultRecord{"job-1": record}}, recommender, config.Defaults().API, 45*time.Second, 60*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/jobs/job-1/recommend_visualization", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["kind"] != string(models.VisualizationBar) {
		t.Fatalf("got kind %v", resp["kind"])
	}
	if resp["reason"] != "two categories" {
		t.Fatalf("got reason %v", resp["reason"])
	}
}
