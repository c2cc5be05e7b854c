package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/jobs"
	"github.com/jonathan/gtm-agent/internal/scheduler"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Metrics    activity.Metrics `json:"metrics"`
	RecentLogs []activity.Entry `json:"recent_logs"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse is the body returned by POST /api/query.
type QueryResponse struct {
	Answer string `json:"answer"`
}

// TriggerResponse is returned after a manual job run completes.
type TriggerResponse struct {
	Status string `json:"status"`
	Job    string `json:"job"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Config        Features  `json:"config"`
}

// JobsResponse lists the registered jobs.
type JobsResponse struct {
	Jobs []scheduler.JobInfo `json:"jobs"`
}

type dashboardData struct {
	Status   StatusResponse
	Jobs     []scheduler.JobInfo
	Features Features
}

func (s *Server) status() StatusResponse {
	metrics, logs := s.recorder.Snapshot(s.statusLogLimit)
	if logs == nil {
		logs = []activity.Entry{}
	}
	return StatusResponse{Metrics: metrics, RecentLogs: logs}
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	data := dashboardData{
		Status:   s.status(),
		Jobs:     s.scheduler.Jobs(),
		Features: s.features,
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, data); err != nil {
		s.logger.Error("rendering dashboard", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.status())
}

// handleQuery always answers 200; failures are described in the answer text.
// The answer is computed even if the caller goes away.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonResponse(w, http.StatusOK, QueryResponse{
			Answer: fmt.Sprintf("Could not read the question: %v", err),
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, QueryResponse{Answer: s.agent.Answer(context.WithoutCancel(r.Context()), req.Question)})
}

// handleTrigger runs a job synchronously and reports once it has finished.
// A client disconnect does not cancel the run; CRM writes already started
// must be followed by their association and counted.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("job")
	ctx := jobs.WithTrigger(context.WithoutCancel(r.Context()), jobs.TriggerManual)

	if err := s.scheduler.Trigger(ctx, name); err != nil {
		s.logger.Warn("manual trigger failed", "job", name, "error", err)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, TriggerResponse{Status: "completed", Job: name})
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.agent.BuildWeeklyReport(r.Context())
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "failed to build weekly report: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to render weekly report: "+err.Error())
		return
	}

	s.recorder.Log(r.Context(), activity.CategoryReport, "Weekly report downloaded", map[string]any{
		"filename":  report.Filename(),
		"new_leads": report.NewLeads,
		"won_deals": report.WonDeals,
	})

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, JobsResponse{Jobs: s.scheduler.Jobs()})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(s.startedAt).Seconds()),
		Config:        s.features,
	})
}
