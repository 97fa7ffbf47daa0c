package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvinsight/internal/core"
	"github.com/JonMunkholm/csvinsight/internal/logging"
	"github.com/JonMunkholm/csvinsight/internal/web/templates"
)

// handleDashboard renders the control panel and results for the session.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	_, st := s.snapshot(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	params := templates.DashboardParams{State: st, Ready: s.service.Ready()}
	if err := templates.Dashboard(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// redirectHome sends form posts back to the dashboard (post/redirect/get).
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFormSelectFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploadedFiles(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if err := mustSession(r).SelectFiles(r.Context(), files); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleFormAnalyze(w http.ResponseWriter, r *http.Request) {
	if _, err := mustSession(r).Start(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleFormClear(w http.ResponseWriter, r *http.Request) {
	if err := mustSession(r).Clear(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	redirectHome(w, r)
}

// handleGetSession returns the current snapshot. Without a session it
// returns the initial state and an empty ID.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, st := s.snapshot(r)
	s.writeSession(w, r, http.StatusOK, id, st)
}

// handleSelectFiles replaces the session's file selection.
func (s *Server) handleSelectFiles(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)

	files, err := s.readUploadedFiles(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if err := sess.SelectFiles(r.Context(), files); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.writeSession(w, r, http.StatusOK, sess.ID(), sess.Snapshot())
}

// handleAnalyze starts an analyze run and returns immediately. Progress is
// observed through GET /api/session or the event stream.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	if _, err := sess.Start(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.writeSession(w, r, http.StatusAccepted, sess.ID(), sess.Snapshot())
}

// handleClear resets the session to idle.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	if err := sess.Clear(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.writeSession(w, r, http.StatusOK, sess.ID(), sess.Snapshot())
}

// handleExport streams the parsed tables as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(chi.URLParam(r, "format"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	sess, ok := sessionFrom(r)
	if !ok {
		respondError(w, r, core.ErrNothingToExport, statusFor(core.ErrNothingToExport))
		return
	}

	artifact, err := sess.Export(r.Context(), format)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", artifact.ContentType)
	h.Set("Content-Disposition", `attachment; filename="`+artifact.FileName+`"`)
	h.Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		slog.Warn("export write failed", "format", format, "error", err)
	}
}

// HealthResponse is returned by /api/health.
type HealthResponse struct {
	Status       string             `json:"status"`
	Ready        bool               `json:"ready"`
	Error        string             `json:"error,omitempty"`
	Sessions     int                `json:"sessions"`
	Analyses     core.LimiterStatus `json:"analyses"`
	ModelCircuit string             `json:"model_circuit,omitempty"`
}

// handleHealth reports capability readiness. It answers 503 until the gate
// is ready so load balancers hold traffic back.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Ready:    s.service.Ready(),
		Sessions: s.service.Len(),
		Analyses: s.service.LimiterStatus(),
	}
	if s.model != nil {
		resp.ModelCircuit = s.model.BreakerState()
	}

	status := http.StatusOK
	switch {
	case s.service.GateErr() != nil:
		resp.Status = "failed"
		resp.Error = core.MsgCapabilityLoadFailed
		status = http.StatusServiceUnavailable
	case !resp.Ready:
		resp.Status = "loading"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
