package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/actionsum/presence/internal/config"
	"github.com/actionsum/presence/internal/database"
	"github.com/actionsum/presence/internal/export"
	"github.com/actionsum/presence/internal/models"
	"github.com/actionsum/presence/internal/presence"
	"github.com/actionsum/presence/internal/reporter"
	"github.com/actionsum/presence/pkg/pointer"
	"github.com/actionsum/presence/pkg/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const maxExportBody = 16 << 20

// Service is the part of the presence service the API drives
type Service interface {
	SetUserStatus(active bool) error
	Export(users []export.UserRecord) (*models.ExportRun, error)
	ExportPath() string
	IsRunning() bool
	CurrentPosition() (pointer.Position, error)
	Config() *config.Config
}

// Handler serves the JSON API. Configuration is read from the service on
// every request so reloads apply without a restart.
type Handler struct {
	repo    *database.Repository
	service Service
}

func NewHandler(repo *database.Repository, service Service) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
	}
}

// SetupRoutes registers every route on r itself; a method mismatch on a
// known path then answers 405
func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/status", h.handleSetStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/export", h.handleExport).Methods(http.MethodPost)
	r.HandleFunc("/api/exports", h.handleExports).Methods(http.MethodGet)
	r.HandleFunc("/api/exports/{runId}", h.handleExportRun).Methods(http.MethodGet)
	r.HandleFunc("/api/errors", h.handleErrors).Methods(http.MethodGet)
	r.HandleFunc("/api/idle/events", h.handleIdleEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/report", h.handleReport).Methods(http.MethodGet)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
}

type statusRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		http.Error(w, `Body must be {"active": true|false}`, http.StatusBadRequest)
		return
	}

	if err := h.service.SetUserStatus(*req.Active); err != nil {
		if errors.Is(err, presence.ErrNotRunning) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to change status: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"active": *req.Active})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxExportBody))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read body: %v", err), http.StatusBadRequest)
		return
	}

	users, err := export.ParseUsers(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	run, err := h.service.Export(users)
	if err != nil {
		// The run record carries the failure
		writeJSON(w, http.StatusInternalServerError, run)
		return
	}

	respondJSON(w, run)
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repo.RecentExportRuns(parseLimit(r, 20))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch exports: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, runs)
}

func (h *Handler) handleExportRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.repo.GetExportRun(mux.Vars(r)["runId"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Export not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch export: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, run)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	logs, err := h.repo.RecentErrors(parseLimit(r, 20))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch errors: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, logs)
}

// handleIdleEvents lists the newest events, or with ?since=<RFC3339> every
// event from that time on, oldest first
func (h *Handler) handleIdleEvents(w http.ResponseWriter, r *http.Request) {
	var events []*models.IdleEvent
	var err error

	if since := r.URL.Query().Get("since"); since != "" {
		t, perr := time.Parse(time.RFC3339, since)
		if perr != nil {
			http.Error(w, fmt.Sprintf("Invalid since: %v", perr), http.StatusBadRequest)
			return
		}
		events, err = h.repo.GetIdleEventsSince(t)
	} else {
		events, err = h.repo.RecentIdleEvents(parseLimit(r, 100))
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch idle events: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, events)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	rep := reporter.New(h.service.Config(), h.repo)
	if _, err := rep.GetPeriod(periodType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := rep.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, report)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.service.Config()
	status := map[string]interface{}{
		"running":         h.service.IsRunning(),
		"sample_interval": cfg.Idle.SampleInterval.String(),
		"output_path":     h.service.ExportPath(),
		"database_path":   cfg.Database.Path,
	}

	if pos, err := h.service.CurrentPosition(); err == nil {
		status["pointer"] = pos
	} else {
		status["pointer_error"] = err.Error()
	}

	if events, err := h.repo.RecentIdleEvents(1); err == nil && len(events) > 0 {
		latest := events[0]
		status["latest_idle"] = map[string]interface{}{
			"timestamp":      latest.Timestamp,
			"position":       fmt.Sprintf("(%d,%d)", latest.X, latest.Y),
			"waited":         utils.FormatRoundedUnit(latest.WaitSeconds),
			"display_server": latest.DisplayServer,
		}
	}

	if run, err := h.repo.GetLatestExportRun(); err == nil && run != nil {
		status["latest_export"] = run
	}

	respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func parseLimit(r *http.Request, def int) int {
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		return l
	}
	return def
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
