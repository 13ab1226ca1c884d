package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

// JobHandler serves the dashboard's job browsing API over the badger store.
type JobHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewJobHandler creates the job handler.
func NewJobHandler(storage interfaces.StorageManager, logger arbor.ILogger) *JobHandler {
	return &JobHandler{storage: storage, logger: logger}
}

// ListJobs handles GET /api/jobs with optional status, platform, limit and
// offset query parameters.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := &interfaces.JobListOptions{
		Status:   models.JobStatus(r.URL.Query().Get("status")),
		Platform: r.URL.Query().Get("platform"),
		Limit:    100,
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			opts.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			opts.Offset = offset
		}
	}

	jobs, err := h.storage.JobStorage().ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJob handles GET /api/jobs/{key}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.storage.JobStorage().GetJob(r.Context(), jobKey)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_key", jobKey).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Activity handles GET /api/jobs/{key}/activity.
func (h *JobHandler) Activity(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	activities, err := h.storage.ActivityStorage().ListForJob(r.Context(), jobKey, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("job_key", jobKey).Msg("Failed to list activity")
		WriteError(w, http.StatusInternalServerError, "Failed to list activity")
		return
	}
	if activities == nil {
		activities = []*models.Activity{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_key":    jobKey,
		"activities": activities,
		"count":      len(activities),
	})
}

// Versions handles GET /api/jobs/{key}/versions, listing generated artifacts.
func (h *JobHandler) Versions(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	versions, err := h.storage.ResumeVersionStorage().GetAll(r.Context(), jobKey)
	if err != nil {
		h.logger.Error().Err(err).Str("job_key", jobKey).Msg("Failed to list versions")
		WriteError(w, http.StatusInternalServerError, "Failed to list versions")
		return
	}
	if versions == nil {
		versions = []*models.ResumeVersion{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_key":  jobKey,
		"versions": versions,
		"count":    len(versions),
	})
}

// validStatuses mirrors the JobStatus constants for update validation.
var validStatuses = map[models.JobStatus]struct{}{
	models.JobStatusDiscovered:     {},
	models.JobStatusSaved:          {},
	models.JobStatusApplied:        {},
	models.JobStatusPhoneScreen:    {},
	models.JobStatusTechnical:      {},
	models.JobStatusFinalInterview: {},
	models.JobStatusOffer:          {},
	models.JobStatusRejected:       {},
	models.JobStatusWithdrawn:      {},
}

// UpdateStatus handles PUT /api/jobs/{key}/status with body {"status": "..."}.
func (h *JobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var body struct {
		Status models.JobStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := validStatuses[body.Status]; !ok {
		WriteError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	if err := h.storage.JobStorage().UpdateStatus(r.Context(), jobKey, body.Status); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_key", jobKey).Msg("Failed to update status")
		WriteError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	h.logger.Info().Str("job_key", jobKey).Str("status", string(body.Status)).Msg("Job status updated")
	WriteSuccess(w, "Status updated")
}
