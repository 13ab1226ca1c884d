package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

// APIHandler serves the system endpoints: health, version, sanitized config
// and the applicant profile.
type APIHandler struct {
	config    *common.Config
	storage   interfaces.StorageManager
	startTime time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates the system API handler.
func NewAPIHandler(config *common.Config, storage interfaces.StorageManager, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		config:    config,
		storage:   storage,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthHandler handles GET /api/health.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
		"version": common.GetVersion(),
	})
}

// VersionHandler handles GET /api/version.
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// ConfigHandler handles GET /api/config. API keys are never echoed back;
// the dashboard only needs to know whether a provider is configured.
func (h *APIHandler) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment": h.config.Environment,
		"server": map[string]interface{}{
			"host": h.config.Server.Host,
			"port": h.config.Server.Port,
		},
		"apply": map[string]interface{}{
			"concurrency":          h.config.Apply.LeaseCapacity(),
			"confirm_timeout":      h.config.Apply.ConfirmTimeout.String(),
			"require_confirmation": h.config.Apply.RequireConfirmation,
		},
		"llm": map[string]interface{}{
			"provider":   h.config.LLM.Provider,
			"model":      h.config.LLM.Model,
			"configured": h.config.LLM.GoogleAPIKey != "" || h.config.LLM.AnthropicAPIKey != "",
		},
		"maintenance": map[string]interface{}{
			"enabled":        h.config.Maintenance.Enabled,
			"schedule":       h.config.Maintenance.Schedule,
			"retention_days": h.config.Maintenance.RetentionDays,
		},
	})
}

// ProfileHandler handles GET and PUT /api/profile. The profile feeds the
// form filler's value map.
func (h *APIHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profile, err := apply.LoadProfile(r.Context(), h.storage.KVStorage())
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to load profile")
			WriteError(w, http.StatusInternalServerError, "Failed to load profile")
			return
		}
		WriteJSON(w, http.StatusOK, profile)

	case http.MethodPut:
		var profile models.Profile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := apply.SaveProfile(r.Context(), h.storage.KVStorage(), &profile); err != nil {
			h.logger.Error().Err(err).Msg("Failed to save profile")
			WriteError(w, http.StatusInternalServerError, "Failed to save profile")
			return
		}
		h.logger.Info().Msg("Applicant profile updated")
		WriteSuccess(w, "Profile saved")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// NotFoundHandler is the fallback for unmatched /api/ routes.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found")
}
