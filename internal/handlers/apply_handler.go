package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/models"
)

// ApplyHandler serves the apply control endpoints. Responses are small HTML
// fragments the dashboard swaps in place.
type ApplyHandler struct {
	orch   *apply.Orchestrator
	stream *StreamHandler
	logger arbor.ILogger
}

// NewApplyHandler creates the apply handler.
func NewApplyHandler(orch *apply.Orchestrator, stream *StreamHandler, logger arbor.ILogger) *ApplyHandler {
	return &ApplyHandler{orch: orch, stream: stream, logger: logger}
}

// StartApply handles POST /jobs/{key}/apply. The optional form field "mode"
// selects the apply mode; anything unrecognized falls back to semi_auto.
func (h *ApplyHandler) StartApply(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	mode := models.ParseApplyMode(r.FormValue("mode"))

	_, err := h.orch.StartApply(r.Context(), jobKey, mode)
	switch {
	case err == nil:
		h.logger.Info().Str("job_key", jobKey).Str("mode", string(mode)).Msg("Apply started")
		WriteFragment(w, http.StatusOK, sseConnectFragment(jobKey, "apply"))

	case errors.Is(err, apply.ErrApplyInProgress):
		WriteFragment(w, http.StatusOK,
			fmt.Sprintf(`<div class="apply-info">Application for %s is already in progress.</div>`,
				html.EscapeString(jobKey)))

	case errors.Is(err, apply.ErrBusy):
		WriteFragment(w, http.StatusOK,
			`<div class="apply-info">Another application is currently running. Try again shortly.</div>`)

	default:
		h.logger.Warn().Err(err).Str("job_key", jobKey).Msg("Apply start rejected")
		WriteFragment(w, http.StatusBadRequest,
			fmt.Sprintf(`<div class="apply-error">%s</div>`, html.EscapeString(err.Error())))
	}
}

// Stream handles GET /jobs/{key}/apply/stream.
func (h *ApplyHandler) Stream(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.stream.ServeSession(w, r, jobKey)
}

// Confirm handles POST /jobs/{key}/apply/confirm. Idempotent: a second
// confirm, or a confirm with no gate pending, is a no-op.
func (h *ApplyHandler) Confirm(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if h.orch.Confirm(jobKey) {
		h.logger.Info().Str("job_key", jobKey).Msg("Submission confirmed")
		WriteFragment(w, http.StatusOK, `<div class="apply-info">Confirmed. Submitting...</div>`)
		return
	}
	WriteFragment(w, http.StatusOK, `<div class="apply-info">No confirmation pending.</div>`)
}

// Cancel handles POST /jobs/{key}/apply/cancel. Idempotent.
func (h *ApplyHandler) Cancel(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if h.orch.Cancel(jobKey) {
		h.logger.Info().Str("job_key", jobKey).Msg("Application cancelled")
		WriteFragment(w, http.StatusOK, `<div class="apply-info">Cancellation requested.</div>`)
		return
	}
	WriteFragment(w, http.StatusOK, `<div class="apply-info">No application in progress.</div>`)
}

// sseConnectFragment returns the fragment that opens the SSE connection for
// a freshly started session. op is the path segment the stream lives under.
func sseConnectFragment(jobKey, op string) string {
	return fmt.Sprintf(
		`<div class="event-stream" hx-ext="sse" sse-connect="/jobs/%s/%s/stream" `+
			`sse-swap="progress,awaiting_confirm,confirmed,captcha,error,done" sse-close="done"></div>`,
		html.EscapeString(jobKey), op)
}
