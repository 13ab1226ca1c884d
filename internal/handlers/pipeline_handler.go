package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/pipelines"
)

// PipelineHandler serves the resume-tailoring and cover-letter endpoints.
// They share the apply endpoints' shape: POST starts a session and returns
// an SSE-connect fragment, GET .../stream drains it.
type PipelineHandler struct {
	pipelines *pipelines.Service
	stream    *StreamHandler
	logger    arbor.ILogger
}

// NewPipelineHandler creates the pipeline handler.
func NewPipelineHandler(svc *pipelines.Service, stream *StreamHandler, logger arbor.ILogger) *PipelineHandler {
	return &PipelineHandler{pipelines: svc, stream: stream, logger: logger}
}

// TailorResume handles POST /jobs/{key}/tailor-resume.
func (h *PipelineHandler) TailorResume(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.start(w, r, jobKey, "tailor-resume", func(ctx context.Context) (*apply.Session, error) {
		return h.pipelines.TailorResume(ctx, jobKey)
	})
}

// CoverLetter handles POST /jobs/{key}/cover-letter.
func (h *PipelineHandler) CoverLetter(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.start(w, r, jobKey, "cover-letter", func(ctx context.Context) (*apply.Session, error) {
		return h.pipelines.GenerateCoverLetter(ctx, jobKey)
	})
}

// Stream handles GET for both pipeline stream endpoints. Sessions share the
// apply registry, so the adapter resolves them by job key alone.
func (h *PipelineHandler) Stream(w http.ResponseWriter, r *http.Request, jobKey string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.stream.ServeSession(w, r, jobKey)
}

func (h *PipelineHandler) start(w http.ResponseWriter, r *http.Request, jobKey, op string,
	launch func(context.Context) (*apply.Session, error)) {

	_, err := launch(r.Context())
	switch {
	case err == nil:
		h.logger.Info().Str("job_key", jobKey).Str("pipeline", op).Msg("Pipeline started")
		WriteFragment(w, http.StatusOK, sseConnectFragment(jobKey, op))

	case errors.Is(err, apply.ErrApplyInProgress):
		WriteFragment(w, http.StatusOK,
			fmt.Sprintf(`<div class="apply-info">A task for %s is already in progress.</div>`,
				html.EscapeString(jobKey)))

	default:
		h.logger.Warn().Err(err).Str("job_key", jobKey).Str("pipeline", op).Msg("Pipeline start rejected")
		WriteFragment(w, http.StatusBadRequest,
			fmt.Sprintf(`<div class="apply-error">%s</div>`, html.EscapeString(err.Error())))
	}
}
