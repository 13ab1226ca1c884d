package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/models"
)

// StreamHandler adapts a session's event queue onto a server-sent event
// stream. Event bodies are opaque to the transport; events without a
// pre-rendered fragment get a default rendering here.
type StreamHandler struct {
	orch      *apply.Orchestrator
	keepalive time.Duration
	logger    arbor.ILogger
}

// NewStreamHandler creates the SSE stream adapter.
func NewStreamHandler(orch *apply.Orchestrator, keepalive time.Duration, logger arbor.ILogger) *StreamHandler {
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	return &StreamHandler{orch: orch, keepalive: keepalive, logger: logger}
}

// ServeSession streams the session registered for jobKey until its terminal
// event is sent or the client disconnects. Idle periods are bridged with
// ping keepalives.
func (h *StreamHandler) ServeSession(w http.ResponseWriter, r *http.Request, jobKey string) {
	session, ok := h.orch.Subscribe(jobKey)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("No active session for %s", jobKey))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "SSE not supported")
		return
	}

	// Flush headers immediately so EventSource.onopen fires.
	flusher.Flush()

	// A finished session is drained here, then evicted.
	defer h.orch.Release(session)

	pingTicker := time.NewTicker(h.keepalive)
	defer pingTicker.Stop()

	h.logger.Debug().Str("job_key", jobKey).Msg("SSE stream opened")

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Str("job_key", jobKey).Msg("SSE client disconnected")
			return

		case ev := <-session.Events():
			h.writeEvent(w, flusher, ev)
			if ev.Terminal() {
				h.logger.Debug().Str("job_key", jobKey).Msg("SSE stream complete")
				return
			}
			pingTicker.Reset(h.keepalive)

		case <-pingTicker.C:
			fmt.Fprint(w, "event: ping\ndata: \n\n")
			flusher.Flush()
		}
	}
}

// writeEvent serializes one event as an SSE message. Fragment bodies may
// span lines; each line gets its own data: field per the SSE format.
func (h *StreamHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, ev models.ApplyEvent) {
	fmt.Fprintf(w, "event: %s\n", ev.Type)
	for _, line := range strings.Split(renderFragment(ev), "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
	flusher.Flush()
}

// renderFragment returns the event body for the wire. Workers may attach a
// pre-rendered fragment; otherwise a default one is built from the message.
func renderFragment(ev models.ApplyEvent) string {
	if ev.HTML != "" {
		return ev.HTML
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="apply-event apply-%s">`, ev.Type)
	b.WriteString(html.EscapeString(ev.Message))

	switch ev.Type {
	case models.EventAwaitingConfirm:
		// Confirmation gate controls rendered by the transport, not the worker.
		fmt.Fprintf(&b,
			`<div class="confirm-controls">`+
				`<button hx-post="/jobs/%[1]s/apply/confirm" hx-swap="outerHTML">Confirm</button>`+
				`<button hx-post="/jobs/%[1]s/apply/cancel" hx-swap="outerHTML">Cancel</button>`+
				`</div>`,
			html.EscapeString(ev.JobKey))
	case models.EventProgress:
		if ev.ScreenshotPath != "" {
			fmt.Fprintf(&b, `<span class="screenshot-path">%s</span>`, html.EscapeString(ev.ScreenshotPath))
		}
		if len(ev.FieldsFilled) > 0 {
			fmt.Fprintf(&b, `<span class="fields-filled" data-count="%d"></span>`, len(ev.FieldsFilled))
		}
	}

	b.WriteString(`</div>`)
	return b.String()
}
