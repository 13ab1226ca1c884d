package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/apply"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
	"github.com/ternarybob/pursuit/internal/platforms"
)

// nullStorage satisfies StorageManager for handler tests that never touch
// persistence.
type nullStorage struct{}

func (nullStorage) JobStorage() interfaces.JobStorage                     { return nil }
func (nullStorage) ActivityStorage() interfaces.ActivityStorage           { return nil }
func (nullStorage) ResumeVersionStorage() interfaces.ResumeVersionStorage { return nil }
func (nullStorage) KVStorage() interfaces.KeyValueStorage                 { return nil }
func (nullStorage) Close() error                                          { return nil }

func newStreamEnv(t *testing.T, keepalive time.Duration) (*apply.Orchestrator, *StreamHandler) {
	t.Helper()
	logger := arbor.NewLogger()
	config := common.DefaultConfig()
	registry := platforms.NewRegistry(logger)
	registry.Seal()
	orch := apply.NewOrchestrator(&config.Apply, &config.Resume, registry, nullStorage{}, logger)
	return orch, NewStreamHandler(orch, keepalive, logger)
}

func TestStreamWritesFramesAndClosesOnDone(t *testing.T) {
	orch, stream := newStreamEnv(t, time.Minute)

	session, err := orch.StartSession("acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	session.Emit(models.ProgressEvent("acme--engineer", "Opening job page..."))
	session.Emit(models.DoneEvent("acme--engineer", "Apply flow complete"))
	orch.FinishSession(session)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/acme--engineer/apply/stream", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.ServeSession(rec, req, "acme--engineer")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after done event")
	}

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	// Frame order matches queue order; done is the last frame.
	progressIdx := strings.Index(body, "event: progress\n")
	doneIdx := strings.Index(body, "event: done\n")
	require.GreaterOrEqual(t, progressIdx, 0)
	require.Greater(t, doneIdx, progressIdx)
	assert.Contains(t, body, "data: <div class=\"apply-event apply-progress\">Opening job page...</div>")
}

func TestStreamEmitsKeepalivePings(t *testing.T) {
	orch, stream := newStreamEnv(t, 30*time.Millisecond)

	session, err := orch.StartSession("acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/jobs/acme--engineer/apply/stream", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.ServeSession(rec, req, "acme--engineer")
	}()

	// Idle session: pings bridge the silence until the client disconnects.
	time.Sleep(120 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not exit on client disconnect")
	}

	assert.Contains(t, rec.Body.String(), "event: ping\ndata: \n\n")

	session.Emit(models.DoneEvent("acme--engineer", "cleanup"))
	orch.FinishSession(session)
}

func TestStreamUnknownSessionReturns404(t *testing.T) {
	_, stream := newStreamEnv(t, time.Minute)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/ghost/apply/stream", nil)
	stream.ServeSession(rec, req, "ghost")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderFragment(t *testing.T) {
	t.Run("prefers prerendered html", func(t *testing.T) {
		ev := models.ApplyEvent{Type: models.EventDone, HTML: `<div class="pipeline-result">x</div>`}
		assert.Equal(t, `<div class="pipeline-result">x</div>`, renderFragment(ev))
	})

	t.Run("awaiting confirm renders gate controls", func(t *testing.T) {
		ev := models.ApplyEvent{
			Type:    models.EventAwaitingConfirm,
			JobKey:  "acme--engineer",
			Message: "Ready to submit?",
		}
		got := renderFragment(ev)
		assert.Contains(t, got, `hx-post="/jobs/acme--engineer/apply/confirm"`)
		assert.Contains(t, got, `hx-post="/jobs/acme--engineer/apply/cancel"`)
	})

	t.Run("escapes message text", func(t *testing.T) {
		ev := models.ApplyEvent{Type: models.EventError, Message: `failed <script>`}
		assert.Contains(t, renderFragment(ev), "failed &lt;script&gt;")
	})
}
