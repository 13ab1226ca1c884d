package pipelines

import (
	"context"
	"os"
	"sync"
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

// pipeStorage is a minimal in-memory StorageManager for pipeline tests.
type pipeStorage struct {
	mu         sync.Mutex
	jobs       map[string]*models.Job
	versions   []*models.ResumeVersion
	activities []*models.Activity
	kv         map[string]string
}

func newPipeStorage() *pipeStorage {
	return &pipeStorage{jobs: make(map[string]*models.Job), kv: make(map[string]string)}
}

func (p *pipeStorage) JobStorage() interfaces.JobStorage                     { return p }
func (p *pipeStorage) ActivityStorage() interfaces.ActivityStorage           { return p }
func (p *pipeStorage) ResumeVersionStorage() interfaces.ResumeVersionStorage { return p }
func (p *pipeStorage) KVStorage() interfaces.KeyValueStorage                 { return p }
func (p *pipeStorage) Close() error                                          { return nil }

func (p *pipeStorage) SaveJob(ctx context.Context, job *models.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs[job.Key] = job
	return nil
}

func (p *pipeStorage) GetJob(ctx context.Context, key string) (*models.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[key]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return job, nil
}

func (p *pipeStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return nil, nil
}

func (p *pipeStorage) UpdateStatus(ctx context.Context, key string, status models.JobStatus) error {
	return nil
}

func (p *pipeStorage) DeleteJob(ctx context.Context, key string) error { return nil }

func (p *pipeStorage) Record(ctx context.Context, jobKey string, eventType models.ActivityType, detail string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activities = append(p.activities, &models.Activity{JobKey: jobKey, EventType: eventType, Detail: detail})
	return nil
}

func (p *pipeStorage) ListForJob(ctx context.Context, jobKey string, limit int) ([]*models.Activity, error) {
	return nil, nil
}

func (p *pipeStorage) SaveVersion(ctx context.Context, version *models.ResumeVersion) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions = append(p.versions, version)
	return nil
}

func (p *pipeStorage) GetLatestFor(ctx context.Context, jobKey string, kind models.VersionKind) (*models.ResumeVersion, error) {
	return nil, nil
}

func (p *pipeStorage) GetAll(ctx context.Context, jobKey string) ([]*models.ResumeVersion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.ResumeVersion{}, p.versions...), nil
}

func (p *pipeStorage) Get(ctx context.Context, key string) (string, error) {
	return "", interfaces.ErrKeyNotFound
}
func (p *pipeStorage) Set(ctx context.Context, key, value, description string) error { return nil }
func (p *pipeStorage) List(ctx context.Context) ([]*interfaces.KeyValuePair, error)  { return nil, nil }
func (p *pipeStorage) Delete(ctx context.Context, key string) error                  { return nil }

type fakeExtractor struct{ text string }

func (f *fakeExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	return f.text, nil
}

type fakeRenderer struct{}

func (f *fakeRenderer) RenderMarkdown(markdown, title, outPath string) error {
	return os.WriteFile(outPath, []byte("%PDF-fake"), 0644)
}

type fakeLLM struct{ response string }

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []interfaces.Message) (string, error) {
	return f.response, nil
}
func (f *fakeLLM) ModelName() string { return "fake-model" }
func (f *fakeLLM) Close() error      { return nil }

func newPipelineService(t *testing.T, original, generated string) (*Service, *pipeStorage) {
	t.Helper()
	logger := arbor.NewLogger()

	config := common.DefaultConfig()
	config.Resume.ArtifactsDir = t.TempDir()
	config.Resume.DefaultPath = "/resumes/default.pdf"

	storage := newPipeStorage()
	registry := platforms.NewRegistry(logger)
	registry.Seal()
	orch := apply.NewOrchestrator(&config.Apply, &config.Resume, registry, storage, logger)

	svc := NewService(orch, storage,
		&fakeExtractor{text: original},
		&fakeRenderer{},
		&fakeLLM{response: generated},
		&config.Resume, logger)
	return svc, storage
}

func drainSession(t *testing.T, session *apply.Session) []models.ApplyEvent {
	t.Helper()
	var events []models.ApplyEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-session.Events():
			events = append(events, ev)
			if ev.Terminal() {
				return events
			}
		case <-deadline:
			t.Fatalf("pipeline never terminated; got %d events", len(events))
		}
	}
}

func TestTailorResumeAttachesFabricationWarnings(t *testing.T) {
	original := "Experience with Python and Kubernetes at Google"
	tailored := "Experience with Python, Kubernetes and Terraform at Google and Stripe"
	svc, storage := newPipelineService(t, original, tailored)
	ctx := context.Background()
	require.NoError(t, storage.SaveJob(ctx, &models.Job{Key: "acme--engineer", Title: "Engineer", Company: "Acme"}))

	session, err := svc.TailorResume(ctx, "acme--engineer")
	require.NoError(t, err)

	events := drainSession(t, session)
	final := events[len(events)-1]
	assert.Equal(t, models.EventDone, final.Type)
	assert.Contains(t, final.Message, "2 validation warnings")
	assert.Contains(t, final.HTML, "Download")
	assert.Contains(t, final.HTML, "validation-warnings")
	assert.Contains(t, final.HTML, "resume-diff")
	assert.Contains(t, final.HTML, "<ins>")

	// Version row persisted with the warning list, artifact on disk
	versions, err := storage.GetAll(ctx, "acme--engineer")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, models.VersionKindResume, versions[0].Kind)
	assert.Equal(t, "fake-model", versions[0].Model)
	assert.Len(t, versions[0].Warnings, 2)
	_, statErr := os.Stat(versions[0].FilePath)
	assert.NoError(t, statErr)
}

func TestTailorResumeCleanContentNoWarnings(t *testing.T) {
	original := "Experience with Python and Kubernetes at Google"
	svc, storage := newPipelineService(t, original, original)
	ctx := context.Background()
	require.NoError(t, storage.SaveJob(ctx, &models.Job{Key: "acme--engineer", Title: "Engineer", Company: "Acme"}))

	session, err := svc.TailorResume(ctx, "acme--engineer")
	require.NoError(t, err)

	events := drainSession(t, session)
	final := events[len(events)-1]
	assert.Equal(t, "Resume tailoring complete", final.Message)
	assert.NotContains(t, final.HTML, "validation-warnings")
}

func TestCoverLetterPipeline(t *testing.T) {
	svc, storage := newPipelineService(t, "Resume text", "Dear hiring team,")
	ctx := context.Background()
	require.NoError(t, storage.SaveJob(ctx, &models.Job{Key: "acme--engineer", Title: "Engineer", Company: "Acme"}))

	session, err := svc.GenerateCoverLetter(ctx, "acme--engineer")
	require.NoError(t, err)

	events := drainSession(t, session)
	assert.Equal(t, models.EventDone, events[len(events)-1].Type)

	versions, err := storage.GetAll(ctx, "acme--engineer")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, models.VersionKindCoverLetter, versions[0].Kind)

	types := make(map[models.ActivityType]bool)
	for _, a := range storage.activities {
		types[a.EventType] = true
	}
	assert.True(t, types[models.ActivityCoverLetterGenerated])
}

func TestPipelineDoubleStartSuppressed(t *testing.T) {
	svc, storage := newPipelineService(t, "Resume text", "Output")
	ctx := context.Background()
	require.NoError(t, storage.SaveJob(ctx, &models.Job{Key: "acme--engineer", Title: "Engineer", Company: "Acme"}))

	first, err := svc.TailorResume(ctx, "acme--engineer")
	require.NoError(t, err)

	// The first session may still be mid-flight; a second start for the same
	// key must be refused until it finishes.
	_, err = svc.TailorResume(ctx, "acme--engineer")
	if err == nil {
		t.Skip("first pipeline finished before the second start; suppression window not observable")
	}
	assert.ErrorIs(t, err, apply.ErrApplyInProgress)

	drainSession(t, first)
}

func TestPipelineMissingJob(t *testing.T) {
	svc, _ := newPipelineService(t, "Resume text", "Output")

	_, err := svc.TailorResume(context.Background(), "ghost--job")
	assert.Error(t, err)
}
