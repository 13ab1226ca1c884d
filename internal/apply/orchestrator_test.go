package apply

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
	"github.com/ternarybob/pursuit/internal/platforms"
)

// memStorage is an in-memory StorageManager for orchestrator tests.
type memStorage struct {
	mu         sync.Mutex
	jobs       map[string]*models.Job
	activities []*models.Activity
	versions   []*models.ResumeVersion
	kv         map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{
		jobs: make(map[string]*models.Job),
		kv:   make(map[string]string),
	}
}

func (m *memStorage) JobStorage() interfaces.JobStorage                   { return m }
func (m *memStorage) ActivityStorage() interfaces.ActivityStorage         { return m }
func (m *memStorage) ResumeVersionStorage() interfaces.ResumeVersionStorage { return m }
func (m *memStorage) KVStorage() interfaces.KeyValueStorage               { return m }
func (m *memStorage) Close() error                                        { return nil }

func (m *memStorage) SaveJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.Key] = job
	return nil
}

func (m *memStorage) GetJob(ctx context.Context, key string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[key]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Job
	for _, j := range m.jobs {
		copied := *j
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStorage) UpdateStatus(ctx context.Context, key string, status models.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[key]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	job.Status = status
	return nil
}

func (m *memStorage) DeleteJob(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, key)
	return nil
}

func (m *memStorage) Record(ctx context.Context, jobKey string, eventType models.ActivityType, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, &models.Activity{
		ID: uint64(len(m.activities) + 1), JobKey: jobKey, EventType: eventType, Detail: detail, At: time.Now(),
	})
	return nil
}

func (m *memStorage) ListForJob(ctx context.Context, jobKey string, limit int) ([]*models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Activity
	for _, a := range m.activities {
		if a.JobKey == jobKey {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStorage) activityTypes(jobKey string) []models.ActivityType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActivityType
	for _, a := range m.activities {
		if a.JobKey == jobKey {
			out = append(out, a.EventType)
		}
	}
	return out
}

func (m *memStorage) SaveVersion(ctx context.Context, version *models.ResumeVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions = append(m.versions, version)
	return nil
}

func (m *memStorage) GetLatestFor(ctx context.Context, jobKey string, kind models.VersionKind) (*models.ResumeVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.versions) - 1; i >= 0; i-- {
		if m.versions[i].JobKey == jobKey && m.versions[i].Kind == kind {
			return m.versions[i], nil
		}
	}
	return nil, nil
}

func (m *memStorage) GetAll(ctx context.Context, jobKey string) ([]*models.ResumeVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ResumeVersion
	for _, v := range m.versions {
		if v.JobKey == jobKey {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStorage) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStorage) Set(ctx context.Context, key, value, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *memStorage) List(ctx context.Context) ([]*interfaces.KeyValuePair, error) {
	return nil, nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

// fakeATS is an instant api-kind platform.
type fakeATS struct {
	filled  map[string]string
	fillErr error
}

func (f *fakeATS) Key() string         { return "fake_ats" }
func (f *fakeATS) DisplayName() string { return "Fake ATS" }
func (f *fakeATS) Kind() platforms.Kind { return platforms.KindAPI }

func (f *fakeATS) Acquire(ctx context.Context) (context.Context, error) { return ctx, nil }
func (f *fakeATS) Release() error                                       { return nil }
func (f *fakeATS) Init(ctx context.Context) error                       { return nil }
func (f *fakeATS) Search(ctx context.Context, query string) ([]*models.Job, error) {
	return nil, nil
}
func (f *fakeATS) GetJobDetails(ctx context.Context, job *models.Job) (*models.Job, error) {
	return job, nil
}
func (f *fakeATS) FillApplication(ctx context.Context, job *models.Job, profile *models.Profile, resumePath, coverLetterPath string) (map[string]string, error) {
	if f.fillErr != nil {
		return nil, f.fillErr
	}
	return f.filled, nil
}

func testJob(key, platform string, status models.JobStatus) *models.Job {
	return &models.Job{
		Key:      key,
		Platform: platform,
		Title:    "Engineer",
		Company:  "Acme",
		URL:      "https://example.com/jobs/1",
		ApplyURL: "https://example.com/jobs/1/apply",
		Status:   status,
	}
}

type testEnv struct {
	orch    *Orchestrator
	storage *memStorage
}

func newTestEnv(t *testing.T, confirmTimeout time.Duration) *testEnv {
	t.Helper()
	logger := arbor.NewLogger()

	registry := platforms.NewRegistry(logger)
	require.NoError(t, registry.Register("fake_ats", "Fake ATS", platforms.KindAPI, func() (platforms.Platform, error) {
		return &fakeATS{filled: map[string]string{"email": "jane@example.com", "first_name": "Jane"}}, nil
	}))
	registry.Seal()

	config := common.DefaultConfig()
	config.Apply.ConfirmTimeout = confirmTimeout
	config.Apply.ScreenshotDir = t.TempDir()

	storage := newMemStorage()
	orch := NewOrchestrator(&config.Apply, &config.Resume, registry, storage, logger)
	return &testEnv{orch: orch, storage: storage}
}

// drainUntilDone collects the full event stream, failing the test if the
// terminal done never arrives. onEvent runs after each event, letting tests
// confirm or cancel mid-stream.
func drainUntilDone(t *testing.T, session *Session, onEvent func(models.ApplyEvent)) []models.ApplyEvent {
	t.Helper()
	var events []models.ApplyEvent
	deadline := time.After(5 * time.Second)

	for {
		select {
		case ev := <-session.Events():
			events = append(events, ev)
			if onEvent != nil {
				onEvent(ev)
			}
			if ev.Terminal() {
				return events
			}
		case <-deadline:
			t.Fatalf("stream never terminated; got %d events", len(events))
		}
	}
}

func eventTypes(events []models.ApplyEvent) []models.ApplyEventType {
	out := make([]models.ApplyEventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestStartApplyHappyPathExternalATS(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "fake_ats", models.JobStatusDiscovered)))

	session, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	events := drainUntilDone(t, session, func(ev models.ApplyEvent) {
		if ev.Type == models.EventAwaitingConfirm {
			assert.True(t, env.orch.Confirm("acme--engineer"))
		}
	})

	types := eventTypes(events)
	assert.Equal(t, []models.ApplyEventType{
		models.EventProgress,        // Starting apply
		models.EventProgress,        // Using resume
		models.EventProgress,        // External ATS flow
		models.EventProgress,        // Opening URL
		models.EventProgress,        // Filled N fields
		models.EventAwaitingConfirm,
		models.EventConfirmed,
		models.EventDone,
	}, types)

	assert.Contains(t, events[0].Message, "Starting apply for Engineer at Acme")
	assert.Contains(t, events[4].Message, "Filled 2 form fields")
	assert.Equal(t, "jane@example.com", events[4].FieldsFilled["email"])

	assert.Equal(t,
		[]models.ActivityType{models.ActivityApplyStarted, models.ActivityApplyCompleted},
		env.storage.activityTypes("acme--engineer"))
}

func TestStartApplyAlreadyAppliedShortCircuit(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "fake_ats", models.JobStatusPhoneScreen)))

	session, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	events := drainUntilDone(t, session, nil)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "Already applied")
	assert.Contains(t, events[0].Message, "phone_screen")
	assert.Equal(t, models.EventDone, events[1].Type)

	// No worker launched, no activity, lease still free
	assert.Empty(t, env.storage.activityTypes("acme--engineer"))
	require.NoError(t, env.storage.SaveJob(ctx, testJob("other--engineer", "fake_ats", models.JobStatusDiscovered)))
	other, err := env.orch.StartApply(ctx, "other--engineer", models.ModeSemiAuto)
	require.NoError(t, err)
	env.orch.Cancel("other--engineer")
	drainUntilDone(t, other, nil)
}

func TestStartApplyUnknownPlatform(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "nope", models.JobStatusDiscovered)))

	session, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	events := drainUntilDone(t, session, nil)
	types := eventTypes(events)
	assert.Contains(t, types, models.EventError)
	assert.Equal(t, models.EventDone, types[len(types)-1])
}

func TestStartApplyMissingJob(t *testing.T) {
	env := newTestEnv(t, time.Second)

	session, err := env.orch.StartApply(context.Background(), "ghost--job", models.ModeSemiAuto)
	require.NoError(t, err)

	events := drainUntilDone(t, session, nil)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "No job found")
}

func TestStartApplyConfirmationTimeout(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "fake_ats", models.JobStatusDiscovered)))

	session, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	events := drainUntilDone(t, session, nil)
	types := eventTypes(events)
	assert.Contains(t, types, models.EventAwaitingConfirm)

	var errEvent *models.ApplyEvent
	for i := range events {
		if events[i].Type == models.EventError {
			errEvent = &events[i]
		}
	}
	require.NotNil(t, errEvent)
	assert.Contains(t, errEvent.Message, "Confirmation timed out")
	assert.Equal(t, models.EventDone, types[len(types)-1])

	assert.Contains(t, env.storage.activityTypes("acme--engineer"), models.ActivityApplyFailed)
}

func TestStartApplyCancellationMidWait(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "fake_ats", models.JobStatusDiscovered)))

	session, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	events := drainUntilDone(t, session, func(ev models.ApplyEvent) {
		if ev.Type == models.EventAwaitingConfirm {
			assert.True(t, env.orch.Cancel("acme--engineer"))
		}
	})

	final := events[len(events)-1]
	assert.Equal(t, models.EventDone, final.Type)
	assert.Contains(t, final.Message, "cancelled")

	// Cancellation emits no error event and records no completion
	assert.NotContains(t, eventTypes(events), models.EventError)
	assert.NotContains(t, env.storage.activityTypes("acme--engineer"), models.ActivityApplyCompleted)
}

func TestStartApplySameKeyRejected(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "fake_ats", models.JobStatusDiscovered)))

	session, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	_, err = env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	assert.ErrorIs(t, err, ErrApplyInProgress)

	env.orch.Cancel("acme--engineer")
	events := drainUntilDone(t, session, nil)
	assert.Equal(t, models.EventDone, events[len(events)-1].Type)
}

func TestStartApplyLeaseBusy(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "fake_ats", models.JobStatusDiscovered)))
	require.NoError(t, env.storage.SaveJob(ctx, testJob("globex--engineer", "fake_ats", models.JobStatusDiscovered)))

	first, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	// Default lease capacity is 1: a second job is rejected while the first
	// worker holds the permit.
	_, err = env.orch.StartApply(ctx, "globex--engineer", models.ModeSemiAuto)
	assert.ErrorIs(t, err, ErrBusy)

	env.orch.Cancel("acme--engineer")
	drainUntilDone(t, first, nil)
}

func TestExactlyOneTerminalPerSession(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveJob(ctx, testJob("acme--engineer", "fake_ats", models.JobStatusDiscovered)))

	session, err := env.orch.StartApply(ctx, "acme--engineer", models.ModeSemiAuto)
	require.NoError(t, err)

	events := drainUntilDone(t, session, nil)
	terminals := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.True(t, events[len(events)-1].Terminal())
}
