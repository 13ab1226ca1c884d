package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	mgr, err := NewManager(common.GetLogger(), &common.BadgerConfig{
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestJobStorageRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	job := &models.Job{
		Key:      "acme--backend-engineer",
		Platform: "linkedin",
		Title:    "Backend Engineer",
		Company:  "Acme",
		URL:      "https://example.com/jobs/1",
		Status:   models.JobStatusDiscovered,
	}
	require.NoError(t, mgr.JobStorage().SaveJob(ctx, job))

	got, err := mgr.JobStorage().GetJob(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, models.JobStatusDiscovered, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, mgr.JobStorage().UpdateStatus(ctx, job.Key, models.JobStatusApplied))
	got, err = mgr.JobStorage().GetJob(ctx, job.Key)
	require.NoError(t, err)
	assert.True(t, got.Status.IsApplied())

	_, err = mgr.JobStorage().GetJob(ctx, "no-such-key")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestJobStorageListFilters(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	for _, j := range []*models.Job{
		{Key: "a--one", Platform: "linkedin", Status: models.JobStatusDiscovered},
		{Key: "b--two", Platform: "linkedin", Status: models.JobStatusApplied},
		{Key: "c--three", Platform: "external_ats", Status: models.JobStatusDiscovered},
	} {
		require.NoError(t, mgr.JobStorage().SaveJob(ctx, j))
	}

	jobs, err := mgr.JobStorage().ListJobs(ctx, &interfaces.JobListOptions{Platform: "linkedin"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = mgr.JobStorage().ListJobs(ctx, &interfaces.JobListOptions{Status: models.JobStatusApplied})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "b--two", jobs[0].Key)
}

func TestActivityStorageOrdering(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.ActivityStorage().Record(ctx, "k1", models.ActivityApplyStarted, ""))
	require.NoError(t, mgr.ActivityStorage().Record(ctx, "k1", models.ActivityApplyCompleted, "done"))
	require.NoError(t, mgr.ActivityStorage().Record(ctx, "k2", models.ActivityApplyFailed, "boom"))

	entries, err := mgr.ActivityStorage().ListForJob(ctx, "k1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first
	assert.Equal(t, models.ActivityApplyCompleted, entries[0].EventType)
}

func TestResumeVersionLatest(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	first := &models.ResumeVersion{
		JobKey:   "k1",
		Kind:     models.VersionKindResume,
		FilePath: "/tmp/a.pdf",
	}
	require.NoError(t, mgr.ResumeVersionStorage().SaveVersion(ctx, first))

	second := &models.ResumeVersion{
		JobKey:   "k1",
		Kind:     models.VersionKindResume,
		FilePath: "/tmp/b.pdf",
	}
	// Force a later CreatedAt so ordering is deterministic
	second.CreatedAt = first.CreatedAt.Add(1)
	require.NoError(t, mgr.ResumeVersionStorage().SaveVersion(ctx, second))

	cover := &models.ResumeVersion{
		JobKey:   "k1",
		Kind:     models.VersionKindCoverLetter,
		FilePath: "/tmp/c.pdf",
	}
	require.NoError(t, mgr.ResumeVersionStorage().SaveVersion(ctx, cover))

	latest, err := mgr.ResumeVersionStorage().GetLatestFor(ctx, "k1", models.VersionKindResume)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "/tmp/b.pdf", latest.FilePath)

	none, err := mgr.ResumeVersionStorage().GetLatestFor(ctx, "k2", models.VersionKindResume)
	require.NoError(t, err)
	assert.Nil(t, none)

	all, err := mgr.ResumeVersionStorage().GetAll(ctx, "k1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestKVStorageCaseInsensitive(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.KVStorage().Set(ctx, "Profile_Email", "me@example.com", ""))

	v, err := mgr.KVStorage().Get(ctx, "profile_email")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", v)

	_, err = mgr.KVStorage().Get(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}
