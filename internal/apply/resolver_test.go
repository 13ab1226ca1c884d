package apply

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/models"
)

func TestResolverReturnsDefaultWhenNoVersion(t *testing.T) {
	storage := newMemStorage()
	r := NewResumeResolver(storage, "/resumes/default.pdf", arbor.NewLogger())

	assert.Equal(t, "/resumes/default.pdf", r.Resolve(context.Background(), "acme--engineer"))
}

func TestResolverReturnsTailoredWhenOnDisk(t *testing.T) {
	storage := newMemStorage()
	ctx := context.Background()

	tailored := filepath.Join(t.TempDir(), "tailored.pdf")
	require.NoError(t, os.WriteFile(tailored, []byte("pdf"), 0644))
	require.NoError(t, storage.SaveVersion(ctx, &models.ResumeVersion{
		ID: "v1", JobKey: "acme--engineer", Kind: models.VersionKindResume, FilePath: tailored,
	}))

	r := NewResumeResolver(storage, "/resumes/default.pdf", arbor.NewLogger())
	assert.Equal(t, tailored, r.Resolve(ctx, "acme--engineer"))
}

func TestResolverFallsBackWhenFileMissing(t *testing.T) {
	storage := newMemStorage()
	ctx := context.Background()

	require.NoError(t, storage.SaveVersion(ctx, &models.ResumeVersion{
		ID: "v1", JobKey: "acme--engineer", Kind: models.VersionKindResume, FilePath: "/nonexistent/tailored.pdf",
	}))

	r := NewResumeResolver(storage, "/resumes/default.pdf", arbor.NewLogger())
	assert.Equal(t, "/resumes/default.pdf", r.Resolve(ctx, "acme--engineer"))
}

func TestResolverIgnoresCoverLetterVersions(t *testing.T) {
	storage := newMemStorage()
	ctx := context.Background()

	cover := filepath.Join(t.TempDir(), "cover.pdf")
	require.NoError(t, os.WriteFile(cover, []byte("pdf"), 0644))
	require.NoError(t, storage.SaveVersion(ctx, &models.ResumeVersion{
		ID: "v1", JobKey: "acme--engineer", Kind: models.VersionKindCoverLetter, FilePath: cover,
	}))

	r := NewResumeResolver(storage, "/resumes/default.pdf", arbor.NewLogger())
	assert.Equal(t, "/resumes/default.pdf", r.Resolve(ctx, "acme--engineer"))
	assert.Equal(t, cover, r.ResolveCoverLetter(ctx, "acme--engineer"))
}

func TestDeduperAppliedSet(t *testing.T) {
	storage := newMemStorage()
	ctx := context.Background()
	d := NewDeduper(storage)

	tests := []struct {
		status  models.JobStatus
		applied bool
	}{
		{models.JobStatusDiscovered, false},
		{models.JobStatusSaved, false},
		{models.JobStatusApplied, true},
		{models.JobStatusPhoneScreen, true},
		{models.JobStatusTechnical, true},
		{models.JobStatusFinalInterview, true},
		{models.JobStatusOffer, true},
		{models.JobStatusRejected, false},
		{models.JobStatusWithdrawn, false},
	}

	for _, tt := range tests {
		require.NoError(t, storage.SaveJob(ctx, testJob("k", "fake_ats", tt.status)))
		job, err := d.IsAlreadyApplied(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, tt.applied, job != nil, "status %s", tt.status)
	}
}

func TestDeduperUnknownJob(t *testing.T) {
	d := NewDeduper(newMemStorage())
	job, err := d.IsAlreadyApplied(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, job)
}
