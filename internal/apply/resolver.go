package apply

import (
	"context"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

// ResumeResolver picks the artifact to attach to an application: the most
// recent tailored resume when one exists on disk, else the configured
// default. Resolve never fails; callers always receive a path.
type ResumeResolver struct {
	versions    interfaces.ResumeVersionStorage
	defaultPath string
	logger      arbor.ILogger
}

// NewResumeResolver creates a resolver with a default fallback path
func NewResumeResolver(versions interfaces.ResumeVersionStorage, defaultPath string, logger arbor.ILogger) *ResumeResolver {
	return &ResumeResolver{
		versions:    versions,
		defaultPath: defaultPath,
		logger:      logger,
	}
}

// Resolve returns the resume path for a job key.
func (r *ResumeResolver) Resolve(ctx context.Context, jobKey string) string {
	version, err := r.versions.GetLatestFor(ctx, jobKey, models.VersionKindResume)
	if err != nil {
		r.logger.Warn().Err(err).Str("job_key", jobKey).Msg("Resume version lookup failed; using default")
		return r.defaultPath
	}
	if version == nil {
		return r.defaultPath
	}

	if _, err := os.Stat(version.FilePath); err != nil {
		r.logger.Warn().
			Str("job_key", jobKey).
			Str("file_path", version.FilePath).
			Msg("Tailored resume missing on disk; using default")
		return r.defaultPath
	}

	return version.FilePath
}

// ResolveCoverLetter returns the latest cover letter path for a job key, or
// empty when none exists.
func (r *ResumeResolver) ResolveCoverLetter(ctx context.Context, jobKey string) string {
	version, err := r.versions.GetLatestFor(ctx, jobKey, models.VersionKindCoverLetter)
	if err != nil || version == nil {
		return ""
	}
	if _, err := os.Stat(version.FilePath); err != nil {
		return ""
	}
	return version.FilePath
}
