package apply

import (
	"context"
	"errors"

	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

// Deduper blocks re-applying to jobs whose persisted status says an
// application already went out.
type Deduper struct {
	jobs interfaces.JobStorage
}

// NewDeduper creates a deduper over the job store
func NewDeduper(jobs interfaces.JobStorage) *Deduper {
	return &Deduper{jobs: jobs}
}

// IsAlreadyApplied returns the job row when its status is in the applied set,
// nil otherwise. An unknown job key is not treated as applied.
func (d *Deduper) IsAlreadyApplied(ctx context.Context, jobKey string) (*models.Job, error) {
	job, err := d.jobs.GetJob(ctx, jobKey)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if job.Status.IsApplied() {
		return job, nil
	}
	return nil, nil
}
