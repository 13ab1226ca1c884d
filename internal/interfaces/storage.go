package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/pursuit/internal/models"
)

// ErrKeyNotFound is returned by key/value lookups when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrJobNotFound is returned when no job row exists for a key.
var ErrJobNotFound = errors.New("job not found")

// KeyValuePair represents a stored key/value setting.
type KeyValuePair struct {
	Key         string    `json:"key" badgerhold:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobStorage reads and writes job posting rows.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, key string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	UpdateStatus(ctx context.Context, key string, status models.JobStatus) error
	DeleteJob(ctx context.Context, key string) error
}

// JobListOptions filters and pages job listings.
type JobListOptions struct {
	Status   models.JobStatus
	Platform string
	Limit    int
	Offset   int
}

// ActivityStorage appends and lists audit entries per job key.
type ActivityStorage interface {
	Record(ctx context.Context, jobKey string, eventType models.ActivityType, detail string) error
	ListForJob(ctx context.Context, jobKey string, limit int) ([]*models.Activity, error)
}

// ResumeVersionStorage persists generated artifact records. The contract is
// deliberately narrow so the underlying store stays replaceable.
type ResumeVersionStorage interface {
	SaveVersion(ctx context.Context, version *models.ResumeVersion) error
	GetLatestFor(ctx context.Context, jobKey string, kind models.VersionKind) (*models.ResumeVersion, error)
	GetAll(ctx context.Context, jobKey string) ([]*models.ResumeVersion, error)
}

// KeyValueStorage stores settings and the applicant profile.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	List(ctx context.Context) ([]*KeyValuePair, error)
	Delete(ctx context.Context, key string) error
}

// StorageManager aggregates the typed stores behind one lifecycle.
type StorageManager interface {
	JobStorage() JobStorage
	ActivityStorage() ActivityStorage
	ResumeVersionStorage() ResumeVersionStorage
	KVStorage() KeyValueStorage
	Close() error
}
