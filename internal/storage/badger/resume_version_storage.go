package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ResumeVersionStorage implements the ResumeVersionStorage interface for Badger
type ResumeVersionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResumeVersionStorage creates a new ResumeVersionStorage instance
func NewResumeVersionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResumeVersionStorage {
	return &ResumeVersionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResumeVersionStorage) SaveVersion(ctx context.Context, version *models.ResumeVersion) error {
	if version.JobKey == "" {
		return fmt.Errorf("job key is required")
	}
	if version.ID == "" {
		version.ID = common.NewVersionID()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now()
	}

	// Version rows are append-only
	if err := s.db.Store().Insert(version.ID, version); err != nil {
		return fmt.Errorf("failed to save resume version: %w", err)
	}

	s.logger.Debug().
		Str("job_key", version.JobKey).
		Str("kind", string(version.Kind)).
		Str("file", version.FilePath).
		Msg("Resume version saved")
	return nil
}

func (s *ResumeVersionStorage) GetLatestFor(ctx context.Context, jobKey string, kind models.VersionKind) (*models.ResumeVersion, error) {
	var versions []models.ResumeVersion
	query := badgerhold.Where("JobKey").Eq(jobKey).And("Kind").Eq(kind).
		SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&versions, query); err != nil {
		return nil, fmt.Errorf("failed to query resume versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[0], nil
}

func (s *ResumeVersionStorage) GetAll(ctx context.Context, jobKey string) ([]*models.ResumeVersion, error) {
	var versions []models.ResumeVersion
	query := badgerhold.Where("JobKey").Eq(jobKey).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&versions, query); err != nil {
		return nil, fmt.Errorf("failed to list resume versions: %w", err)
	}

	result := make([]*models.ResumeVersion, len(versions))
	for i := range versions {
		result[i] = &versions[i]
	}
	return result, nil
}
