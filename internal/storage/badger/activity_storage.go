package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ActivityStorage implements the ActivityStorage interface for Badger
type ActivityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewActivityStorage creates a new ActivityStorage instance
func NewActivityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ActivityStorage {
	return &ActivityStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ActivityStorage) Record(ctx context.Context, jobKey string, eventType models.ActivityType, detail string) error {
	if jobKey == "" {
		return fmt.Errorf("job key is required")
	}

	entry := &models.Activity{
		JobKey:    jobKey,
		EventType: eventType,
		Detail:    detail,
		At:        time.Now(),
	}

	if err := s.db.Store().Insert(badgerhold.NextSequence(), entry); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	s.logger.Debug().
		Str("job_key", jobKey).
		Str("event_type", string(eventType)).
		Msg("Activity recorded")
	return nil
}

func (s *ActivityStorage) ListForJob(ctx context.Context, jobKey string, limit int) ([]*models.Activity, error) {
	query := badgerhold.Where("JobKey").Eq(jobKey).SortBy("At").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.Activity
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	result := make([]*models.Activity, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}
