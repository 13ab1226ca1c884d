package maintenance

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
)

// Service prunes aged screenshots and generated artifacts on a cron schedule.
type Service struct {
	config *common.MaintenanceConfig
	dirs   []string
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewService creates the maintenance service. dirs are the directories whose
// files are subject to retention cleanup.
func NewService(config *common.MaintenanceConfig, dirs []string, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		dirs:   dirs,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the cleanup job and starts the scheduler. Disabled config
// is a no-op.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Maintenance disabled")
		return nil
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Int("retention_days", s.retentionDays()).
		Msg("Maintenance scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Service) retentionDays() int {
	if s.config.RetentionDays <= 0 {
		return 14
	}
	return s.config.RetentionDays
}

func (s *Service) runCleanup() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays())
	total := 0
	for _, dir := range s.dirs {
		total += s.cleanDir(dir, cutoff)
	}
	if total > 0 {
		s.logger.Info().Int("removed", total).Msg("Maintenance cleanup complete")
	}
}

// cleanDir removes regular files older than the cutoff. Subdirectories are
// left alone.
func (s *Service) cleanDir(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to read maintenance dir")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("Failed to remove aged file")
			continue
		}
		removed++
	}
	return removed
}
