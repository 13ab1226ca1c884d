package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/common"
	"github.com/ternarybob/pursuit/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	job      interfaces.JobStorage
	activity interfaces.ActivityStorage
	version  interfaces.ResumeVersionStorage
	kv       interfaces.KeyValueStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		job:      NewJobStorage(db, logger),
		activity: NewActivityStorage(db, logger),
		version:  NewResumeVersionStorage(db, logger),
		kv:       NewKVStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// ActivityStorage returns the Activity storage interface
func (m *Manager) ActivityStorage() interfaces.ActivityStorage {
	return m.activity
}

// ResumeVersionStorage returns the ResumeVersion storage interface
func (m *Manager) ResumeVersionStorage() interfaces.ResumeVersionStorage {
	return m.version
}

// KVStorage returns the KeyValue storage interface
func (m *Manager) KVStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
