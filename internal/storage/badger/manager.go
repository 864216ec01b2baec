package badger

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	keyword interfaces.KeywordStorage
	media   interfaces.MediaStorage
	kv      interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig, queryTimeout time.Duration) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config, queryTimeout)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		keyword: NewKeywordStorage(db, logger),
		media:   NewMediaStorage(db, logger),
		kv:      NewKVStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// KeywordStorage returns the keyword storage interface
func (m *Manager) KeywordStorage() interfaces.KeywordStorage {
	return m.keyword
}

// MediaStorage returns the media storage interface
func (m *Manager) MediaStorage() interfaces.MediaStorage {
	return m.media
}

// KeyValueStorage returns the KV storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// RunValueLogGC triggers one round of Badger value-log garbage collection
func (m *Manager) RunValueLogGC() error {
	return m.db.Store().Badger().RunValueLogGC(0.5)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
