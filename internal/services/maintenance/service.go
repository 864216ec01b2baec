// -----------------------------------------------------------------------
// Maintenance - Scheduled storage compaction and orphan cleanup
// -----------------------------------------------------------------------

package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/interfaces"
)

// ValueLogCompactor triggers value log garbage collection on the store
type ValueLogCompactor interface {
	RunValueLogGC() error
}

// Service runs periodic housekeeping: value log compaction on the store
// and removal of frame analyses whose parent asset no longer exists.
type Service struct {
	compactor ValueLogCompactor
	media     interfaces.MediaStorage
	cron      *cron.Cron
	logger    arbor.ILogger
}

// NewService creates a maintenance service
func NewService(compactor ValueLogCompactor, media interfaces.MediaStorage, logger arbor.ILogger) *Service {
	return &Service{
		compactor: compactor,
		media:     media,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start begins scheduled maintenance runs
func (s *Service) Start(schedule string) error {
	if schedule == "" {
		// Default: daily at 03:00
		schedule = "0 3 * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runMaintenance()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Maintenance scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

// RunNow triggers an immediate maintenance run
func (s *Service) RunNow() {
	s.logger.Info().Msg("Triggering immediate maintenance run")
	go s.runMaintenance()
}

func (s *Service) runMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	startTime := time.Now()
	s.logger.Info().Msg("Starting scheduled maintenance")

	removed := s.sweepOrphanFrames(ctx)

	if err := s.compactor.RunValueLogGC(); err != nil {
		// badger returns an error when there was nothing to rewrite
		s.logger.Debug().Err(err).Msg("Value log compaction skipped")
	}

	s.logger.Info().
		Int("orphan_frames_removed", removed).
		Dur("duration", time.Since(startTime)).
		Msg("Scheduled maintenance completed")
}

// sweepOrphanFrames deletes frame analyses left behind by deleted assets
func (s *Service) sweepOrphanFrames(ctx context.Context) int {
	orphans, err := s.media.ListOrphanFrameAnalyses(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Orphan frame scan failed")
		return 0
	}

	removed := 0
	for _, frame := range orphans {
		if err := s.media.DeleteFrameAnalysis(ctx, frame.ID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("frame_id", frame.ID).
				Msg("Failed to delete orphan frame analysis")
			continue
		}
		removed++
	}
	return removed
}
