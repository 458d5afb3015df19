package dedup

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically deletes processed markers older than the retention
// window. Markers are otherwise kept forever, so this is opt-in for
// operators who need to bound the table.
type Sweeper struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewSweeper creates a retention sweeper. retention must be positive.
func NewSweeper(store Store, retention time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start schedules a daily sweep. Returns immediately.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@daily", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule; a running sweep finishes.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.store.Prune(cutoff)
	if err != nil {
		s.logger.Error("marker retention sweep failed", "error", err)
		return
	}
	s.logger.Info("marker retention sweep complete", "deleted", n, "cutoff", cutoff)
}
