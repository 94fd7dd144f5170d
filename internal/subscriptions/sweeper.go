package subscriptions

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically clears lapsed pause marks so paused records resume
// delivery without caller action.
type Sweeper struct {
	store Store
	log   *slog.Logger
	cron  *cron.Cron

	// Timeout bounds one sweep run.
	Timeout time.Duration
}

func NewSweeper(store Store, log *slog.Logger) *Sweeper {
	return &Sweeper{
		store:   store,
		log:     log,
		cron:    cron.New(),
		Timeout: 30 * time.Second,
	}
}

// Start schedules an hourly sweep. Returns after scheduling; sweeps run on
// the cron's own goroutine.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	n, err := s.store.ClearExpiredPauses(ctx, time.Now())
	if err != nil {
		s.log.Error("pause sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("pause sweep resumed subscriptions", "count", n)
	}
}
