package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"eduplatform/internal/tasks"
)

// Enqueuer hands a task to the worker queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, values map[string]any) (string, error)
}

type Scheduler struct {
	cron          *cron.Cron
	queue         Enqueuer
	sweepSchedule string
	log           zerolog.Logger
	now           func() time.Time
}

// NewScheduler schedules the session sweep with a six-field cron expression
// (seconds first). A nil queue or an empty schedule leaves it idle.
func NewScheduler(queue Enqueuer, sweepSchedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		queue:         queue,
		sweepSchedule: sweepSchedule,
		log:           log,
		now:           time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.sweepSchedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.sweepSchedule, s.enqueueSessionSweep); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.sweepSchedule).Msg("session sweep scheduled")
	return nil
}

// Stop waits up to five seconds for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueSessionSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.queue.Enqueue(ctx, tasks.TypeSessionSweep, map[string]any{
		"requestedAt": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue session sweep failed")
		return
	}
	s.log.Debug().Str("message_id", id).Msg("session sweep enqueued")
}
