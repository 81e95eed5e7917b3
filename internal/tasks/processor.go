package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const TypeSessionSweep = "session_sweep"

// SessionSweeper deactivates sessions whose refresh token has expired.
type SessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type Processor struct {
	sweeper SessionSweeper
	logger  zerolog.Logger
}

func NewProcessor(sweeper SessionSweeper, logger zerolog.Logger) *Processor {
	return &Processor{
		sweeper: sweeper,
		logger:  logger,
	}
}

// Handle dispatches on the entry's "type" field. Unknown types are logged
// and acknowledged so they do not circulate through the pending list.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)

	switch taskType {
	case TypeSessionSweep:
		return p.handleSessionSweep(ctx, msg)
	default:
		p.logger.Warn().Str("type", taskType).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleSessionSweep(ctx context.Context, msg redis.XMessage) error {
	swept, err := p.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("session sweep: %w", err)
	}
	p.logger.Info().
		Str("message_id", msg.ID).
		Interface("requested_at", msg.Values["requestedAt"]).
		Int64("swept", swept).
		Msg("session sweep finished")
	return nil
}
