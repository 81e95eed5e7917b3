package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"eduplatform/internal/ids"
	"eduplatform/internal/metrics"
	"eduplatform/internal/models"
)

// Origin describes where a request came from.
type Origin struct {
	Address string
	Agent   string
}

type AuditEntry struct {
	IdentityID string
	Role       models.Role
	Action     models.AuthAction
	Origin     Origin
	Success    bool
	Reason     string
}

// AuditLog appends authentication events. Recording is best-effort and
// never fails the calling flow.
type AuditLog struct {
	events  EventStore
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

type AuditOption func(*AuditLog)

func WithAuditClock(now func() time.Time) AuditOption {
	return func(a *AuditLog) {
		a.now = now
	}
}

func WithAuditMetrics(m *metrics.Metrics) AuditOption {
	return func(a *AuditLog) {
		a.metrics = m
	}
}

func NewAuditLog(events EventStore, log zerolog.Logger, opts ...AuditOption) *AuditLog {
	a := &AuditLog{
		events: events,
		log:    log.With().Str("component", "audit").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AuditLog) Record(ctx context.Context, entry AuditEntry) {
	event := models.AuthEvent{
		ID:            ids.New(),
		IdentityID:    optional(entry.IdentityID),
		Role:          entry.Role,
		Action:        entry.Action,
		OriginAddress: entry.Origin.Address,
		OriginAgent:   optional(entry.Origin.Agent),
		Success:       entry.Success,
		Reason:        optional(entry.Reason),
		CreatedAt:     a.now(),
	}

	a.metrics.AuthEvent(string(entry.Role), string(entry.Action), entry.Success)

	// A client hanging up must not drop the record.
	if err := a.events.Create(context.WithoutCancel(ctx), event); err != nil {
		a.log.Warn().
			Err(err).
			Str("role", string(entry.Role)).
			Str("action", string(entry.Action)).
			Bool("success", entry.Success).
			Msg("audit event not persisted")
	}
}

func (a *AuditLog) ListForIdentity(ctx context.Context, identityID string, limit int) ([]models.AuthEvent, error) {
	return a.events.ListByIdentity(ctx, identityID, limit)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
