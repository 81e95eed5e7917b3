package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"eduplatform/internal/ids"
	"eduplatform/internal/metrics"
	"eduplatform/internal/models"
	"eduplatform/internal/security"
)

// SessionLedger tracks issued refresh tokens. Rows are only ever flipped
// inactive, never removed.
type SessionLedger struct {
	sessions SessionStore
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

type LedgerOption func(*SessionLedger)

func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *SessionLedger) {
		l.now = now
	}
}

func WithLedgerMetrics(m *metrics.Metrics) LedgerOption {
	return func(l *SessionLedger) {
		l.metrics = m
	}
}

func NewSessionLedger(sessions SessionStore, log zerolog.Logger, opts ...LedgerOption) *SessionLedger {
	l := &SessionLedger{
		sessions: sessions,
		log:      log.With().Str("component", "session_ledger").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SessionLedger) Record(ctx context.Context, identityID, refreshToken, origin string, expiresAt time.Time) (models.Session, error) {
	session, err := l.sessions.Create(ctx, models.Session{
		ID:               ids.New(),
		IdentityID:       identityID,
		RefreshTokenHash: security.HashToken(refreshToken),
		OriginAddress:    origin,
		ExpiresAt:        expiresAt,
		Active:           true,
	})
	if err != nil {
		return models.Session{}, oops.With("identity_id", identityID).Wrapf(err, "record session")
	}
	return session, nil
}

// InvalidateAll deactivates every active session of the identity. Zero
// active sessions is not an error.
func (l *SessionLedger) InvalidateAll(ctx context.Context, identityID string) (int64, error) {
	n, err := l.sessions.DeactivateAllForIdentity(ctx, identityID)
	if err != nil {
		return 0, oops.With("identity_id", identityID).Wrapf(err, "invalidate sessions")
	}
	l.log.Debug().Str("identity_id", identityID).Int64("count", n).Msg("sessions invalidated")
	return n, nil
}

// Validate finds the active, unexpired session holding refreshToken.
func (l *SessionLedger) Validate(ctx context.Context, identityID, refreshToken string) (models.Session, error) {
	return l.sessions.FindActiveByTokenHash(ctx, identityID, security.HashToken(refreshToken), l.now())
}

func (l *SessionLedger) List(ctx context.Context, identityID string) ([]models.Session, error) {
	sessions, err := l.sessions.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, oops.With("identity_id", identityID).Wrapf(err, "list sessions")
	}
	return sessions, nil
}

// Sweep deactivates sessions past their expiry.
func (l *SessionLedger) Sweep(ctx context.Context) (int64, error) {
	n, err := l.sessions.DeactivateExpired(ctx, l.now())
	if err != nil {
		return 0, oops.Wrapf(err, "sweep sessions")
	}
	l.metrics.SessionsSwept(n)
	if n > 0 {
		l.log.Info().Int64("count", n).Msg("expired sessions deactivated")
	}
	return n, nil
}
