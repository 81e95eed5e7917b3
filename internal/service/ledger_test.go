package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduplatform/internal/metrics"
	"eduplatform/internal/repository"
	"eduplatform/internal/repository/repofake"
)

func TestSessionLedger_RecordAndValidate(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	sessions := repofake.NewSessions()
	ledger := NewSessionLedger(sessions, zerolog.Nop(), WithLedgerClock(clock.Now))

	recorded, err := ledger.Record(ctx, "id-1", "refresh-token", "10.0.0.1", clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, recorded.ID)
	assert.NotEqual(t, "refresh-token", recorded.RefreshTokenHash)

	found, err := ledger.Validate(ctx, "id-1", "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, recorded.ID, found.ID)

	_, err = ledger.Validate(ctx, "id-1", "other-token")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	_, err = ledger.Validate(ctx, "id-2", "refresh-token")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestSessionLedger_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	sessions := repofake.NewSessions()
	ledger := NewSessionLedger(sessions, zerolog.Nop())
	expires := time.Now().Add(time.Hour)

	for _, token := range []string{"a", "b", "c"} {
		_, err := ledger.Record(ctx, "id-1", token, "", expires)
		require.NoError(t, err)
	}
	_, err := ledger.Record(ctx, "id-2", "d", "", expires)
	require.NoError(t, err)

	n, err := ledger.InvalidateAll(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Empty(t, sessions.Active("id-1"))
	assert.Len(t, sessions.Active("id-2"), 1)

	n, err = ledger.InvalidateAll(ctx, "id-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionLedger_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	sessions := repofake.NewSessions()
	ledger := NewSessionLedger(sessions, zerolog.Nop(), WithLedgerClock(clock.Now), WithLedgerMetrics(metrics.New()))

	_, err := ledger.Record(ctx, "id-1", "short", "", clock.Now().Add(time.Minute))
	require.NoError(t, err)
	_, err = ledger.Record(ctx, "id-1", "long", "", clock.Now().Add(24*time.Hour))
	require.NoError(t, err)

	clock.Advance(time.Hour)

	n, err := ledger.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active := sessions.Active("id-1")
	require.Len(t, active, 1)
	assert.Equal(t, clock.Now().Add(23*time.Hour), active[0].ExpiresAt)
}

func TestSessionLedger_StoreErrors(t *testing.T) {
	ctx := context.Background()
	sessions := repofake.NewSessions()
	sessions.Err = errors.New("connection refused")
	ledger := NewSessionLedger(sessions, zerolog.Nop())

	_, err := ledger.Record(ctx, "id-1", "t", "", time.Now())
	assert.ErrorContains(t, err, "connection refused")

	_, err = ledger.InvalidateAll(ctx, "id-1")
	assert.ErrorContains(t, err, "connection refused")

	_, err = ledger.Sweep(ctx)
	assert.ErrorContains(t, err, "connection refused")
}
