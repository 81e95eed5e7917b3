package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"eduplatform/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, identity_id, refresh_token_hash, origin_address, expires_at, is_active, created_at, updated_at`

type SessionRepository struct {
	db DB
}

func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) (models.Session, error) {
	const query = `
		INSERT INTO auth_sessions (
			id, identity_id, refresh_token_hash, origin_address, expires_at, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, TRUE, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		session.ID,
		session.IdentityID,
		session.RefreshTokenHash,
		session.OriginAddress,
		session.ExpiresAt,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return models.Session{}, oops.
			Code("SESSION_CREATE_FAILED").
			With("identity_id", session.IdentityID).
			Wrap(err)
	}
	session.Active = true
	return session, nil
}

// DeactivateAllForIdentity flips every active session of the identity and
// returns how many rows changed.
func (r *SessionRepository) DeactivateAllForIdentity(ctx context.Context, identityID string) (int64, error) {
	const query = `
		UPDATE auth_sessions SET is_active = FALSE, updated_at = NOW()
		WHERE identity_id = $1 AND is_active
	`
	cmd, err := r.db.Exec(ctx, query, identityID)
	if err != nil {
		return 0, oops.
			Code("SESSION_DEACTIVATE_FAILED").
			With("identity_id", identityID).
			Wrap(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) FindActiveByTokenHash(ctx context.Context, identityID, tokenHash string, now time.Time) (models.Session, error) {
	const query = `SELECT ` + sessionColumns + `
		FROM auth_sessions
		WHERE identity_id = $1 AND refresh_token_hash = $2 AND is_active AND expires_at > $3
	`
	row := r.db.QueryRow(ctx, query, identityID, tokenHash, now)
	var session models.Session
	if err := scanSession(row, &session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, oops.
			Code("SESSION_QUERY_FAILED").
			With("identity_id", identityID).
			Wrap(err)
	}
	return session, nil
}

func (r *SessionRepository) ListByIdentity(ctx context.Context, identityID string) ([]models.Session, error) {
	const query = `SELECT ` + sessionColumns + `
		FROM auth_sessions
		WHERE identity_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, oops.
			Code("SESSION_QUERY_FAILED").
			With("identity_id", identityID).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").Wrap(err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeactivateExpired flips sessions whose expiry has passed.
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE auth_sessions SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND expires_at <= $1
	`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return cmd.RowsAffected(), nil
}

func scanSession(row pgx.Row, session *models.Session) error {
	return row.Scan(
		&session.ID,
		&session.IdentityID,
		&session.RefreshTokenHash,
		&session.OriginAddress,
		&session.ExpiresAt,
		&session.Active,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
}
