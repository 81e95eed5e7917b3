package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"eduplatform/internal/models"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrEmailTaken       = errors.New("email already registered")
)

const identityColumns = `id, email, password_hash, first_name, last_name, role, is_active, email_verified,
	last_login_at, bio, phone_number, profile_picture, created_at, updated_at`

type IdentityRepository struct {
	db DB
}

func NewIdentityRepository(db DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) Create(ctx context.Context, identity models.Identity) (models.Identity, error) {
	const query = `
		INSERT INTO identities (
			id, email, password_hash, first_name, last_name, role, is_active, email_verified, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		identity.ID,
		identity.Email,
		identity.PasswordHash,
		identity.FirstName,
		identity.LastName,
		string(identity.Role),
		identity.Active,
		identity.EmailVerified,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return models.Identity{}, ErrEmailTaken
		}
		return models.Identity{}, oops.
			Code("IDENTITY_CREATE_FAILED").
			With("role", identity.Role).
			Wrap(err)
	}
	return identity, nil
}

// FindByEmail looks across all roles; emails are unique platform-wide.
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE lower(email) = lower($1)`
	return r.scanOne(r.db.QueryRow(ctx, query, email), "find_by_email")
}

func (r *IdentityRepository) FindByEmailAndRole(ctx context.Context, email string, role models.Role) (models.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE lower(email) = lower($1) AND role = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, email, string(role)), "find_by_email_and_role")
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (models.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id), "get_by_id")
}

func (r *IdentityRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	const query = `UPDATE identities SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "update_password", query, id, passwordHash)
}

func (r *IdentityRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE identities SET last_login_at = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "update_last_login", query, id, at)
}

func (r *IdentityRepository) MarkEmailVerified(ctx context.Context, id string) error {
	const query = `UPDATE identities SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "mark_email_verified", query, id)
}

func (r *IdentityRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (models.Identity, error) {
	const query = `
		UPDATE identities SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			bio = COALESCE($4, bio),
			phone_number = COALESCE($5, phone_number),
			profile_picture = COALESCE($6, profile_picture),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + identityColumns

	row := r.db.QueryRow(ctx, query,
		id,
		update.FirstName,
		update.LastName,
		update.Bio,
		update.PhoneNumber,
		update.ProfilePicture,
	)
	return r.scanOne(row, "update_profile")
}

func (r *IdentityRepository) scanOne(row pgx.Row, operation string) (models.Identity, error) {
	var (
		identity models.Identity
		role     string
	)
	if err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&identity.FirstName,
		&identity.LastName,
		&role,
		&identity.Active,
		&identity.EmailVerified,
		&identity.LastLoginAt,
		&identity.Bio,
		&identity.PhoneNumber,
		&identity.ProfilePicture,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, ErrIdentityNotFound
		}
		return models.Identity{}, oops.
			Code("IDENTITY_QUERY_FAILED").
			With("operation", operation).
			Wrap(err)
	}
	identity.Role = models.Role(role)
	return identity, nil
}

func (r *IdentityRepository) execOne(ctx context.Context, operation, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return oops.
			Code("IDENTITY_UPDATE_FAILED").
			With("operation", operation).
			Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}
	return nil
}
