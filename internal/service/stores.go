package service

import (
	"context"
	"time"

	"eduplatform/internal/models"
)

type IdentityStore interface {
	Create(ctx context.Context, identity models.Identity) (models.Identity, error)
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
	FindByEmailAndRole(ctx context.Context, email string, role models.Role) (models.Identity, error)
	GetByID(ctx context.Context, id string) (models.Identity, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	MarkEmailVerified(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (models.Identity, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) (models.Session, error)
	DeactivateAllForIdentity(ctx context.Context, identityID string) (int64, error)
	FindActiveByTokenHash(ctx context.Context, identityID, tokenHash string, now time.Time) (models.Session, error)
	ListByIdentity(ctx context.Context, identityID string) ([]models.Session, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type EventStore interface {
	Create(ctx context.Context, event models.AuthEvent) error
	ListByIdentity(ctx context.Context, identityID string, limit int) ([]models.AuthEvent, error)
}

// OneTimeStore holds single-use tokens for a purpose.
type OneTimeStore interface {
	Put(ctx context.Context, purpose, token, identityID string, ttl time.Duration) error
	Consume(ctx context.Context, purpose, token string) (string, error)
}
