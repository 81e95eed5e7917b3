package repofake

import (
	"context"
	"strings"
	"sync"
	"time"

	"eduplatform/internal/models"
	"eduplatform/internal/repository"
)

// Identities is an in-memory identity store with the same uniqueness rule
// as the database: one account per e-mail across all roles.
type Identities struct {
	mu   sync.RWMutex
	byID map[string]models.Identity

	// Err, when set, is returned by every method.
	Err error
	// LastLoginErr is returned only by UpdateLastLogin.
	LastLoginErr error
}

func NewIdentities() *Identities {
	return &Identities{byID: make(map[string]models.Identity)}
}

func (f *Identities) Create(_ context.Context, identity models.Identity) (models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return models.Identity{}, f.Err
	}
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, identity.Email) {
			return models.Identity{}, repository.ErrEmailTaken
		}
	}
	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	f.byID[identity.ID] = identity
	return identity, nil
}

func (f *Identities) FindByEmail(_ context.Context, email string) (models.Identity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Err != nil {
		return models.Identity{}, f.Err
	}
	for _, identity := range f.byID {
		if strings.EqualFold(identity.Email, email) {
			return identity, nil
		}
	}
	return models.Identity{}, repository.ErrIdentityNotFound
}

func (f *Identities) FindByEmailAndRole(ctx context.Context, email string, role models.Role) (models.Identity, error) {
	identity, err := f.FindByEmail(ctx, email)
	if err != nil {
		return models.Identity{}, err
	}
	if identity.Role != role {
		return models.Identity{}, repository.ErrIdentityNotFound
	}
	return identity, nil
}

func (f *Identities) GetByID(_ context.Context, id string) (models.Identity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Err != nil {
		return models.Identity{}, f.Err
	}
	identity, ok := f.byID[id]
	if !ok {
		return models.Identity{}, repository.ErrIdentityNotFound
	}
	return identity, nil
}

func (f *Identities) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	return f.update(id, func(identity *models.Identity) {
		identity.PasswordHash = &passwordHash
	})
}

func (f *Identities) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	if f.LastLoginErr != nil {
		return f.LastLoginErr
	}
	return f.update(id, func(identity *models.Identity) {
		identity.LastLoginAt = &at
	})
}

func (f *Identities) MarkEmailVerified(_ context.Context, id string) error {
	return f.update(id, func(identity *models.Identity) {
		identity.EmailVerified = true
	})
}

func (f *Identities) UpdateProfile(_ context.Context, id string, update models.ProfileUpdate) (models.Identity, error) {
	var updated models.Identity
	err := f.update(id, func(identity *models.Identity) {
		if update.FirstName != nil {
			identity.FirstName = *update.FirstName
		}
		if update.LastName != nil {
			identity.LastName = *update.LastName
		}
		if update.Bio != nil {
			identity.Bio = update.Bio
		}
		if update.PhoneNumber != nil {
			identity.PhoneNumber = update.PhoneNumber
		}
		if update.ProfilePicture != nil {
			identity.ProfilePicture = update.ProfilePicture
		}
		updated = *identity
	})
	return updated, err
}

// Put stores identity as-is, bypassing the uniqueness check. Test setup only.
func (f *Identities) Put(identity models.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[identity.ID] = identity
}

func (f *Identities) update(id string, mutate func(*models.Identity)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	identity, ok := f.byID[id]
	if !ok {
		return repository.ErrIdentityNotFound
	}
	mutate(&identity)
	identity.UpdatedAt = time.Now()
	f.byID[id] = identity
	return nil
}
