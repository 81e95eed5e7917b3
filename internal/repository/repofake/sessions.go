package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"eduplatform/internal/models"
	"eduplatform/internal/repository"
)

type Sessions struct {
	mu   sync.RWMutex
	rows map[string]models.Session

	Err error
}

func NewSessions() *Sessions {
	return &Sessions{rows: make(map[string]models.Session)}
}

func (f *Sessions) Create(_ context.Context, session models.Session) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return models.Session{}, f.Err
	}
	now := time.Now()
	session.Active = true
	session.CreatedAt = now
	session.UpdatedAt = now
	f.rows[session.ID] = session
	return session, nil
}

func (f *Sessions) DeactivateAllForIdentity(_ context.Context, identityID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	var n int64
	for id, s := range f.rows {
		if s.IdentityID == identityID && s.Active {
			s.Active = false
			s.UpdatedAt = time.Now()
			f.rows[id] = s
			n++
		}
	}
	return n, nil
}

func (f *Sessions) FindActiveByTokenHash(_ context.Context, identityID, tokenHash string, now time.Time) (models.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Err != nil {
		return models.Session{}, f.Err
	}
	for _, s := range f.rows {
		if s.IdentityID == identityID && s.RefreshTokenHash == tokenHash && s.Live(now) {
			return s, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (f *Sessions) ListByIdentity(_ context.Context, identityID string) ([]models.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []models.Session
	for _, s := range f.rows {
		if s.IdentityID == identityID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *Sessions) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	var n int64
	for id, s := range f.rows {
		if s.Active && !now.Before(s.ExpiresAt) {
			s.Active = false
			f.rows[id] = s
			n++
		}
	}
	return n, nil
}

// Active returns the active sessions of identityID.
func (f *Sessions) Active(identityID string) []models.Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Session
	for _, s := range f.rows {
		if s.IdentityID == identityID && s.Active {
			out = append(out, s)
		}
	}
	return out
}

// Put stores session as-is. Test setup only.
func (f *Sessions) Put(session models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[session.ID] = session
}
