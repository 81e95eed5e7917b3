package repofake

import (
	"context"
	"sync"
	"time"

	"eduplatform/internal/cache"
)

type oneTimeEntry struct {
	identityID string
	expiresAt  time.Time
}

// OneTime mirrors cache.OneTimeTokens in memory.
type OneTime struct {
	mu      sync.Mutex
	entries map[string]oneTimeEntry
	now     func() time.Time

	Err error
}

func NewOneTime() *OneTime {
	return &OneTime{entries: make(map[string]oneTimeEntry), now: time.Now}
}

// SetClock replaces the clock used for expiry checks.
func (f *OneTime) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func (f *OneTime) Put(_ context.Context, purpose, token, identityID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.entries[purpose+":"+token] = oneTimeEntry{identityID: identityID, expiresAt: f.now().Add(ttl)}
	return nil
}

func (f *OneTime) Consume(_ context.Context, purpose, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	key := purpose + ":" + token
	entry, ok := f.entries[key]
	if !ok {
		return "", cache.ErrTokenNotFound
	}
	delete(f.entries, key)
	if !f.now().Before(entry.expiresAt) {
		return "", cache.ErrTokenNotFound
	}
	return entry.identityID, nil
}
