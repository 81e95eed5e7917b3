package repofake

import (
	"context"
	"sync"

	"eduplatform/internal/models"
)

type Events struct {
	mu     sync.RWMutex
	events []models.AuthEvent

	Err error
}

func NewEvents() *Events {
	return &Events{}
}

func (f *Events) Create(_ context.Context, event models.AuthEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *Events) ListByIdentity(_ context.Context, identityID string, limit int) ([]models.AuthEvent, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []models.AuthEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		e := f.events[i]
		if e.IdentityID != nil && *e.IdentityID == identityID {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// All returns every recorded event in insertion order.
func (f *Events) All() []models.AuthEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.AuthEvent, len(f.events))
	copy(out, f.events)
	return out
}

// Last returns the most recent event and false when none exist.
func (f *Events) Last() (models.AuthEvent, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.events) == 0 {
		return models.AuthEvent{}, false
	}
	return f.events[len(f.events)-1], true
}
