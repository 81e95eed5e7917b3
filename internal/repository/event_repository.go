package repository

import (
	"context"

	"github.com/samber/oops"

	"eduplatform/internal/models"
)

type EventRepository struct {
	db DB
}

func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event models.AuthEvent) error {
	const query = `
		INSERT INTO auth_events (
			id, identity_id, role, action, origin_address, origin_agent, success, reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.IdentityID,
		string(event.Role),
		string(event.Action),
		event.OriginAddress,
		event.OriginAgent,
		event.Success,
		event.Reason,
		event.CreatedAt,
	)
	if err != nil {
		return oops.
			Code("AUTH_EVENT_CREATE_FAILED").
			With("action", event.Action).
			Wrap(err)
	}
	return nil
}

func (r *EventRepository) ListByIdentity(ctx context.Context, identityID string, limit int) ([]models.AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, identity_id, role, action, origin_address, origin_agent, success, reason, created_at
		FROM auth_events
		WHERE identity_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, identityID, limit)
	if err != nil {
		return nil, oops.
			Code("AUTH_EVENT_QUERY_FAILED").
			With("identity_id", identityID).
			Wrap(err)
	}
	defer rows.Close()

	var events []models.AuthEvent
	for rows.Next() {
		var (
			event  models.AuthEvent
			role   string
			action string
		)
		if err := rows.Scan(
			&event.ID,
			&event.IdentityID,
			&role,
			&action,
			&event.OriginAddress,
			&event.OriginAgent,
			&event.Success,
			&event.Reason,
			&event.CreatedAt,
		); err != nil {
			return nil, oops.Code("AUTH_EVENT_SCAN_FAILED").Wrap(err)
		}
		event.Role = models.Role(role)
		event.Action = models.AuthAction(action)
		events = append(events, event)
	}
	return events, rows.Err()
}
