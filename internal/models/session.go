package models

import "time"

type Session struct {
	ID               string    `json:"id"`
	IdentityID       string    `json:"-"`
	RefreshTokenHash string    `json:"-"`
	OriginAddress    string    `json:"originAddress"`
	ExpiresAt        time.Time `json:"expiresAt"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (s Session) Live(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}
