package models

import "time"

type AuthAction string

const (
	ActionRegister       AuthAction = "register"
	ActionLogin          AuthAction = "login"
	ActionLogout         AuthAction = "logout"
	ActionPasswordChange AuthAction = "password_change"
	ActionPasswordReset  AuthAction = "password_reset"
	ActionEmailVerify    AuthAction = "email_verify"
)

// AuthEvent is an append-only audit record. IdentityID is nil when the
// attempt could not be tied to an account.
type AuthEvent struct {
	ID            string
	IdentityID    *string
	Role          Role
	Action        AuthAction
	OriginAddress string
	OriginAgent   *string
	Success       bool
	Reason        *string
	CreatedAt     time.Time
}
