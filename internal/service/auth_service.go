package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"eduplatform/internal/cache"
	"eduplatform/internal/config"
	"eduplatform/internal/ids"
	"eduplatform/internal/models"
	"eduplatform/internal/repository"
	"eduplatform/internal/security"
)

const (
	purposeVerifyEmail   = "verify_email"
	purposePasswordReset = "password_reset"

	defaultVerifyTokenTTL = 24 * time.Hour
	defaultResetTokenTTL  = time.Hour
)

// Audit reasons.
const (
	ReasonUserNotFound     = "User not found"
	ReasonInvalidPassword  = "Invalid password"
	ReasonAccountInactive  = "Account inactive"
	ReasonPasswordNotSet   = "Password not set"
	ReasonEmailTaken       = "Email already registered"
	ReasonWeakPassword     = "Weak password"
	ReasonPasswordMismatch = "Current password mismatch"
	ReasonSessionFailed    = "Session could not be recorded"
	ReasonInvalidToken     = "Invalid or expired token"
	ReasonLookupFailed     = "Lookup failed"
	ReasonStoreError       = "Store error"
	ReasonInternal         = "Internal error"
)

// Dependencies are the collaborators an AuthService needs. OneTime may be
// nil for roles without e-mail verification or password reset.
type Dependencies struct {
	Identities IdentityStore
	Ledger     *SessionLedger
	Audit      *AuditLog
	OneTime    OneTimeStore
	Hasher     *security.PasswordHasher
	Tokens     *security.TokenIssuer
}

// AuthService runs the authentication flows for the one role named by its policy.
type AuthService struct {
	policy     RolePolicy
	identities IdentityStore
	ledger     *SessionLedger
	audit      *AuditLog
	oneTime    OneTimeStore
	hasher     *security.PasswordHasher
	tokens     *security.TokenIssuer
	cfg        config.SecurityConfig
	log        zerolog.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*AuthService)

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

func NewAuthService(policy RolePolicy, deps Dependencies, cfg config.SecurityConfig, log zerolog.Logger, opts ...Option) (*AuthService, error) {
	if !policy.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", policy.Role)
	}
	switch {
	case deps.Identities == nil:
		return nil, errors.New("identity store is required")
	case deps.Ledger == nil:
		return nil, errors.New("session ledger is required")
	case deps.Audit == nil:
		return nil, errors.New("audit log is required")
	case deps.Hasher == nil:
		return nil, errors.New("password hasher is required")
	case deps.Tokens == nil:
		return nil, errors.New("token issuer is required")
	case deps.OneTime == nil && (policy.EmailVerification || policy.PasswordReset):
		return nil, fmt.Errorf("one-time token store is required for %s", policy.Role)
	}

	if cfg.VerifyTokenTTL <= 0 {
		cfg.VerifyTokenTTL = defaultVerifyTokenTTL
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = defaultResetTokenTTL
	}

	s := &AuthService{
		policy:     policy,
		identities: deps.Identities,
		ledger:     deps.Ledger,
		audit:      deps.Audit,
		oneTime:    deps.OneTime,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		cfg:        cfg,
		log:        log.With().Str("role", string(policy.Role)).Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *AuthService) Policy() RolePolicy {
	return s.policy
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Origin    Origin
}

type RegisterResult struct {
	Identity models.IdentitySummary
	// VerificationToken is set for roles that verify e-mail after signup.
	VerificationToken string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return RegisterResult{}, newError(ErrInvalidInput, "email and password are required")
	}

	if _, err := s.identities.FindByEmail(ctx, email); err == nil {
		s.record(ctx, "", models.ActionRegister, input.Origin, false, ReasonEmailTaken)
		return RegisterResult{}, newError(ErrConflict, "User with this email already exists")
	} else if !errors.Is(err, repository.ErrIdentityNotFound) {
		s.record(ctx, "", models.ActionRegister, input.Origin, false, ReasonLookupFailed)
		return RegisterResult{}, s.wrap(err, "register")
	}

	if strength := s.hasher.AssessStrength(input.Password); !strength.Valid {
		s.record(ctx, "", models.ActionRegister, input.Origin, false, ReasonWeakPassword)
		return RegisterResult{}, newError(ErrInvalidInput, strength.Reason)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.record(ctx, "", models.ActionRegister, input.Origin, false, ReasonInternal)
		return RegisterResult{}, s.wrap(err, "register")
	}

	// The verification token is stored before the identity so a student is
	// never created without a way to verify.
	id := ids.New()
	var verificationToken string
	if s.policy.EmailVerification && !s.policy.VerifiedOnRegister {
		verificationToken, err = s.issueOneTime(ctx, purposeVerifyEmail, id, s.cfg.VerifyTokenTTL)
		if err != nil {
			s.record(ctx, "", models.ActionRegister, input.Origin, false, ReasonStoreError)
			return RegisterResult{}, s.wrap(err, "register")
		}
	}

	identity, err := s.identities.Create(ctx, models.Identity{
		ID:            id,
		Email:         email,
		PasswordHash:  &hash,
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Role:          s.policy.Role,
		Active:        true,
		EmailVerified: s.policy.VerifiedOnRegister,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			s.record(ctx, "", models.ActionRegister, input.Origin, false, ReasonEmailTaken)
			return RegisterResult{}, newError(ErrConflict, "User with this email already exists")
		}
		s.record(ctx, "", models.ActionRegister, input.Origin, false, ReasonStoreError)
		return RegisterResult{}, s.wrap(err, "register")
	}

	result := RegisterResult{Identity: identity.Summary(), VerificationToken: verificationToken}

	s.record(ctx, identity.ID, models.ActionRegister, input.Origin, true, "")
	return result, nil
}

type LoginInput struct {
	Email    string
	Password string
	Origin   Origin
}

type LoginResult struct {
	Identity     models.IdentitySummary
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := normalizeEmail(input.Email)

	identity, err := s.identities.FindByEmailAndRole(ctx, email, s.policy.Role)
	if err != nil {
		if !errors.Is(err, repository.ErrIdentityNotFound) {
			s.record(ctx, "", models.ActionLogin, input.Origin, false, ReasonLookupFailed)
			return LoginResult{}, s.wrap(err, "login")
		}
		s.hasher.Verify(input.Password, s.dummy())
		s.record(ctx, "", models.ActionLogin, input.Origin, false, ReasonUserNotFound)
		return LoginResult{}, newError(ErrInvalidCredentials, "Invalid credentials")
	}

	if !identity.Active {
		s.record(ctx, identity.ID, models.ActionLogin, input.Origin, false, ReasonAccountInactive)
		return LoginResult{}, newError(ErrAccountInactive, "Account is inactive")
	}

	if identity.PasswordHash == nil {
		s.hasher.Verify(input.Password, s.dummy())
		s.record(ctx, identity.ID, models.ActionLogin, input.Origin, false, ReasonPasswordNotSet)
		return LoginResult{}, newError(ErrInvalidCredentials, "Invalid credentials")
	}
	if !s.hasher.Verify(input.Password, *identity.PasswordHash) {
		s.record(ctx, identity.ID, models.ActionLogin, input.Origin, false, ReasonInvalidPassword)
		return LoginResult{}, newError(ErrInvalidCredentials, "Invalid credentials")
	}

	pair, err := s.tokens.IssuePair(subjectOf(identity))
	if err != nil {
		s.record(ctx, identity.ID, models.ActionLogin, input.Origin, false, ReasonInternal)
		return LoginResult{}, s.wrap(err, "login")
	}

	now := s.now()
	if _, err := s.ledger.Record(ctx, identity.ID, pair.RefreshToken, input.Origin.Address, now.Add(security.RefreshTTL)); err != nil {
		s.record(ctx, identity.ID, models.ActionLogin, input.Origin, false, ReasonSessionFailed)
		return LoginResult{}, s.wrap(err, "login")
	}

	if err := s.identities.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		s.log.Warn().Err(err).Str("identity_id", identity.ID).Msg("last login not updated")
	}
	s.upgradeHash(ctx, identity.ID, input.Password, *identity.PasswordHash)

	s.record(ctx, identity.ID, models.ActionLogin, input.Origin, true, "")

	return LoginResult{
		Identity:     identity.Summary(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

type MessageResult struct {
	Message string `json:"message"`
}

// Logout ends every session of the identity. It succeeds even when nothing was active.
func (s *AuthService) Logout(ctx context.Context, identityID string, origin Origin) (MessageResult, error) {
	if _, err := s.ledger.InvalidateAll(ctx, identityID); err != nil {
		s.record(ctx, identityID, models.ActionLogout, origin, false, ReasonStoreError)
		return MessageResult{}, s.wrap(err, "logout")
	}
	s.record(ctx, identityID, models.ActionLogout, origin, true, "")
	return MessageResult{Message: "Logged out successfully"}, nil
}

type ChangePasswordInput struct {
	IdentityID      string
	CurrentPassword string
	NewPassword     string
	Origin          Origin
}

func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) (MessageResult, error) {
	identity, err := s.ownIdentity(ctx, input.IdentityID)
	if err != nil {
		s.record(ctx, "", models.ActionPasswordChange, input.Origin, false, lookupReason(err))
		return MessageResult{}, err
	}

	if identity.PasswordHash == nil || !s.hasher.Verify(input.CurrentPassword, *identity.PasswordHash) {
		s.record(ctx, identity.ID, models.ActionPasswordChange, input.Origin, false, ReasonPasswordMismatch)
		return MessageResult{}, newError(ErrUnauthorized, "Current password is incorrect")
	}

	if strength := s.hasher.AssessStrength(input.NewPassword); !strength.Valid {
		s.record(ctx, identity.ID, models.ActionPasswordChange, input.Origin, false, ReasonWeakPassword)
		return MessageResult{}, newError(ErrInvalidInput, strength.Reason)
	}

	if err := s.setPassword(ctx, identity.ID, input.NewPassword); err != nil {
		s.record(ctx, identity.ID, models.ActionPasswordChange, input.Origin, false, ReasonStoreError)
		return MessageResult{}, s.wrap(err, "change_password")
	}

	if s.cfg.RevokeSessionsOnPasswordChange {
		if _, err := s.ledger.InvalidateAll(ctx, identity.ID); err != nil {
			s.record(ctx, identity.ID, models.ActionPasswordChange, input.Origin, false, ReasonStoreError)
			return MessageResult{}, s.wrap(err, "change_password")
		}
	}

	s.record(ctx, identity.ID, models.ActionPasswordChange, input.Origin, true, "")
	return MessageResult{Message: "Password changed successfully"}, nil
}

type RefreshInput struct {
	IdentityID string
	// RefreshToken, when present, must belong to a live session.
	RefreshToken string
}

type RefreshResult struct {
	AccessToken string
	ExpiresIn   time.Duration
}

func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (RefreshResult, error) {
	identity, err := s.identities.GetByID(ctx, input.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return RefreshResult{}, newError(ErrUnauthorized, "User not found")
		}
		return RefreshResult{}, s.wrap(err, "refresh")
	}
	if identity.Role != s.policy.Role || !identity.Active {
		return RefreshResult{}, newError(ErrUnauthorized, "User not found or inactive")
	}

	if input.RefreshToken != "" {
		if _, err := s.ledger.Validate(ctx, identity.ID, input.RefreshToken); err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return RefreshResult{}, newError(ErrUnauthorized, "Session expired or revoked")
			}
			return RefreshResult{}, s.wrap(err, "refresh")
		}
	}

	access, err := s.tokens.IssueAccessToken(subjectOf(identity))
	if err != nil {
		return RefreshResult{}, s.wrap(err, "refresh")
	}
	return RefreshResult{AccessToken: access, ExpiresIn: s.tokens.AccessTTL()}, nil
}

func (s *AuthService) Profile(ctx context.Context, identityID string) (models.Profile, error) {
	identity, err := s.ownIdentity(ctx, identityID)
	if err != nil {
		return models.Profile{}, err
	}
	return identity.Profile(), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, identityID string, update models.ProfileUpdate) (models.Profile, error) {
	if !s.policy.ProfileUpdate {
		return models.Profile{}, newError(ErrActionUnavailable, "Profile updates are not available")
	}
	if _, err := s.ownIdentity(ctx, identityID); err != nil {
		return models.Profile{}, err
	}

	for _, name := range []*string{update.FirstName, update.LastName} {
		if name == nil {
			continue
		}
		*name = strings.TrimSpace(*name)
		if *name == "" {
			return models.Profile{}, newError(ErrInvalidInput, "name must not be empty")
		}
	}

	identity, err := s.identities.UpdateProfile(ctx, identityID, update)
	if err != nil {
		return models.Profile{}, s.wrap(err, "update_profile")
	}
	return identity.Profile(), nil
}

func (s *AuthService) Sessions(ctx context.Context, identityID string) ([]models.Session, error) {
	sessions, err := s.ledger.List(ctx, identityID)
	if err != nil {
		return nil, s.wrap(err, "list_sessions")
	}
	return sessions, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string, origin Origin) (MessageResult, error) {
	if !s.policy.EmailVerification {
		return MessageResult{}, newError(ErrActionUnavailable, "Email verification is not available")
	}

	identity, err := s.redeem(ctx, purposeVerifyEmail, token)
	if err != nil {
		s.record(ctx, "", models.ActionEmailVerify, origin, false, redeemReason(err))
		return MessageResult{}, err
	}

	if err := s.identities.MarkEmailVerified(ctx, identity.ID); err != nil {
		s.record(ctx, identity.ID, models.ActionEmailVerify, origin, false, ReasonStoreError)
		return MessageResult{}, s.wrap(err, "verify_email")
	}

	s.record(ctx, identity.ID, models.ActionEmailVerify, origin, true, "")
	return MessageResult{Message: "Email verified successfully"}, nil
}

type ForgotPasswordResult struct {
	Message string
	// ResetToken is empty when no matching account exists.
	ResetToken string
}

const forgotPasswordMessage = "If an account exists for this email, a reset link has been sent"

// ForgotPassword answers the same way whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (ForgotPasswordResult, error) {
	if !s.policy.PasswordReset {
		return ForgotPasswordResult{}, newError(ErrActionUnavailable, "Password reset is not available")
	}

	result := ForgotPasswordResult{Message: forgotPasswordMessage}

	identity, err := s.identities.FindByEmailAndRole(ctx, normalizeEmail(email), s.policy.Role)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return result, nil
		}
		return ForgotPasswordResult{}, s.wrap(err, "forgot_password")
	}
	if !identity.Active {
		return result, nil
	}

	token, err := s.issueOneTime(ctx, purposePasswordReset, identity.ID, s.cfg.ResetTokenTTL)
	if err != nil {
		return ForgotPasswordResult{}, s.wrap(err, "forgot_password")
	}
	result.ResetToken = token
	return result, nil
}

type ResetPasswordInput struct {
	Token       string
	NewPassword string
	Origin      Origin
}

// ResetPassword consumes a reset token, sets the new password and ends all sessions.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) (MessageResult, error) {
	if !s.policy.PasswordReset {
		return MessageResult{}, newError(ErrActionUnavailable, "Password reset is not available")
	}

	if strength := s.hasher.AssessStrength(input.NewPassword); !strength.Valid {
		s.record(ctx, "", models.ActionPasswordReset, input.Origin, false, ReasonWeakPassword)
		return MessageResult{}, newError(ErrInvalidInput, strength.Reason)
	}

	identity, err := s.redeem(ctx, purposePasswordReset, input.Token)
	if err != nil {
		s.record(ctx, "", models.ActionPasswordReset, input.Origin, false, redeemReason(err))
		return MessageResult{}, err
	}
	if !identity.Active {
		s.record(ctx, identity.ID, models.ActionPasswordReset, input.Origin, false, ReasonAccountInactive)
		return MessageResult{}, newError(ErrAccountInactive, "Account is inactive")
	}

	if err := s.setPassword(ctx, identity.ID, input.NewPassword); err != nil {
		s.record(ctx, identity.ID, models.ActionPasswordReset, input.Origin, false, ReasonStoreError)
		return MessageResult{}, s.wrap(err, "reset_password")
	}
	if _, err := s.ledger.InvalidateAll(ctx, identity.ID); err != nil {
		s.record(ctx, identity.ID, models.ActionPasswordReset, input.Origin, false, ReasonStoreError)
		return MessageResult{}, s.wrap(err, "reset_password")
	}

	s.record(ctx, identity.ID, models.ActionPasswordReset, input.Origin, true, "")
	return MessageResult{Message: "Password reset successfully"}, nil
}

func lookupReason(err error) string {
	if errors.Is(err, ErrUnauthorized) {
		return ReasonUserNotFound
	}
	return ReasonLookupFailed
}

func redeemReason(err error) string {
	if errors.Is(err, ErrInvalidToken) {
		return ReasonInvalidToken
	}
	return ReasonStoreError
}

// ownIdentity loads an identity that must exist and belong to this role.
func (s *AuthService) ownIdentity(ctx context.Context, identityID string) (models.Identity, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return models.Identity{}, newError(ErrUnauthorized, "User not found")
		}
		return models.Identity{}, s.wrap(err, "load_identity")
	}
	if identity.Role != s.policy.Role {
		return models.Identity{}, newError(ErrUnauthorized, "User not found")
	}
	return identity, nil
}

func (s *AuthService) setPassword(ctx context.Context, identityID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.identities.UpdatePassword(ctx, identityID, hash)
}

// upgradeHash re-hashes legacy or outdated hashes after a successful login.
func (s *AuthService) upgradeHash(ctx context.Context, identityID, password, current string) {
	if !s.hasher.NeedsRehash(current) {
		return
	}
	if err := s.setPassword(ctx, identityID, password); err != nil {
		s.log.Warn().Err(err).Str("identity_id", identityID).Msg("password hash upgrade failed")
	}
}

func (s *AuthService) issueOneTime(ctx context.Context, purpose, identityID string, ttl time.Duration) (string, error) {
	token, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	if err := s.oneTime.Put(ctx, purpose, token, identityID, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// redeem consumes a one-time token and returns the identity it belongs to.
func (s *AuthService) redeem(ctx context.Context, purpose, token string) (models.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return models.Identity{}, newError(ErrInvalidToken, "Invalid or expired token")
	}
	identityID, err := s.oneTime.Consume(ctx, purpose, token)
	if err != nil {
		if errors.Is(err, cache.ErrTokenNotFound) {
			return models.Identity{}, newError(ErrInvalidToken, "Invalid or expired token")
		}
		return models.Identity{}, s.wrap(err, purpose)
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return models.Identity{}, newError(ErrInvalidToken, "Invalid or expired token")
		}
		return models.Identity{}, s.wrap(err, purpose)
	}
	if identity.Role != s.policy.Role {
		return models.Identity{}, newError(ErrInvalidToken, "Invalid or expired token")
	}
	return identity, nil
}

func (s *AuthService) record(ctx context.Context, identityID string, action models.AuthAction, origin Origin, success bool, reason string) {
	s.audit.Record(ctx, AuditEntry{
		IdentityID: identityID,
		Role:       s.policy.Role,
		Action:     action,
		Origin:     origin,
		Success:    success,
		Reason:     reason,
	})
}

func (s *AuthService) wrap(err error, operation string) error {
	return oops.
		Code("AUTH_" + strings.ToUpper(operation) + "_FAILED").
		With("role", s.policy.Role).
		With("operation", operation).
		Wrap(err)
}

// dummy is a valid hash used to spend comparable time when no real hash exists.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(ids.New())
		if err != nil {
			s.log.Error().Err(err).Msg("dummy hash generation failed")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func subjectOf(identity models.Identity) security.Subject {
	return security.Subject{
		ID:    identity.ID,
		Email: identity.Email,
		Role:  string(identity.Role),
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
