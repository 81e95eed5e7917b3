package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"eduplatform/internal/config"
	"eduplatform/internal/metrics"
	"eduplatform/internal/middleware"
	"eduplatform/internal/models"
	"eduplatform/internal/security"
	"eduplatform/internal/service"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Services     []*service.AuthService
	Audit        *service.AuditLog
	Tokens       *security.TokenIssuer
	Throttle     middleware.AttemptCounter
	Metrics      *metrics.Metrics
	HealthChecks map[string]HealthCheck
}

type HandlerSet struct {
	log    zerolog.Logger
	cfg    *config.AppConfig
	deps   Dependencies
	checks map[string]HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	checks := deps.HealthChecks
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return HandlerSet{
		log:    log,
		cfg:    cfg,
		deps:   deps,
		checks: checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	throttle := middleware.Throttle(
		h.deps.Throttle,
		h.cfg.Security.LoginThrottle.MaxAttempts,
		h.cfg.Security.LoginThrottle.Window,
		h.deps.Metrics,
		h.log,
	)

	for _, svc := range h.deps.Services {
		policy := svc.Policy()
		ah := authHandler{
			svc:          svc,
			tokens:       h.deps.Tokens,
			exposeTokens: !h.cfg.IsProduction(),
			log:          h.log.With().Str("role", string(policy.Role)).Logger(),
		}
		guard := middleware.Auth(h.deps.Tokens, policy.Role)

		auth := v1.Group("/auth/" + string(policy.Role))
		auth.POST("/register", throttle, ah.Register)
		auth.POST("/login", throttle, ah.Login)
		auth.POST("/refresh", ah.Refresh)

		auth.POST("/logout", guard, ah.Logout)
		auth.POST("/change-password", guard, ah.ChangePassword)
		auth.GET("/profile", guard, ah.Profile)
		auth.GET("/sessions", guard, ah.Sessions)

		if policy.ProfileUpdate {
			auth.PUT("/profile", guard, ah.UpdateProfile)
		}
		if policy.EmailVerification {
			auth.POST("/verify-email", ah.VerifyEmail)
		}
		if policy.PasswordReset {
			auth.POST("/forgot-password", throttle, ah.ForgotPassword)
			auth.POST("/reset-password", throttle, ah.ResetPassword)
		}
	}

	if h.deps.Audit != nil {
		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.deps.Tokens, models.RoleAdmin),
			middleware.RequireRoles(models.RoleAdmin),
		)
		admin.GET("/identities/:id/events", h.IdentityEvents)
	}
}
