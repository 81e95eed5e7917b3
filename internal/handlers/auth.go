package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"eduplatform/internal/middleware"
	"eduplatform/internal/models"
	"eduplatform/internal/response"
	"eduplatform/internal/security"
	"eduplatform/internal/service"
)

// authHandler serves the routes of a single role.
type authHandler struct {
	svc    *service.AuthService
	tokens *security.TokenIssuer
	// exposeTokens returns one-time tokens in responses; never in production.
	exposeTokens bool
	log          zerolog.Logger
}

func origin(c *gin.Context) service.Origin {
	return service.Origin{
		Address: c.ClientIP(),
		Agent:   c.GetHeader("User-Agent"),
	}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,max=50"`
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
}

type registerResponse struct {
	models.IdentitySummary
	VerificationToken string `json:"verificationToken,omitempty"`
}

func (h authHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Origin:    origin(c),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := registerResponse{IdentitySummary: result.Identity}
	if h.exposeTokens {
		resp.VerificationToken = result.VerificationToken
	}
	response.OK(c, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	User         models.IdentitySummary `json:"user"`
	AccessToken  string                 `json:"accessToken"`
	RefreshToken string                 `json:"refreshToken"`
	TokenType    string                 `json:"tokenType"`
}

func (h authHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Origin:   origin(c),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, http.StatusOK, loginResponse{
		User:         result.Identity,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Refresh accepts either a refresh token in the body or a bearer access token.
func (h authHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	// An empty body, chunked or not, falls through to the bearer token.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	var (
		claims *security.Claims
		err    error
	)
	if req.RefreshToken != "" {
		claims, err = h.tokens.VerifyType(req.RefreshToken, security.TokenTypeRefresh)
	} else if bearer, ok := middleware.BearerToken(c); ok {
		claims, err = h.tokens.VerifyType(bearer, security.TokenTypeAccess)
	} else {
		response.Fail(c, http.StatusUnauthorized, "MISSING_TOKEN", "A refresh or access token is required")
		return
	}
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	if models.Role(claims.Role) != h.svc.Policy().Role {
		response.Fail(c, http.StatusForbidden, "FORBIDDEN", "Token is not valid for this role")
		return
	}

	result, err := h.svc.Refresh(c.Request.Context(), service.RefreshInput{
		IdentityID:   claims.IdentityID(),
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.OK(c, http.StatusOK, refreshResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   int64(result.ExpiresIn.Seconds()),
	})
}

func (h authHandler) Logout(c *gin.Context) {
	claims, _ := middleware.Claims(c)

	result, err := h.svc.Logout(c.Request.Context(), claims.IdentityID(), origin(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, result)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,max=50"`
}

func (h authHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	claims, _ := middleware.Claims(c)

	result, err := h.svc.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		IdentityID:      claims.IdentityID(),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		Origin:          origin(c),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, result)
}
