package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduplatform/internal/response"
	"eduplatform/internal/service"
)

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h authHandler) VerifyEmail(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.VerifyEmail(c.Request.Context(), req.Token, origin(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, result)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type forgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

func (h authHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := forgotPasswordResponse{Message: result.Message}
	if h.exposeTokens {
		resp.ResetToken = result.ResetToken
	}
	response.OK(c, http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,max=50"`
}

func (h authHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.svc.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
		Origin:      origin(c),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, result)
}
