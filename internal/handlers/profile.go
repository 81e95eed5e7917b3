package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduplatform/internal/middleware"
	"eduplatform/internal/models"
	"eduplatform/internal/response"
)

func (h authHandler) Profile(c *gin.Context) {
	claims, _ := middleware.Claims(c)

	profile, err := h.svc.Profile(c.Request.Context(), claims.IdentityID())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, profile)
}

type updateProfileRequest struct {
	FirstName      *string `json:"firstName" binding:"omitempty,max=100"`
	LastName       *string `json:"lastName" binding:"omitempty,max=100"`
	Bio            *string `json:"bio" binding:"omitempty,max=1000"`
	PhoneNumber    *string `json:"phoneNumber" binding:"omitempty,max=30"`
	ProfilePicture *string `json:"profilePicture" binding:"omitempty,url"`
}

func (h authHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	claims, _ := middleware.Claims(c)

	profile, err := h.svc.UpdateProfile(c.Request.Context(), claims.IdentityID(), models.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Bio:            req.Bio,
		PhoneNumber:    req.PhoneNumber,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.OK(c, http.StatusOK, profile)
}

func (h authHandler) Sessions(c *gin.Context) {
	claims, _ := middleware.Claims(c)

	sessions, err := h.svc.Sessions(c.Request.Context(), claims.IdentityID())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	response.OK(c, http.StatusOK, sessions)
}
