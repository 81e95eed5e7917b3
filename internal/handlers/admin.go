package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"eduplatform/internal/models"
	"eduplatform/internal/response"
)

type eventResponse struct {
	ID            string  `json:"id"`
	Role          string  `json:"role"`
	Action        string  `json:"action"`
	OriginAddress string  `json:"originAddress"`
	OriginAgent   *string `json:"originAgent,omitempty"`
	Success       bool    `json:"success"`
	Reason        *string `json:"reason,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

// IdentityEvents lists the audit trail of one identity for support staff.
func (h HandlerSet) IdentityEvents(c *gin.Context) {
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	events, err := h.deps.Audit.ListForIdentity(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	items := make([]eventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toEventResponse(e))
	}
	response.OK(c, http.StatusOK, items)
}

func toEventResponse(e models.AuthEvent) eventResponse {
	return eventResponse{
		ID:            e.ID,
		Role:          string(e.Role),
		Action:        string(e.Action),
		OriginAddress: e.OriginAddress,
		OriginAgent:   e.OriginAgent,
		Success:       e.Success,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
