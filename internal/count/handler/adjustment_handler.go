package handler

import (
	"github.com/cribware/stocktake/internal/count/service"
	"github.com/gin-gonic/gin"
)

// AdjustmentHandler serves adjustment proposal and approval.
type AdjustmentHandler struct {
	svc *service.AdjustmentService
}

func NewAdjustmentHandler(svc *service.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{svc: svc}
}

// Propose handles POST /api/v1/count/adjustments
func (h *AdjustmentHandler) Propose(c *gin.Context) {
	var req service.ProposeAdjustmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	adjustment, err := h.svc.Propose(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, adjustment)
}

// Approve handles POST /api/v1/count/adjustments/:id/approve
func (h *AdjustmentHandler) Approve(c *gin.Context) {
	adjustment, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, adjustment)
}

// Get handles GET /api/v1/count/adjustments/:id
func (h *AdjustmentHandler) Get(c *gin.Context) {
	adjustment, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, adjustment)
}

// List handles GET /api/v1/count/adjustments?applied=true and
// ?result_id=... for per-result listing.
func (h *AdjustmentHandler) List(c *gin.Context) {
	if resultID := c.Query("result_id"); resultID != "" {
		adjustments, err := h.svc.ListByResult(c.Request.Context(), resultID)
		if err != nil {
			respondError(c, err)
			return
		}
		Success(c, gin.H{"items": adjustments})
		return
	}
	appliedOnly := c.Query("applied") == "true"
	adjustments, err := h.svc.List(c.Request.Context(), appliedOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"items": adjustments})
}
