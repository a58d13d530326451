package handler

import (
	"github.com/cribware/stocktake/internal/count/service"
	"github.com/gin-gonic/gin"
)

// ItemHandler serves the count item state machine and count results.
type ItemHandler struct {
	svc *service.ItemService
}

func NewItemHandler(svc *service.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// Get handles GET /api/v1/count/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, item)
}

// ListByBatch handles GET /api/v1/count/batches/:id/items?status=pending
func (h *ItemHandler) ListByBatch(c *gin.Context) {
	items, err := h.svc.ListByBatch(c.Request.Context(), c.Param("id"), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

type assignReq struct {
	UserID string `json:"user_id"`
}

// Assign handles POST /api/v1/count/items/:id/assign. An empty body assigns
// the item to the caller.
func (h *ItemHandler) Assign(c *gin.Context) {
	var req assignReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	if req.UserID == "" {
		req.UserID = GetUserID(c)
	}
	item, err := h.svc.Assign(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, item)
}

// SubmitCount handles POST /api/v1/count/items/:id/count
func (h *ItemHandler) SubmitCount(c *gin.Context) {
	var req service.SubmitCountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	resp, err := h.svc.SubmitCount(c.Request.Context(), c.Param("id"), req, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, resp)
}

type skipReq struct {
	Reason string `json:"reason" binding:"required"`
}

// Skip handles POST /api/v1/count/items/:id/skip
func (h *ItemHandler) Skip(c *gin.Context) {
	var req skipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	item, err := h.svc.Skip(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, item)
}

// GetResult handles GET /api/v1/count/results/:id
func (h *ItemHandler) GetResult(c *gin.Context) {
	result, err := h.svc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// ListResultsByBatch handles GET /api/v1/count/batches/:id/results
func (h *ItemHandler) ListResultsByBatch(c *gin.Context) {
	results, err := h.svc.ListResultsByBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"items": results})
}
