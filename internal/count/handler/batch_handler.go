package handler

import (
	"time"

	"github.com/cribware/stocktake/internal/count/repository"
	"github.com/cribware/stocktake/internal/count/service"
	"github.com/gin-gonic/gin"
)

// BatchHandler serves batch generation and lifecycle.
type BatchHandler struct {
	svc *service.BatchService
}

func NewBatchHandler(svc *service.BatchService) *BatchHandler {
	return &BatchHandler{svc: svc}
}

// Create handles POST /api/v1/count/batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req service.CreateBatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	batch, err := h.svc.Create(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, batch)
}

// Get handles GET /api/v1/count/batches/:id?with_items=true
func (h *BatchHandler) Get(c *gin.Context) {
	withItems := c.Query("with_items") == "true"
	batch, err := h.svc.Get(c.Request.Context(), c.Param("id"), withItems)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, batch)
}

// List handles GET /api/v1/count/batches with status, schedule_id and
// created date range filters.
func (h *BatchHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.BatchListParams{
		Status:     c.Query("status"),
		ScheduleID: c.Query("schedule_id"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			BadRequest(c, "bad from date: "+raw)
			return
		}
		params.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			BadRequest(c, "bad to date: "+raw)
			return
		}
		params.To = &t
	}

	batches, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, ListResponse{
		Items: batches,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// Update handles PUT /api/v1/count/batches/:id
func (h *BatchHandler) Update(c *gin.Context) {
	var req service.UpdateBatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	batch, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, batch)
}

// Start handles POST /api/v1/count/batches/:id/start
func (h *BatchHandler) Start(c *gin.Context) {
	batch, err := h.svc.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, batch)
}

// Complete handles POST /api/v1/count/batches/:id/complete
func (h *BatchHandler) Complete(c *gin.Context) {
	batch, progress, err := h.svc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"batch": batch, "progress": progress})
}

// Cancel handles POST /api/v1/count/batches/:id/cancel
func (h *BatchHandler) Cancel(c *gin.Context) {
	batch, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, batch)
}

// Progress handles GET /api/v1/count/batches/:id/progress
func (h *BatchHandler) Progress(c *gin.Context) {
	progress, err := h.svc.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, progress)
}

// Delete handles DELETE /api/v1/count/batches/:id?force=true
func (h *BatchHandler) Delete(c *gin.Context) {
	force := c.Query("force") == "true"
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), force); err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
