package handler

import (
	"github.com/cribware/stocktake/internal/count/service"
	"github.com/gin-gonic/gin"
)

// ScheduleHandler serves the recurring audit definitions.
type ScheduleHandler struct {
	svc *service.ScheduleService
}

func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// Create handles POST /api/v1/count/schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	schedule, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, schedule)
}

// Get handles GET /api/v1/count/schedules/:id
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, schedule)
}

// List handles GET /api/v1/count/schedules?active=true
func (h *ScheduleHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	schedules, err := h.svc.List(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"items": schedules})
}

// Update handles PUT /api/v1/count/schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	schedule, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, schedule)
}

// Delete handles DELETE /api/v1/count/schedules/:id
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
