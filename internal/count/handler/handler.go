// Package handler exposes the count engine over HTTP.
package handler

import (
	"errors"
	"strconv"

	"github.com/cribware/stocktake/internal/count/errs"
	"github.com/cribware/stocktake/internal/count/service"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers for route registration.
type Handlers struct {
	Schedule   *ScheduleHandler
	Batch      *BatchHandler
	Item       *ItemHandler
	Adjustment *AdjustmentHandler
	Analytics  *AnalyticsHandler
	Transfer   *TransferHandler
}

// NewHandlers wires handlers onto the service layer.
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Schedule:   NewScheduleHandler(svc.Schedule),
		Batch:      NewBatchHandler(svc.Batch),
		Item:       NewItemHandler(svc.Item),
		Adjustment: NewAdjustmentHandler(svc.Adjustment),
		Analytics:  NewAnalyticsHandler(svc.Analytics),
		Transfer:   NewTransferHandler(svc.Export, svc.Import),
	}
}

// Response is the uniform envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps paginated collections.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination carries page metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Success writes a 200 envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created writes a 201 envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error writes an error envelope. The HTTP status is the business code
// divided by 100, so 40400 renders as 404.
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest writes a 40000 envelope.
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized writes a 40100 envelope.
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// NotFound writes a 40400 envelope.
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError writes a 50000 envelope.
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// respondError maps the service error taxonomy onto business codes:
// validation 40000, not found 40400, conflict 40900, invalid lifecycle
// state 42200, unavailable inventory source 50300. Anything else is a
// 50000 with a generic message.
func respondError(c *gin.Context, err error) {
	var (
		validation   *errs.ValidationError
		notFound     *errs.NotFoundError
		conflict     *errs.ConflictError
		invalidState *errs.InvalidStateError
		dependency   *errs.DependencyError
	)
	switch {
	case errors.As(err, &validation):
		Error(c, 40000, validation.Error())
	case errors.As(err, &notFound):
		Error(c, 40400, notFound.Error())
	case errors.As(err, &conflict):
		Error(c, 40900, conflict.Error())
	case errors.As(err, &invalidState):
		Error(c, 42200, invalidState.Error())
	case errors.As(err, &dependency):
		Error(c, 50300, dependency.Error())
	default:
		Error(c, 50000, "internal error: "+err.Error())
	}
}

// GetUserID reads the authenticated user id set by the JWT middleware.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination reads page/page_size query params with sane bounds.
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
