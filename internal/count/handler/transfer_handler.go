package handler

import (
	"fmt"
	"io"

	"github.com/cribware/stocktake/internal/count/service"
	"github.com/gin-gonic/gin"
)

// 10 MB cap on import uploads.
const maxImportSize = 10 << 20

// TransferHandler serves file export and import.
type TransferHandler struct {
	exportSvc *service.ExportService
	importSvc *service.ImportService
}

func NewTransferHandler(exportSvc *service.ExportService, importSvc *service.ImportService) *TransferHandler {
	return &TransferHandler{exportSvc: exportSvc, importSvc: importSvc}
}

// Export handles GET /api/v1/count/export/:scope?format=csv|xlsx
// Scope-specific filters: active (schedules), batch_id and status (batches),
// batch_id (results, required).
func (h *TransferHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	scope := c.Param("scope")
	format := c.DefaultQuery("format", service.FormatCSV)

	var (
		data     []byte
		filename string
		err      error
	)
	switch scope {
	case service.ScopeSchedules:
		data, filename, err = h.exportSvc.ExportSchedules(ctx, c.Query("active") == "true", format)
	case service.ScopeBatches:
		data, filename, err = h.exportSvc.ExportBatches(ctx, c.Query("batch_id"), c.Query("status"), format)
	case service.ScopeResults:
		batchID := c.Query("batch_id")
		if batchID == "" {
			BadRequest(c, "batch_id is required for a results export")
			return
		}
		data, filename, err = h.exportSvc.ExportResults(ctx, batchID, format)
	default:
		BadRequest(c, "unknown export scope: "+scope)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := "text/csv"
	if format == service.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, contentType, data)
}

// Import handles POST /api/v1/count/import/:scope with a multipart "file"
// field. Row failures are reported in the summary, never as an HTTP error.
func (h *TransferHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file field is required: "+err.Error())
		return
	}
	if fileHeader.Size > maxImportSize {
		BadRequest(c, fmt.Sprintf("file exceeds the %d byte limit", maxImportSize))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "open upload: "+err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		InternalError(c, "read upload: "+err.Error())
		return
	}

	summary, err := h.importSvc.Import(c.Request.Context(), c.Param("scope"), fileHeader.Filename, data, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, summary)
}
