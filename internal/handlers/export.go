package handlers

import (
	"fmt"
	"net/http"

	"github.com/agrineural/agrineural/internal/middleware"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

type VerifyExportResponse struct {
	Valid bool `json:"valid"`
}

// ExportReport godoc
// @Summary Export a signed farm report
// @Description Report and image list with an HMAC-SHA256 signature over the document.
// @Tags farms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Farm ID"
// @Success 200 {object} services.ReportExport
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /farms/{id}/report/export [get]
func (h *ExportHandler) ExportReport(c *gin.Context) {
	farmID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	export, err := h.exportService.ExportReport(farmID, middleware.GetCallerID(c), services.AssociatedPath)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, export)
}

// ExportWorkbook godoc
// @Summary Export a farm report spreadsheet
// @Tags farms
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "Farm ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /farms/{id}/report.xlsx [get]
func (h *ExportHandler) ExportWorkbook(c *gin.Context) {
	farmID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	buf, err := h.exportService.ExportWorkbook(farmID, middleware.GetCallerID(c), services.AssociatedPath)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="farm-%d-report.xlsx"`, farmID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// VerifyExport godoc
// @Summary Verify a report export signature
// @Tags farms
// @Accept json
// @Produce json
// @Param request body services.ReportExport true "Export with signature"
// @Success 200 {object} VerifyExportResponse
// @Failure 400 {object} ErrorResponse
// @Router /reports/verify [post]
func (h *ExportHandler) VerifyExport(c *gin.Context) {
	var exportData services.ReportExport
	if err := c.ShouldBindJSON(&exportData); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	valid, err := h.exportService.VerifyExportData(&exportData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, VerifyExportResponse{Valid: valid})
}
