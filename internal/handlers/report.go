package handlers

import (
	"net/http"

	"github.com/agrineural/agrineural/internal/middleware"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GetFarmDetail godoc
// @Summary Farm detail
// @Description Farm attributes with every image and its verdict. Open to the owner and associated users.
// @Tags farms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Farm ID"
// @Success 200 {object} services.FarmDetail
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /farms/{id}/detail [get]
func (h *ReportHandler) GetFarmDetail(c *gin.Context) {
	h.detail(c, services.AssociatedPath)
}

// GetProducerFarmDetail godoc
// @Summary Own farm detail
// @Tags producer
// @Produce json
// @Security BearerAuth
// @Param id path int true "Farm ID"
// @Success 200 {object} services.FarmDetail
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /producer/farms/{id}/detail [get]
func (h *ReportHandler) GetProducerFarmDetail(c *gin.Context) {
	h.detail(c, services.OwnerPath)
}

// GetFarmReport godoc
// @Summary Farm health report
// @Description Image counts and health status derived from the stored verdicts.
// @Tags farms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Farm ID"
// @Success 200 {object} services.FarmReportView
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /farms/{id}/report [get]
func (h *ReportHandler) GetFarmReport(c *gin.Context) {
	h.report(c, services.AssociatedPath)
}

// GetProducerFarmReport godoc
// @Summary Own farm health report
// @Tags producer
// @Produce json
// @Security BearerAuth
// @Param id path int true "Farm ID"
// @Success 200 {object} services.FarmReportView
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /producer/farms/{id}/report [get]
func (h *ReportHandler) GetProducerFarmReport(c *gin.Context) {
	h.report(c, services.OwnerPath)
}

func (h *ReportHandler) detail(c *gin.Context, path services.AccessPath) {
	farmID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.reportService.GetFarmDetail(farmID, middleware.GetCallerID(c), path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ReportHandler) report(c *gin.Context, path services.AccessPath) {
	farmID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	view, err := h.reportService.GetFarmReport(farmID, middleware.GetCallerID(c), path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
