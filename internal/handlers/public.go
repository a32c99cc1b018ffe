package handlers

import (
	"net/http"

	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PublicHandler struct {
	reportService *services.ReportService
	db            *gorm.DB
}

func NewPublicHandler(reportService *services.ReportService, db *gorm.DB) *PublicHandler {
	return &PublicHandler{
		reportService: reportService,
		db:            db,
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}

// GetStats godoc
// @Summary Platform totals
// @Description Number of farms, images and anomalous images
// @Tags public
// @Produce json
// @Success 200 {object} services.PlatformStats
// @Failure 500 {object} ErrorResponse
// @Router /stats [get]
func (h *PublicHandler) GetStats(c *gin.Context) {
	stats, err := h.reportService.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Healthz reports whether the database answers.
func (h *PublicHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
