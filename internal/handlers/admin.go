package handlers

import (
	"net/http"
	"time"

	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	farmService        *services.FarmService
	associationService *services.AssociationService
}

func NewAdminHandler(farmService *services.FarmService, associationService *services.AssociationService) *AdminHandler {
	return &AdminHandler{
		farmService:        farmService,
		associationService: associationService,
	}
}

type AssociationListResponse struct {
	ID           uint   `json:"id"`
	UserID       string `json:"user_id"`
	FarmID       uint   `json:"farm_id"`
	RegistryCode string `json:"registry_code"`
	CreatedAt    string `json:"created_at"`
}

// ListFarms godoc
// @Summary List all farms (Admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Farm
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/farms [get]
func (h *AdminHandler) ListFarms(c *gin.Context) {
	farms, err := h.farmService.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(farms))
}

// ListAssociations godoc
// @Summary List all associations (Admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AssociationListResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /admin/associations [get]
func (h *AdminHandler) ListAssociations(c *gin.Context) {
	associations, err := h.associationService.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]AssociationListResponse, len(associations))
	for i, a := range associations {
		response[i] = AssociationListResponse{
			ID:           a.ID,
			UserID:       a.UserID,
			FarmID:       a.FarmID,
			RegistryCode: a.Farm.RegistryCode,
			CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, response)
}
