package handlers

import (
	"net/http"

	"github.com/agrineural/agrineural/internal/middleware"
	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
)

type FarmHandler struct {
	farmService        *services.FarmService
	associationService *services.AssociationService
}

func NewFarmHandler(farmService *services.FarmService, associationService *services.AssociationService) *FarmHandler {
	return &FarmHandler{
		farmService:        farmService,
		associationService: associationService,
	}
}

type AssociateRequest struct {
	FarmID uint `json:"farm_id" binding:"required"`
}

type AssociationResponse struct {
	ID     uint `json:"id"`
	FarmID uint `json:"farm_id"`
}

// CreateFarm godoc
// @Summary Register a farm
// @Description Register a farm owned by the caller. Registry codes are unique.
// @Tags producer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateFarmInput true "Farm attributes"
// @Success 201 {object} models.Farm
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /producer/farms [post]
func (h *FarmHandler) CreateFarm(c *gin.Context) {
	var req services.CreateFarmInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	farm, err := h.farmService.CreateFarm(middleware.GetCallerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, farm)
}

// ListOwnFarms godoc
// @Summary List own farms
// @Tags producer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Farm
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /producer/farms [get]
func (h *FarmHandler) ListOwnFarms(c *gin.Context) {
	farms, err := h.farmService.ListFarmsByOwner(middleware.GetCallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(farms))
}

// LookupFarms godoc
// @Summary Find farms by registry code
// @Description Operators and surveyors look a farm up before associating with it.
// @Tags operator
// @Produce json
// @Security BearerAuth
// @Param registry_code query string true "Registry code"
// @Success 200 {array} models.Farm
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /operator/farms [get]
func (h *FarmHandler) LookupFarms(c *gin.Context) {
	farms, err := h.farmService.ListFarmsByRegistryCode(c.Query("registry_code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(farms))
}

// Associate godoc
// @Summary Associate with a farm
// @Description Grants the caller operational access to a farm they do not own.
// @Tags operator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AssociateRequest true "Farm to associate with"
// @Success 201 {object} AssociationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /operator/farms [post]
func (h *FarmHandler) Associate(c *gin.Context) {
	var req AssociateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	association, err := h.associationService.Associate(middleware.GetCallerID(c), req.FarmID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AssociationResponse{ID: association.ID, FarmID: association.FarmID})
}

// ListAssociatedFarms godoc
// @Summary List associated farms
// @Tags operator
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Farm
// @Failure 401 {object} ErrorResponse
// @Router /operator/farms/associated [get]
func (h *FarmHandler) ListAssociatedFarms(c *gin.Context) {
	farms, err := h.associationService.ListFarmsForUser(middleware.GetCallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(farms))
}

func nonNil(farms []models.Farm) []models.Farm {
	if farms == nil {
		return []models.Farm{}
	}
	return farms
}
