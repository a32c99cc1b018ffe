package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrFarmNotFound          = errors.New("farm not found")
	ErrDuplicateRegistryCode = errors.New("registry code already registered")
)

type CreateFarmInput struct {
	RegistryCode string  `json:"registry_code" validate:"required,max=64"`
	Name         string  `json:"name" validate:"required,max=255"`
	Latitude     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" validate:"gte=-180,lte=180"`
	AreaHectares float64 `json:"area_hectares" validate:"gt=0"`
}

type FarmService struct {
	farmRepo *repository.FarmRepository
}

func NewFarmService(farmRepo *repository.FarmRepository) *FarmService {
	return &FarmService{farmRepo: farmRepo}
}

// CreateFarm registers a farm owned by ownerID.
func (s *FarmService) CreateFarm(ownerID string, input CreateFarmInput) (*models.Farm, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	input.RegistryCode = strings.TrimSpace(input.RegistryCode)
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.farmRepo.FindByRegistryCode(input.RegistryCode)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateRegistryCode
	}

	farm := &models.Farm{
		RegistryCode: input.RegistryCode,
		Name:         input.Name,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		AreaHectares: input.AreaHectares,
		OwnerID:      ownerID,
	}
	if err := s.farmRepo.Create(farm); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRegistryCode
		}
		return nil, fmt.Errorf("create farm: %w", err)
	}
	return farm, nil
}

func (s *FarmService) GetFarm(id uint) (*models.Farm, error) {
	farm, err := s.farmRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if farm == nil {
		return nil, ErrFarmNotFound
	}
	return farm, nil
}

func (s *FarmService) ListFarmsByOwner(ownerID string) ([]models.Farm, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	return s.farmRepo.FindByOwner(ownerID)
}

// ListFarmsByRegistryCode is the lookup operators use to find a farm before
// associating with it.
func (s *FarmService) ListFarmsByRegistryCode(code string) ([]models.Farm, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: registry code is required", ErrInvalidInput)
	}
	return s.farmRepo.FindByRegistryCode(code)
}

func (s *FarmService) ListAll() ([]models.Farm, error) {
	return s.farmRepo.FindAll()
}

func (s *FarmService) Count() (int64, error) {
	return s.farmRepo.Count()
}
