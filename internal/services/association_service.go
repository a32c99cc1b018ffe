package services

import (
	"errors"
	"fmt"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrAlreadyAssociated = errors.New("already associated with farm")
	ErrOwnerAssociation  = errors.New("owners cannot associate with their own farm")
)

type AssociationService struct {
	farmRepo        *repository.FarmRepository
	associationRepo *repository.AssociationRepository
}

func NewAssociationService(farmRepo *repository.FarmRepository, associationRepo *repository.AssociationRepository) *AssociationService {
	return &AssociationService{
		farmRepo:        farmRepo,
		associationRepo: associationRepo,
	}
}

func (s *AssociationService) Associate(userID string, farmID uint) (*models.Association, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	farm, err := s.farmRepo.FindByID(farmID)
	if err != nil {
		return nil, err
	}
	if farm == nil {
		return nil, ErrFarmNotFound
	}
	if farm.OwnerID == userID {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ErrOwnerAssociation)
	}

	exists, err := s.associationRepo.Exists(userID, farmID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyAssociated
	}

	association := &models.Association{UserID: userID, FarmID: farmID}
	if err := s.associationRepo.Create(association); err != nil {
		// a concurrent request for the same pair lost the race
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyAssociated
		}
		return nil, fmt.Errorf("create association: %w", err)
	}
	return association, nil
}

func (s *AssociationService) ListFarmsForUser(userID string) ([]models.Farm, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.associationRepo.FindFarmsByUserID(userID)
}

func (s *AssociationService) ListAll() ([]models.Association, error) {
	return s.associationRepo.FindAll()
}
