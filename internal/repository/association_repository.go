package repository

import (
	"github.com/agrineural/agrineural/internal/models"
	"gorm.io/gorm"
)

type AssociationRepository struct {
	db *gorm.DB
}

func NewAssociationRepository(db *gorm.DB) *AssociationRepository {
	return &AssociationRepository{db: db}
}

func (r *AssociationRepository) Create(association *models.Association) error {
	return r.db.Create(association).Error
}

func (r *AssociationRepository) Exists(userID string, farmID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Association{}).
		Where("user_id = ? AND farm_id = ?", userID, farmID).
		Count(&count).Error
	return count > 0, err
}

// FindFarmsByUserID lists the farms reachable through the user's associations.
func (r *AssociationRepository) FindFarmsByUserID(userID string) ([]models.Farm, error) {
	var farms []models.Farm
	err := r.db.
		Joins("JOIN associations ON associations.farm_id = farms.id").
		Where("associations.user_id = ?", userID).
		Order("farms.id").
		Find(&farms).Error
	return farms, err
}

func (r *AssociationRepository) FindAll() ([]models.Association, error) {
	var associations []models.Association
	err := r.db.Preload("Farm").Order("id").Find(&associations).Error
	return associations, err
}
