package repository

import (
	"errors"

	"github.com/agrineural/agrineural/internal/models"
	"gorm.io/gorm"
)

type FarmRepository struct {
	db *gorm.DB
}

func NewFarmRepository(db *gorm.DB) *FarmRepository {
	return &FarmRepository{db: db}
}

func (r *FarmRepository) Create(farm *models.Farm) error {
	return r.db.Create(farm).Error
}

func (r *FarmRepository) FindByID(id uint) (*models.Farm, error) {
	return r.FindByIDInTx(r.db, id)
}

func (r *FarmRepository) FindByIDInTx(tx *gorm.DB, id uint) (*models.Farm, error) {
	var farm models.Farm
	err := tx.First(&farm, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &farm, nil
}

func (r *FarmRepository) FindByOwner(ownerID string) ([]models.Farm, error) {
	var farms []models.Farm
	err := r.db.Where("owner_id = ?", ownerID).Order("id").Find(&farms).Error
	return farms, err
}

func (r *FarmRepository) FindByRegistryCode(code string) ([]models.Farm, error) {
	var farms []models.Farm
	err := r.db.Where("registry_code = ?", code).Order("id").Find(&farms).Error
	return farms, err
}

func (r *FarmRepository) FindAll() ([]models.Farm, error) {
	var farms []models.Farm
	err := r.db.Order("id").Find(&farms).Error
	return farms, err
}

func (r *FarmRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Farm{}).Count(&count).Error
	return count, err
}
