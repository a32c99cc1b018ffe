package repository

import (
	"errors"

	"github.com/agrineural/agrineural/internal/models"
	"gorm.io/gorm"
)

// ImageStats is the raw aggregate of a farm's verdicts.
type ImageStats struct {
	Total     int64
	Anomalous int64
}

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) CreateInTx(tx *gorm.DB, image *models.Image) error {
	return tx.Omit("Verdict").Create(image).Error
}

func (r *ImageRepository) CreateVerdictInTx(tx *gorm.DB, verdict *models.Verdict) error {
	return tx.Create(verdict).Error
}

func (r *ImageRepository) FindByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.db.Preload("Verdict").First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &image, nil
}

func (r *ImageRepository) FindByFarmID(farmID uint) ([]models.Image, error) {
	var images []models.Image
	err := r.db.Preload("Verdict").
		Where("farm_id = ?", farmID).
		Order("id").
		Find(&images).Error
	return images, err
}

// StatsByFarmID counts only images that carry a verdict, which is every
// image written through the ingestion transaction.
func (r *ImageRepository) StatsByFarmID(farmID uint) (ImageStats, error) {
	var stats ImageStats
	err := r.db.Model(&models.Image{}).
		Select("COUNT(images.id) AS total, COALESCE(SUM(CASE WHEN verdicts.anomalous THEN 1 ELSE 0 END), 0) AS anomalous").
		Joins("JOIN verdicts ON verdicts.id = images.id").
		Where("images.farm_id = ?", farmID).
		Scan(&stats).Error
	return stats, err
}

func (r *ImageRepository) Stats() (ImageStats, error) {
	var stats ImageStats
	err := r.db.Model(&models.Image{}).
		Select("COUNT(images.id) AS total, COALESCE(SUM(CASE WHEN verdicts.anomalous THEN 1 ELSE 0 END), 0) AS anomalous").
		Joins("JOIN verdicts ON verdicts.id = images.id").
		Scan(&stats).Error
	return stats, err
}

func (r *ImageRepository) CountVerdicts() (int64, error) {
	var count int64
	err := r.db.Model(&models.Verdict{}).Count(&count).Error
	return count, err
}
