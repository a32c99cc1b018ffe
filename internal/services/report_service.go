package services

import (
	"context"
	"errors"
	"io"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/agrineural/agrineural/internal/storage"
)

var ErrImageNotFound = errors.New("image not found")

type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusWarning  HealthStatus = "warning"
	StatusCritical HealthStatus = "critical"
)

// Tier lower bounds, in percent. Both are inclusive.
const (
	criticalPercent = 70
	warningPercent  = 30
)

// DeriveStatus maps verdict counts onto a health tier. It compares in integer
// arithmetic so exact boundary ratios land in the higher tier.
func DeriveStatus(total, anomalous int64) HealthStatus {
	switch {
	case total <= 0:
		return StatusHealthy
	case anomalous*100 >= criticalPercent*total:
		return StatusCritical
	case anomalous*100 >= warningPercent*total:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

type AnomalyType struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type FarmReport struct {
	FarmID            uint          `json:"farm_id"`
	Total             int64         `json:"total"`
	Anomalous         int64         `json:"anomalous"`
	Normal            int64         `json:"normal"`
	AnomalyPercentage float64       `json:"anomaly_percentage"`
	Status            HealthStatus  `json:"status"`
	AnomalyTypes      []AnomalyType `json:"anomaly_types"`
}

func NewFarmReport(farmID uint, total, anomalous int64) FarmReport {
	var pct float64
	if total > 0 {
		pct = float64(anomalous) * 100 / float64(total)
	}
	normal := total - anomalous
	return FarmReport{
		FarmID:            farmID,
		Total:             total,
		Anomalous:         anomalous,
		Normal:            normal,
		AnomalyPercentage: pct,
		Status:            DeriveStatus(total, anomalous),
		AnomalyTypes: []AnomalyType{
			{Name: "Anomalous", Value: anomalous},
			{Name: "Normal", Value: normal},
		},
	}
}

type FarmDetail struct {
	Farm         models.Farm    `json:"farm"`
	ProducerName string         `json:"producer_name,omitempty"`
	Images       []models.Image `json:"images"`
}

type FarmReportView struct {
	Farm         models.Farm `json:"farm"`
	ProducerName string      `json:"producer_name,omitempty"`
	Report       FarmReport  `json:"report"`
}

type PlatformStats struct {
	Farms           int64 `json:"farms"`
	Images          int64 `json:"images"`
	AnomalousImages int64 `json:"anomalous_images"`
}

type ReportService struct {
	guard     *AccessGuard
	farmRepo  *repository.FarmRepository
	imageRepo *repository.ImageRepository
	userRepo  *repository.UserRepository
	store     storage.FileStore
}

func NewReportService(
	guard *AccessGuard,
	farmRepo *repository.FarmRepository,
	imageRepo *repository.ImageRepository,
	userRepo *repository.UserRepository,
	store storage.FileStore,
) *ReportService {
	return &ReportService{
		guard:     guard,
		farmRepo:  farmRepo,
		imageRepo: imageRepo,
		userRepo:  userRepo,
		store:     store,
	}
}

func (s *ReportService) GetFarmDetail(farmID uint, callerID string, path AccessPath) (*FarmDetail, error) {
	farm, err := s.guard.Authorize(callerID, farmID, path)
	if err != nil {
		return nil, err
	}

	images, err := s.imageRepo.FindByFarmID(farmID)
	if err != nil {
		return nil, err
	}

	producerName, err := s.producerName(farm.OwnerID)
	if err != nil {
		return nil, err
	}

	return &FarmDetail{
		Farm:         *farm,
		ProducerName: producerName,
		Images:       images,
	}, nil
}

// GetFarmReport recomputes the report from the persisted verdicts on every
// call.
func (s *ReportService) GetFarmReport(farmID uint, callerID string, path AccessPath) (*FarmReportView, error) {
	farm, err := s.guard.Authorize(callerID, farmID, path)
	if err != nil {
		return nil, err
	}

	stats, err := s.imageRepo.StatsByFarmID(farmID)
	if err != nil {
		return nil, err
	}

	producerName, err := s.producerName(farm.OwnerID)
	if err != nil {
		return nil, err
	}

	return &FarmReportView{
		Farm:         *farm,
		ProducerName: producerName,
		Report:       NewFarmReport(farm.ID, stats.Total, stats.Anomalous),
	}, nil
}

// OpenImage returns the stored bytes of one of the farm's images. The caller
// must close the reader.
func (s *ReportService) OpenImage(ctx context.Context, farmID, imageID uint, callerID string) (io.ReadCloser, *models.Image, error) {
	if _, err := s.guard.Authorize(callerID, farmID, AssociatedPath); err != nil {
		return nil, nil, err
	}

	image, err := s.imageRepo.FindByID(imageID)
	if err != nil {
		return nil, nil, err
	}
	if image == nil || image.FarmID != farmID {
		return nil, nil, ErrImageNotFound
	}

	rc, err := s.store.Open(ctx, image.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrImageNotFound
		}
		return nil, nil, err
	}
	return rc, image, nil
}

func (s *ReportService) Stats() (*PlatformStats, error) {
	farms, err := s.farmRepo.Count()
	if err != nil {
		return nil, err
	}
	images, err := s.imageRepo.Stats()
	if err != nil {
		return nil, err
	}
	return &PlatformStats{
		Farms:           farms,
		Images:          images.Total,
		AnomalousImages: images.Anomalous,
	}, nil
}

func (s *ReportService) producerName(ownerID string) (string, error) {
	owner, err := s.userRepo.FindByID(ownerID)
	if err != nil {
		return "", err
	}
	if owner == nil {
		return "", nil
	}
	return owner.Name, nil
}
