package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrineural/agrineural/internal/classifier"
	"github.com/agrineural/agrineural/internal/metrics"
	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/notify"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/agrineural/agrineural/internal/storage"
	"github.com/agrineural/agrineural/internal/telemetry"
	"gorm.io/gorm"
)

var (
	ErrStorageWriteFailed   = errors.New("storage write failed")
	ErrClassificationFailed = errors.New("classification failed")
	ErrPersistenceFailed    = errors.New("persistence failed")
)

const (
	defaultClassifyTimeout = 30 * time.Second
	cleanupTimeout         = 10 * time.Second
)

type IngestInput struct {
	FarmID       uint
	CallerID     string
	Data         []byte  `validate:"required,min=1"`
	OriginalName string  `validate:"required,max=255"`
	Latitude     float64 `validate:"gte=-90,lte=90"`
	Longitude    float64 `validate:"gte=-180,lte=180"`
}

type IngestResult struct {
	ImageID     uint   `json:"image_id"`
	FarmID      uint   `json:"farm_id"`
	Anomalous   bool   `json:"anomalous"`
	StoragePath string `json:"storage_path"`
}

type IngestOptions struct {
	// ClassifyTimeout bounds a single classifier call. Zero means 30s.
	ClassifyTimeout time.Duration
	// MaxUploadBytes rejects larger payloads as invalid input. Zero disables
	// the check.
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Notifier       notify.Notifier
}

type IngestService struct {
	guard      *AccessGuard
	imageRepo  *repository.ImageRepository
	store      storage.FileStore
	classifier classifier.Classifier
	db         *gorm.DB
	logger     *slog.Logger
	opts       IngestOptions
}

func NewIngestService(
	guard *AccessGuard,
	imageRepo *repository.ImageRepository,
	store storage.FileStore,
	cls classifier.Classifier,
	db *gorm.DB,
	logger *slog.Logger,
	opts IngestOptions,
) *IngestService {
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = defaultClassifyTimeout
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewNop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		guard:      guard,
		imageRepo:  imageRepo,
		store:      store,
		classifier: cls,
		db:         db,
		logger:     logger.With("component", "ingest"),
		opts:       opts,
	}
}

// Ingest stores the image, classifies it and persists the image and its
// verdict in one transaction. When anything after the file write fails the
// stored file is removed before the error is returned, so an image row exists
// exactly when its file and verdict exist.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (result *IngestResult, err error) {
	log := s.logger.With("farm_id", input.FarmID, "caller_id", input.CallerID)
	defer func() {
		switch {
		case err != nil:
			s.opts.Metrics.ObserveIngestion(ErrorKind(err))
		case result == nil:
			s.opts.Metrics.ObserveIngestion(KindInternal)
		default:
			s.opts.Metrics.ObserveIngestion("success")
		}
	}()

	if _, err := s.guard.Authorize(input.CallerID, input.FarmID, AssociatedPath); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if s.opts.MaxUploadBytes > 0 && int64(len(input.Data)) > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidInput, s.opts.MaxUploadBytes)
	}

	ref, err := s.store.Write(ctx, input.FarmID, input.OriginalName, input.Data)
	if err != nil {
		s.logFailure(log, "store", err)
		return nil, ErrStorageWriteFailed
	}

	committed := false
	defer func() {
		if !committed {
			s.discard(ctx, log, ref)
		}
	}()

	anomalous, err := s.classify(ctx, ref)
	if err != nil {
		s.logFailure(log.With("ref", ref), "classify", err)
		return nil, ErrClassificationFailed
	}

	image := &models.Image{
		FarmID:       input.FarmID,
		StoragePath:  ref,
		OriginalName: input.OriginalName,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		UploadedBy:   input.CallerID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.imageRepo.CreateInTx(tx, image); err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
		verdict := &models.Verdict{ID: image.ID, Anomalous: anomalous}
		if err := s.imageRepo.CreateVerdictInTx(tx, verdict); err != nil {
			return fmt.Errorf("insert verdict: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure(log.With("ref", ref), "persist", err)
		return nil, ErrPersistenceFailed
	}
	committed = true

	s.opts.Metrics.ObserveVerdict(anomalous)
	log.Info("image ingested", "image_id", image.ID, "anomalous", anomalous)

	event := notify.Event{
		FarmID:     image.FarmID,
		ImageID:    image.ID,
		Anomalous:  anomalous,
		Latitude:   image.Latitude,
		Longitude:  image.Longitude,
		UploadedBy: image.UploadedBy,
		OccurredAt: image.CreatedAt,
	}
	if err := s.opts.Notifier.ImageClassified(ctx, event); err != nil {
		log.Warn("failed to publish ingestion event", "image_id", image.ID, "error", err)
	}

	return &IngestResult{
		ImageID:     image.ID,
		FarmID:      image.FarmID,
		Anomalous:   anomalous,
		StoragePath: ref,
	}, nil
}

func (s *IngestService) classify(ctx context.Context, ref string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ClassifyTimeout)
	defer cancel()

	start := time.Now()
	anomalous, err := s.classifier.Classify(ctx, ref)
	s.opts.Metrics.ObserveClassification(time.Since(start))
	return anomalous, err
}

// discard removes a file whose ingestion did not commit. It runs detached
// from the request context so a canceled request still cleans up.
func (s *IngestService) discard(ctx context.Context, log *slog.Logger, ref string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, ref); err != nil {
		s.opts.Metrics.IncCleanupFailures()
		s.logFailure(log.With("ref", ref), "cleanup", err)
	}
}

func (s *IngestService) logFailure(log *slog.Logger, stage string, err error) {
	log.Error("image ingestion failed", "stage", stage, "error", err)
	telemetry.CaptureError(err, map[string]string{"component": "ingest", "stage": stage})
}
