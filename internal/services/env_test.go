package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrineural/agrineural/internal/classifier"
	"github.com/agrineural/agrineural/internal/database"
	"github.com/agrineural/agrineural/internal/models"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/agrineural/agrineural/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db              *gorm.DB
	store           *storage.LocalStore
	farmRepo        *repository.FarmRepository
	associationRepo *repository.AssociationRepository
	imageRepo       *repository.ImageRepository
	userRepo        *repository.UserRepository
	guard           *AccessGuard
	farms           *FarmService
	associations    *AssociationService
	reports         *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		db:              db,
		store:           store,
		farmRepo:        repository.NewFarmRepository(db),
		associationRepo: repository.NewAssociationRepository(db),
		imageRepo:       repository.NewImageRepository(db),
		userRepo:        repository.NewUserRepository(db),
	}
	env.guard = NewAccessGuard(env.farmRepo, env.associationRepo)
	env.farms = NewFarmService(env.farmRepo)
	env.associations = NewAssociationService(env.farmRepo, env.associationRepo)
	env.reports = NewReportService(env.guard, env.farmRepo, env.imageRepo, env.userRepo, store)
	return env
}

func (e *testEnv) ingestService(cls classifier.Classifier, opts IngestOptions) *IngestService {
	return NewIngestService(e.guard, e.imageRepo, e.store, cls, e.db, nil, opts)
}

func (e *testEnv) createFarm(t *testing.T, ownerID, code string) *models.Farm {
	t.Helper()
	farm, err := e.farms.CreateFarm(ownerID, CreateFarmInput{
		RegistryCode: code,
		Name:         "Farm " + code,
		Latitude:     -10,
		Longitude:    -50,
		AreaHectares: 12.5,
	})
	require.NoError(t, err)
	return farm
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

// storedFiles lists what is on disk for the farm.
func (e *testEnv) storedFiles(t *testing.T, farmID uint) []string {
	t.Helper()
	dir := filepath.Join(e.store.BaseDir(), fmt.Sprintf("farm-%d", farmID))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// failingStore refuses every write.
type failingStore struct {
	storage.FileStore
}

func (failingStore) Write(ctx context.Context, farmID uint, name string, data []byte) (string, error) {
	return "", errors.New("disk full")
}
