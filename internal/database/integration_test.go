package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func startPostgres(ctx context.Context, t *testing.T) string {
	natPort := nat.Port("5432/tcp")

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{string(natPort)},
		Env: map[string]string{
			"POSTGRES_USER":     "agrineural",
			"POSTGRES_PASSWORD": "agrineural",
			"POSTGRES_DB":       "agrineural",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, natPort)
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=agrineural password=agrineural dbname=agrineural sslmode=disable",
		host, mappedPort.Port())
}

func startMySQL(ctx context.Context, t *testing.T) string {
	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("agrineural"),
		tcmysql.WithUsername("agrineural"),
		tcmysql.WithPassword("agrineural"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)
	return "mysql://" + dsn
}

func exerciseSchema(t *testing.T, db *gorm.DB) {
	require.NoError(t, Migrate(db))

	farm := &models.Farm{RegistryCode: "CCIR-1", Name: "North", Latitude: -10, Longitude: -50, AreaHectares: 12.5, OwnerID: "111"}
	require.NoError(t, db.Create(farm).Error)
	assert.Error(t, db.Create(&models.Farm{RegistryCode: "CCIR-1", Name: "Dup", OwnerID: "222"}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		image := &models.Image{FarmID: farm.ID, StoragePath: "farm-1/a.jpg", Latitude: -10, Longitude: -50}
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		return tx.Create(&models.Verdict{ID: image.ID, Anomalous: true}).Error
	})
	require.NoError(t, err)

	var verdicts int64
	require.NoError(t, db.Model(&models.Verdict{}).Count(&verdicts).Error)
	assert.Equal(t, int64(1), verdicts)
}

func TestIntegration_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	db, err := Connect(startPostgres(ctx, t))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	exerciseSchema(t, db)
}

func TestIntegration_MySQL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	db, err := Connect(startMySQL(ctx, t))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	exerciseSchema(t, db)
}
