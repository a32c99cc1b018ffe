package services

import (
	"context"
	"io"
	"testing"

	"github.com/agrineural/agrineural/internal/classifier"
	"github.com/agrineural/agrineural/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedImages ingests anomalous flagged images followed by normal healthy ones.
func seedImages(t *testing.T, env *testEnv, farm *models.Farm, anomalous, normal int) []uint {
	t.Helper()
	var ids []uint
	for i := 0; i < anomalous+normal; i++ {
		ingest := env.ingestService(classifier.NewStatic(i < anomalous), IngestOptions{})
		result, err := ingest.Ingest(context.Background(), sampleInput(farm.ID, farm.OwnerID))
		require.NoError(t, err)
		ids = append(ids, result.ImageID)
	}
	return ids
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		total, anomalous int64
		want             HealthStatus
	}{
		{10, 7, StatusCritical},
		{10, 3, StatusWarning},
		{10, 2, StatusHealthy},
		{0, 0, StatusHealthy},
		{1, 1, StatusCritical},
		{100, 70, StatusCritical},
		{100, 69, StatusWarning},
		{100, 30, StatusWarning},
		{100, 29, StatusHealthy},
		{3, 1, StatusWarning},
		{3, 2, StatusWarning},
		{10, 0, StatusHealthy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(tt.total, tt.anomalous), "%d/%d", tt.anomalous, tt.total)
	}
}

func TestNewFarmReport(t *testing.T) {
	report := NewFarmReport(4, 8, 2)

	assert.Equal(t, uint(4), report.FarmID)
	assert.Equal(t, int64(6), report.Normal)
	assert.Equal(t, 25.0, report.AnomalyPercentage)
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, []AnomalyType{{Name: "Anomalous", Value: 2}, {Name: "Normal", Value: 6}}, report.AnomalyTypes)

	empty := NewFarmReport(4, 0, 0)
	assert.Equal(t, 0.0, empty.AnomalyPercentage)
	assert.Equal(t, StatusHealthy, empty.Status)
}

func TestReportService_GetFarmReport(t *testing.T) {
	env := newTestEnv(t)
	farm := env.createFarm(t, "owner", "CCIR-1")
	seedImages(t, env, farm, 7, 3)

	view, err := env.reports.GetFarmReport(farm.ID, "owner", OwnerPath)
	require.NoError(t, err)

	assert.Equal(t, env.count(t, &models.Image{}), view.Report.Total)
	assert.Equal(t, int64(7), view.Report.Anomalous)
	assert.Equal(t, int64(3), view.Report.Normal)
	assert.Equal(t, 70.0, view.Report.AnomalyPercentage)
	assert.Equal(t, StatusCritical, view.Report.Status)
	assert.Equal(t, "CCIR-1", view.Farm.RegistryCode)
}

func TestReportService_EmptyFarmIsHealthy(t *testing.T) {
	env := newTestEnv(t)
	farm := env.createFarm(t, "owner", "CCIR-1")

	view, err := env.reports.GetFarmReport(farm.ID, "owner", OwnerPath)
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.Report.Total)
	assert.Equal(t, StatusHealthy, view.Report.Status)
}

func TestReportService_ReportIsScopedToFarm(t *testing.T) {
	env := newTestEnv(t)
	farmA := env.createFarm(t, "owner", "CCIR-A")
	farmB := env.createFarm(t, "owner", "CCIR-B")
	seedImages(t, env, farmA, 3, 7)
	seedImages(t, env, farmB, 0, 2)

	viewA, err := env.reports.GetFarmReport(farmA.ID, "owner", AssociatedPath)
	require.NoError(t, err)
	assert.Equal(t, int64(10), viewA.Report.Total)
	assert.Equal(t, StatusWarning, viewA.Report.Status)

	viewB, err := env.reports.GetFarmReport(farmB.ID, "owner", AssociatedPath)
	require.NoError(t, err)
	assert.Equal(t, int64(2), viewB.Report.Total)
	assert.Equal(t, StatusHealthy, viewB.Report.Status)
}

func TestReportService_AccessControl(t *testing.T) {
	env := newTestEnv(t)
	farm := env.createFarm(t, "owner", "CCIR-1")
	seedImages(t, env, farm, 1, 1)
	_, err := env.associations.Associate("operator", farm.ID)
	require.NoError(t, err)

	_, err = env.reports.GetFarmDetail(farm.ID, "stranger", AssociatedPath)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = env.reports.GetFarmReport(farm.ID, "stranger", AssociatedPath)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.reports.GetFarmReport(farm.ID, "operator", OwnerPath)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = env.reports.GetFarmReport(farm.ID, "operator", AssociatedPath)
	assert.NoError(t, err)

	_, err = env.reports.GetFarmDetail(99, "owner", OwnerPath)
	assert.ErrorIs(t, err, ErrFarmNotFound)
}

func TestReportService_GetFarmDetail(t *testing.T) {
	env := newTestEnv(t)
	farm := env.createFarm(t, "12345678900", "CCIR-1")
	ids := seedImages(t, env, farm, 1, 2)

	detail, err := env.reports.GetFarmDetail(farm.ID, "12345678900", OwnerPath)
	require.NoError(t, err)
	assert.Equal(t, "12345678900", detail.Farm.OwnerID)
	assert.Empty(t, detail.ProducerName)
	require.Len(t, detail.Images, 3)
	for i, img := range detail.Images {
		assert.Equal(t, ids[i], img.ID)
		require.NotNil(t, img.Verdict)
		assert.Equal(t, i == 0, img.Verdict.Anomalous)
	}

	require.NoError(t, env.userRepo.Upsert(&models.User{ID: "12345678900", Name: "Maria", Role: models.RoleProducer}))
	detail, err = env.reports.GetFarmDetail(farm.ID, "12345678900", OwnerPath)
	require.NoError(t, err)
	assert.Equal(t, "Maria", detail.ProducerName)
}

func TestReportService_OpenImage(t *testing.T) {
	env := newTestEnv(t)
	farm := env.createFarm(t, "owner", "CCIR-1")
	other := env.createFarm(t, "owner", "CCIR-2")
	ids := seedImages(t, env, farm, 0, 1)

	rc, image, err := env.reports.OpenImage(context.Background(), farm.ID, ids[0], "owner")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "aerial-image", string(data))
	assert.Equal(t, "plot-7.jpg", image.OriginalName)

	_, _, err = env.reports.OpenImage(context.Background(), other.ID, ids[0], "owner")
	assert.ErrorIs(t, err, ErrImageNotFound)

	_, _, err = env.reports.OpenImage(context.Background(), farm.ID, ids[0], "stranger")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestReportService_Stats(t *testing.T) {
	env := newTestEnv(t)
	farm := env.createFarm(t, "owner", "CCIR-1")
	env.createFarm(t, "owner", "CCIR-2")
	seedImages(t, env, farm, 2, 3)

	stats, err := env.reports.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Farms)
	assert.Equal(t, int64(5), stats.Images)
	assert.Equal(t, int64(2), stats.AnomalousImages)
}
