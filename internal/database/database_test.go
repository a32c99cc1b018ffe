package database

import (
	"testing"

	"github.com/agrineural/agrineural/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_InMemoryIsolated(t *testing.T) {
	first, err := Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(first))
	t.Cleanup(func() { Close(first) })

	second, err := Connect("")
	require.NoError(t, err)
	require.NoError(t, Migrate(second))
	t.Cleanup(func() { Close(second) })

	require.NoError(t, first.Create(&models.Farm{RegistryCode: "CCIR-1", Name: "North", OwnerID: "111"}).Error)

	var count int64
	require.NoError(t, second.Model(&models.Farm{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestMigrate_RegistryCodeUnique(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.Farm{RegistryCode: "CCIR-1", Name: "North", OwnerID: "111"}).Error)
	err = db.Create(&models.Farm{RegistryCode: "CCIR-1", Name: "South", OwnerID: "222"}).Error
	assert.Error(t, err)
}

func TestMigrate_AssociationPairUnique(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	farm := &models.Farm{RegistryCode: "CCIR-1", Name: "North", OwnerID: "111"}
	require.NoError(t, db.Create(farm).Error)

	require.NoError(t, db.Create(&models.Association{UserID: "222", FarmID: farm.ID}).Error)
	assert.Error(t, db.Create(&models.Association{UserID: "222", FarmID: farm.ID}).Error)
	assert.NoError(t, db.Create(&models.Association{UserID: "333", FarmID: farm.ID}).Error)
}

func TestSqliteFile(t *testing.T) {
	path := t.TempDir() + "/agrineural.db"

	db, err := Connect("sqlite:" + path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&models.User{ID: "111", Name: "Ana", Role: models.RoleProducer}).Error)
	require.NoError(t, Close(db))

	reopened, err := Connect("sqlite:" + path)
	require.NoError(t, err)
	t.Cleanup(func() { Close(reopened) })

	var user models.User
	require.NoError(t, reopened.First(&user, "id = ?", "111").Error)
	assert.Equal(t, "Ana", user.Name)
}
