package database

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/agrineural/agrineural/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database named by databaseURL. An empty URL or ":memory:"
// yields a private in-memory sqlite database, "sqlite:<path>" a sqlite file,
// "mysql://<dsn>" a MySQL server and anything else is handed to postgres.
func Connect(databaseURL string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	inMemory := databaseURL == "" || databaseURL == ":memory:" || databaseURL == "sqlite::memory:"

	switch {
	case inMemory:
		db, err = gorm.Open(sqlite.Open(":memory:"), config)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		dbPath := strings.TrimPrefix(databaseURL, "sqlite:")
		dbPath = dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
		db, err = gorm.Open(sqlite.Open(dbPath), config)
	case strings.HasPrefix(databaseURL, "mysql://"):
		dsn := strings.TrimPrefix(databaseURL, "mysql://")
		if !strings.Contains(dsn, "parseTime") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "charset=utf8mb4&parseTime=True&loc=Local"
		}
		db, err = gorm.Open(mysql.Open(dsn), config)
	default:
		db, err = gorm.Open(postgres.Open(databaseURL), config)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if inMemory {
		// every sqlite connection to :memory: is a distinct database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	slog.Info("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Farm{},
		&models.Association{},
		&models.Image{},
		&models.Verdict{},
		&models.APIToken{},
	)

	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}

// Close releases the pooled connections behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
