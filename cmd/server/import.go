package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/agrineural/agrineural/internal/config"
	"github.com/agrineural/agrineural/internal/database"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/spf13/cobra"
)

type FarmImport struct {
	OwnerID string `json:"owner_id"`
	services.CreateFarmInput
}

var (
	importFile string
	strictMode bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import farms from JSON file",
	Long: `Import registered farms from a JSON file.

Expected JSON format:
[
  {"owner_id": "12345678900", "registry_code": "CCIR-0001", "name": "Santa Rita",
   "latitude": -15.6, "longitude": -47.8, "area_hectares": 120.5}
]

Farms whose registry code already exists are skipped. Invalid entries are
skipped too unless --strict is given.`,
	Example: `  agrineural import -f farms.json
  agrineural import -f farms.json --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport()
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON file to import (required)")
	importCmd.Flags().BoolVar(&strictMode, "strict", false, "Fail on any validation error")
	importCmd.MarkFlagRequired("file")
}

func runImport() error {
	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var farms []FarmImport
	if err := json.Unmarshal(data, &farms); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.Log)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	farmService := services.NewFarmService(repository.NewFarmRepository(db))

	logger.Info("starting farm import", "count", len(farms), "file", importFile)

	var imported, duplicates, skipped int
	for _, f := range farms {
		if f.OwnerID == "" {
			if strictMode {
				return fmt.Errorf("import failed for %s: owner_id is required", f.RegistryCode)
			}
			logger.Warn("skipped farm without owner", "registry_code", f.RegistryCode)
			skipped++
			continue
		}

		_, err := farmService.CreateFarm(f.OwnerID, f.CreateFarmInput)
		switch {
		case err == nil:
			imported++
		case errors.Is(err, services.ErrDuplicateRegistryCode):
			logger.Info("farm already registered", "registry_code", f.RegistryCode)
			duplicates++
		case errors.Is(err, services.ErrInvalidInput) && !strictMode:
			logger.Warn("skipped invalid farm", "registry_code", f.RegistryCode, "error", err)
			skipped++
		default:
			return fmt.Errorf("import failed for %s: %w", f.RegistryCode, err)
		}
	}

	logger.Info("import complete", "imported", imported, "duplicates", duplicates, "skipped", skipped)
	return nil
}
