package main

import (
	"fmt"
	"time"

	"github.com/agrineural/agrineural/internal/config"
	"github.com/agrineural/agrineural/internal/database"
	"github.com/agrineural/agrineural/internal/repository"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/spf13/cobra"
)

var (
	tokenUser    string
	tokenExpires time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token for a caller",
	Long: `Mint a bearer token for a caller id, for field devices and scripts that
cannot go through browser sign-in. The token is printed to stdout.`,
	Example: `  agrineural token --user 12345678900
  agrineural token --user drone-07 --expires 2160h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
		newLogger(cfg.Log)

		db, err := database.Connect(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close(db)
		if err := database.Migrate(db); err != nil {
			return err
		}

		tokens := services.NewTokenService(repository.NewTokenRepository(db), cfg.JWT.Secret)
		token, err := tokens.GenerateToken(tokenUser, tokenExpires)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "Caller id the token authenticates (required)")
	tokenCmd.Flags().DurationVar(&tokenExpires, "expires", 720*time.Hour, "Token lifetime")
	tokenCmd.MarkFlagRequired("user")
}
