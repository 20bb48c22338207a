/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/db"
	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const adminUsername = "admin"

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations and seed the admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		migrator, err := newMigrator()
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		version, _, _ := migrator.Version()
		log.Info().Uint("version", version).Msg("migrations applied")

		return seedAdmin(cmd)
	},
}

var downSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Long: `Roll back the last --steps migrations, or all of them with --steps 0.

	hoa migrate down --steps 1
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		migrator, err := newMigrator()
		if err != nil {
			return err
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if downSteps > 0 {
			err = migrator.Steps(-downSteps)
		} else {
			err = migrator.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back, 0 for all")
}

func newMigrator() (*migrate.Migrate, error) {
	migrator, err := migrate.New("file://"+cfg.Database.MigrationsPath, db.PostgresURL(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return migrator, nil
}

// seedAdmin creates the bootstrap admin when it does not exist yet.
func seedAdmin(cmd *cobra.Command) error {
	hash := cfg.Auth.AdminPasswordHash
	if hash == "" {
		var err error
		if hash, err = auth.HashPassword(cfg.Auth.AdminPassword); err != nil {
			return err
		}
	}

	conn, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	created, err := store.NewUserRepository(conn).EnsureAdmin(cmd.Context(), adminUsername, hash)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info().Str("username", adminUsername).Msg("admin user created")
	}
	return nil
}
