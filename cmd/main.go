package main

import (
	"fmt"
	"os"
	"strconv"

	"healthsync-api/cmd/bootstrap"
	"healthsync-api/config"
	"healthsync-api/internal/infrastructure/database"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthsync",
		Short: "HealthSync clinic appointment API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	app, err := bootstrap.New()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run()
}

// openMigrator connects to the configured database for a migrate subcommand.
// The returned func closes the connection.
func openMigrator() (*database.Migrator, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := bootstrap.NewLogger(cfg.Log.Level)

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env, log)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	migrator, err := database.NewMigrator(db, log)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return migrator, closeDB, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := migrator.Up(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}

			migrator, closeDB, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := migrator.Down(steps); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			fmt.Printf("Schema version: %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	return cmd
}
