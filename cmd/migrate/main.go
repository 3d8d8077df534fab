package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/logger"
	"github.com/Rrens/neuralizard/internal/repository/migrations"
)

func newRootCmd() *cobra.Command {
	up := newUpCmd()
	cmd := &cobra.Command{
		Use:           "neuralizard-migrate",
		Short:         "Manage the neuralizard database schema",
		Long:          "Applies, rolls back or inspects the embedded schema migrations for the configured database. Without a subcommand it runs up.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          up.RunE,
	}

	cmd.AddCommand(up)
	cmd.AddCommand(newDownCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := migrations.Up(cfg.Database); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := migrations.Down(cfg.Database); err != nil {
				return fmt.Errorf("failed to roll back: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations rolled back")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v, dirty, err := migrations.Version(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to read version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty=%v)\n", v, dirty)
			return nil
		},
	}
}

// loadConfig reads .env and configuration, then installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := logger.Setup(logger.FromConfig(cfg.Logging, "neuralizard-migrate")); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migrating %s database...\n", cfg.Database.Backend())
	return cfg, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
