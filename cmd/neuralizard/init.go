package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/repository/migrations"
)

const envTemplate = `OPENAI_API_KEY=
ANTHROPIC_API_KEY=
GOOGLE_API_KEY=
MISTRAL_API_KEY=
COHERE_API_KEY=
XAI_API_KEY=
DEEPSEEK_API_KEY=
PERPLEXITY_API_KEY=
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema and the user env file",
		Long:  "Applies database migrations and writes ~/.neuralizard/.env with empty API keys if it does not exist.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := migrations.Up(cfg.Database); err != nil {
				return err
			}

			env := config.EnvFile()
			created, err := ensureEnvFile(env)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s database\n", cfg.Database.Backend())
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s; add your API keys there\n", env)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Using existing %s\n", env)
			}
			return nil
		},
	}
}

func ensureEnvFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(envTemplate), 0o600); err != nil {
		return false, fmt.Errorf("failed to write env file: %w", err)
	}
	return true, nil
}
