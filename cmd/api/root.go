package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"eduplatform/internal/config"
	"eduplatform/internal/log"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "eduplatform-api",
		Short:        "Authentication API for admins, students and tutors",
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the maintenance scheduler",
		RunE:  runServe,
	})
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

// loadConfig reads and validates configuration and builds the logger.
func loadConfig() (*config.AppConfig, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	generated, err := cfg.Validate()
	if err != nil {
		return nil, logger, err
	}
	if generated {
		logger.Warn().Msg("security.jwtsecret not set, using a random secret; tokens will not survive a restart")
	}
	return cfg, logger, nil
}
