package commands

import (
	"fmt"
	"os"

	"kidney-story/internal/config"
	"kidney-story/internal/database"
	"kidney-story/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kidneyctl",
	Short: "Operations tool for the Our Kidney Story backend",
	Long: `kidneyctl runs maintenance tasks against the database configured for the API:
schema migrations and reference data seeding.

Configuration is read from the environment. --env-file loads a dotenv file first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		} else {
			// A missing .env is fine; the environment may be complete.
			_ = godotenv.Load()
		}

		cfg = config.Load()
		l, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Dotenv file loaded before reading configuration")
}

func openDatabase() (database.Service, error) {
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
