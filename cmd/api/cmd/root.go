package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/internal/app"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/spf13/cobra"
)

var envFile string

// rootCmd starts the API server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "securedocs",
	Short: "SecureDocs document storage server",
	Long: `SecureDocs stores user documents and can copy them to remote storage
providers such as Pinata (IPFS) and Arweave. Without a subcommand it runs the
HTTP API together with the background maintenance loop.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, purgeCmd, providersCmd)
}

// bootstrap loads configuration and builds the application graph.
func bootstrap(ctx context.Context) (*app.App, error) {
	log := logger.NewLogger(logger.LoggingConfig{})

	if err := godotenv.Load(envFile); err != nil {
		log.Warning("No .env file found, using environment variables")
	}

	log.Info("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log = logger.NewLogger(cfg.LoggerConfig())
	return app.New(ctx, cfg, log)
}
