package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"gorm.io/gorm"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "marketctl",
	Short: "Operator tool for a FreelanceHub deployment",
	Long: `marketctl runs maintenance tasks against the database configured for the server.

It reads the same config.yaml and environment overrides as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.Init(level)

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		utils.SetJWTSecret(cfg.JWT.Secret)
		return nil
	},
}

// openDB connects and migrates; every command that touches data goes through it
func openDB() (*gorm.DB, error) {
	if err := models.InitDB(&cfg.Database); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return models.GetDB(), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	escrowCmd.AddCommand(escrowSweepCmd)
	usersCmd.AddCommand(usersPromoteCmd)
	configCmd.AddCommand(configPrintCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(escrowCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
