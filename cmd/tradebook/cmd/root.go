package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/tradebook/config"
	"github.com/rustyeddy/tradebook/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradebook",
	Short: "Realized PnL from executed trade logs",
	Long: `Tradebook books a time-ordered log of executed trades against
average-cost positions and reports the realized PnL series.

It provides tools for:
  - Computing realized PnL, win rate and drawdown from a CSV trade log
  - Importing trade logs into a SQLite journal
  - Browsing recorded runs and their PnL series
  - Serving the engine over HTTP with Prometheus metrics`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	cfgPath  string
	envFile  string
	logLevel string

	cfg *config.Config
	log *logrus.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading TRADEBOOK_* variables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

// setup loads .env, the config file and environment overrides, then builds
// the logger.
func setup(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var err error
	cfg, err = loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err = logging.Setup(cfg.Log)
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		c, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return c, nil
	}

	c := config.Default()
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}
