package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *models.Config
)

var rootCmd = &cobra.Command{
	Use:   "deli",
	Short: "Delivery ETA and store delay statistics service",
	Long: `deli computes delivery ETAs when orders are placed, records delivery completions
arriving over HTTP or a message broker, and keeps per-store delay statistics up to date
both per completed order and in a nightly batch over the previous day.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}

		var err error
		cfg, err = models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		logger.Setup(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./deli.yaml or ./configs/deli.yaml)")
	rootCmd.PersistentFlags().String("storage", "", "storage backend: postgres or memory")
	rootCmd.PersistentFlags().String("broker", "", "message broker: kafka, rabbitmq or log")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("timezone", "", "IANA time zone for peak hours and nightly windows")

	bindFlag("storage", "storage")
	bindFlag("broker", "broker")
	bindFlag("log.level", "log-level")
	bindFlag("timezone", "timezone")
}

// bindFlag lets a persistent flag override the config key when it is set.
func bindFlag(key, flag string) {
	cobra.CheckErr(viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)))
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
