package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nQrChao/kids-draw-3d/internal/config"
	"github.com/nQrChao/kids-draw-3d/internal/janitor"
	"github.com/nQrChao/kids-draw-3d/internal/logger"
	"github.com/nQrChao/kids-draw-3d/internal/metrics"
	"github.com/nQrChao/kids-draw-3d/pkg/pipeline"
	"github.com/nQrChao/kids-draw-3d/version"
)

// env is the state every subcommand shares once flags are parsed
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

var app env

var rootCmd = &cobra.Command{
	Use:   "draw3d",
	Short: "Turn children's drawings into printable 3D models",
	Long: `draw3d converts drawings and raw 3D models into printable STL files.
Models are normalized to a fixed size, repaired until they are closed and
consistently oriented, and checked for printability.`,
	Version:           version.GetFullVersion(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.logger != nil {
			_ = app.logger.Sync()
		}
	},
}

func init() {
	config.BindFlags(rootCmd.PersistentFlags())
}

func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString(config.FlagConfig)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	config.ApplyFlags(cfg, cmd.Flags())
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.logger = log
	app.registry = prometheus.NewRegistry()
	app.metrics = metrics.NewCollector("draw3d", app.registry, log)
	return nil
}

// newService builds a pipeline wired to the shared logger and metrics
func newService() *pipeline.Service {
	sweeper := janitor.New(app.cfg.OutputDir, app.cfg.Storage.MaxBytes, app.logger, app.metrics)
	return pipeline.New(app.cfg, app.logger,
		pipeline.WithMetrics(app.metrics),
		pipeline.WithJanitor(sweeper),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
