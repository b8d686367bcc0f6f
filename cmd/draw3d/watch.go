package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nQrChao/kids-draw-3d/internal/janitor"
	"github.com/nQrChao/kids-draw-3d/pkg/loader"
	"github.com/nQrChao/kids-draw-3d/pkg/pipeline"
	"github.com/nQrChao/kids-draw-3d/pkg/watcher"
)

var (
	watchDebounce time.Duration
	watchExisting bool
	watchMetrics  string
)

var watchCmd = &cobra.Command{
	Use:   "watch [inbox]",
	Short: "Process every drawing or model dropped into a directory",
	Long: `Watch an inbox directory and run the full pipeline for each new file once
it stops changing. The output directory is swept periodically to stay under
the storage quota. Metrics are served on --metrics-addr when set.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Wait this long after the last write before processing")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also process files already in the inbox")
	watchCmd.Flags().StringVar(&watchMetrics, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
}

func acceptInput(path string) bool {
	return pipeline.IsImage(path) || loader.Supported(path)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := app.logger
	svc := newService()
	defer svc.Close()

	if err := os.MkdirAll(app.cfg.OutputDir, 0755); err != nil {
		return err
	}
	sweeper := janitor.New(app.cfg.OutputDir, app.cfg.Storage.MaxBytes, log, app.metrics)
	go sweeper.Run(ctx, app.cfg.Storage.SweepInterval)

	addr := app.cfg.Metrics.Addr
	if cmd.Flags().Changed("metrics-addr") {
		addr = watchMetrics
	}
	if addr != "" {
		srv := serveMetrics(addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if same, err := sameDir(args[0], app.cfg.OutputDir); err != nil || same {
		if err == nil {
			err = fmt.Errorf("inbox %s must differ from the output directory", args[0])
		}
		return err
	}

	inbox, err := watcher.NewInbox(args[0], acceptInput, watchDebounce, log)
	if err != nil {
		return err
	}

	handle := func(path string) {
		if _, err := svc.Process(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("inbox file not processed", zap.String("path", path), zap.Error(err))
		}
	}

	var backlog errgroup.Group
	if watchExisting {
		existing, err := inbox.Existing()
		if err != nil {
			return err
		}
		backlog.Go(func() error {
			processBacklog(ctx, svc, existing, log)
			return nil
		})
	}

	log.Info("watching inbox", zap.String("inbox", args[0]), zap.String("output", app.cfg.OutputDir))
	runErr := inbox.Run(ctx, handle)
	_ = backlog.Wait()
	return runErr
}

// processBacklog runs files that were already in the inbox at startup
func processBacklog(ctx context.Context, svc *pipeline.Service, paths []string, log *zap.Logger) {
	for _, item := range svc.ProcessAll(ctx, paths) {
		if item.Err != nil && !errors.Is(item.Err, context.Canceled) {
			log.Warn("inbox file not processed", zap.String("path", item.Input), zap.Error(item.Err))
		}
	}
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
