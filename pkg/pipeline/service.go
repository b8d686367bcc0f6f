// Package pipeline turns drawings and raw models into printable STL files.
//
// A task runs convert (load, normalize, write STL), then optimize (repair
// the written STL in place), then check. Geometry work is handed to a
// bounded worker pool; the calling goroutine only waits.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nQrChao/kids-draw-3d/internal/config"
	"github.com/nQrChao/kids-draw-3d/internal/janitor"
	"github.com/nQrChao/kids-draw-3d/internal/worker"
	"github.com/nQrChao/kids-draw-3d/pkg/analysis"
	"github.com/nQrChao/kids-draw-3d/pkg/generator"
	"github.com/nQrChao/kids-draw-3d/pkg/loader"
	"github.com/nQrChao/kids-draw-3d/pkg/normalize"
	"github.com/nQrChao/kids-draw-3d/pkg/preview"
	"github.com/nQrChao/kids-draw-3d/pkg/repair"
	"github.com/nQrChao/kids-draw-3d/pkg/stl"
)

// Metrics is the subset of the metrics collector the pipeline reports to
type Metrics interface {
	RecordTask(status string)
	ObserveStage(stage string, d time.Duration)
	RecordRepairStep(step, outcome string)
	RecordCheck(printable bool)
}

type nopMetrics struct{}

func (nopMetrics) RecordTask(string)                  {}
func (nopMetrics) ObserveStage(string, time.Duration) {}
func (nopMetrics) RecordRepairStep(string, string)    {}
func (nopMetrics) RecordCheck(bool)                   {}

// Result describes one processed task
type Result struct {
	TaskID       string           `json:"task_id"`
	InputPath    string           `json:"input_path"`
	ModelPath    string           `json:"model_path"`
	STLPath      string           `json:"stl_path"`
	PreviewPath  string           `json:"preview_path,omitempty"`
	Repair       *repair.Report   `json:"repair"`
	Printability *analysis.Report `json:"printability"`
	Duration     time.Duration    `json:"duration_ns"`
}

// Service runs pipeline tasks
type Service struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   Metrics
	pool      *worker.Pool
	ownsPool  bool
	generator generator.Generator
	engine    *repair.Engine
	janitor   *janitor.Janitor
}

// Option customizes a Service
type Option func(*Service)

// WithMetrics reports to m
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithGenerator replaces the generator built from config
func WithGenerator(g generator.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithPool shares an existing worker pool
func WithPool(p *worker.Pool) Option {
	return func(s *Service) { s.pool = p }
}

// WithJanitor sweeps storage before each task
func WithJanitor(j *janitor.Janitor) Option {
	return func(s *Service) { s.janitor = j }
}

// New creates a service from cfg. Without WithGenerator the configured
// command is the primary generator and the height map is the fallback.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "pipeline")),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pool == nil {
		s.pool = worker.New(cfg.Workers)
		s.ownsPool = true
	}
	if s.generator == nil {
		recorder, _ := s.metrics.(generator.Recorder)
		s.generator = DefaultGenerator(cfg, logger, recorder)
	}
	s.engine = repair.NewEngine(repair.Options{
		MergeTolerance: cfg.Repair.MergeTolerance,
		AreaEpsilon:    cfg.Repair.AreaEpsilon,
	}, logger)
	return s
}

// DefaultGenerator builds the command generator (when configured) backed by
// the height-map fallback
func DefaultGenerator(cfg *config.Config, logger *zap.Logger, recorder generator.Recorder) generator.Generator {
	var primary generator.Generator
	if cfg.Generator.Command != "" {
		primary = generator.NewCommandGenerator(cfg.Generator.Command, cfg.Generator.Args, cfg.Generator.Timeout, cfg.OutputDir)
	}
	fallback := generator.NewHeightmapGenerator(
		cfg.Heightmap.Resolution,
		cfg.Heightmap.PixelSize,
		cfg.Heightmap.MaxHeight,
		cfg.Heightmap.BaseHeight,
	)
	return generator.NewChain(primary, fallback, logger, recorder)
}

// Close releases the worker pool if the service created it
func (s *Service) Close() {
	if s.ownsPool {
		s.pool.Close()
	}
}

func (s *Service) observe(stage string, start time.Time) {
	s.metrics.ObserveStage(stage, time.Since(start))
}

// ConvertToSTL loads modelPath, normalizes it to the configured target size
// and writes <taskID>_model.stl. Load failures produce no file.
func (s *Service) ConvertToSTL(ctx context.Context, modelPath, taskID string) (string, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return "", err
	}
	out := STLPath(s.cfg.OutputDir, taskID)
	defer s.observe("convert", time.Now())

	err := s.pool.Do(ctx, func() error {
		m, err := loader.Load(modelPath)
		if err != nil {
			return err
		}
		warning, err := normalize.Normalize(m, s.cfg.TargetSize)
		if err != nil {
			return err
		}
		if warning != nil {
			s.logger.Warn("model has no extent, centered without scaling",
				zap.String("task_id", taskID), zap.Error(warning))
		}
		return stl.WriteFile(out, m)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("model converted", zap.String("task_id", taskID), zap.String("stl", out))
	return out, nil
}

// Optimize repairs the STL at stlPath in place. Repair step failures are
// reported, never returned; the file is always rewritten.
func (s *Service) Optimize(ctx context.Context, stlPath string) (*repair.Report, error) {
	defer s.observe("repair", time.Now())

	report, err := worker.Run(ctx, s.pool, func() (*repair.Report, error) {
		m, err := loader.Load(stlPath)
		if err != nil {
			return nil, err
		}
		report := s.engine.Run(m)
		if err := stl.WriteFile(stlPath, m); err != nil {
			return nil, err
		}
		return report, nil
	})
	if err != nil {
		return nil, err
	}

	for _, step := range report.Steps {
		outcome := "applied"
		switch {
		case step.Skipped:
			outcome = "skipped"
		case step.Failed():
			outcome = "failed"
		}
		s.metrics.RecordRepairStep(step.Name, outcome)
	}
	return report, nil
}

// Check reports printability of the model at path
func (s *Service) Check(ctx context.Context, path string) (*analysis.Report, error) {
	defer s.observe("check", time.Now())

	report, err := worker.Run(ctx, s.pool, func() (*analysis.Report, error) {
		return analysis.CheckFile(path)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCheck(report.Printable)
	return report, nil
}

// Preview renders the model at modelPath to a PNG at outPath
func (s *Service) Preview(ctx context.Context, modelPath, outPath string, size int) error {
	defer s.observe("preview", time.Now())

	opts := preview.DefaultOptions()
	opts.Size = size
	return s.pool.Do(ctx, func() error {
		m, err := loader.Load(modelPath)
		if err != nil {
			return err
		}
		return preview.WritePNG(outPath, m, opts)
	})
}

// Scale resizes the STL at path to percent of its current size
func (s *Service) Scale(ctx context.Context, path string, percent float64) error {
	defer s.observe("scale", time.Now())
	return s.pool.Do(ctx, func() error {
		return ScaleModel(path, percent)
	})
}

// ScaleModel loads the STL at path, scales it uniformly by percent/100 and
// writes it back. Any positive finite percent is accepted.
func ScaleModel(path string, percent float64) error {
	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent <= 0 {
		return fmt.Errorf("scale percent must be positive and finite, got %v", percent)
	}
	if !strings.EqualFold(filepath.Ext(path), ".stl") {
		return fmt.Errorf("scale expects an .stl file, got %s", path)
	}

	m, err := loader.Load(path)
	if err != nil {
		return err
	}
	if err := normalize.ScalePercent(m, percent); err != nil {
		return err
	}
	return stl.WriteFile(path, m)
}

// Process runs a full task for input, which is either a drawing (handed to
// the generator first) or a model file
func (s *Service) Process(ctx context.Context, input string) (*Result, error) {
	start := time.Now()
	taskID := NewTaskID()
	log := s.logger.With(zap.String("task_id", taskID))

	result, err := s.process(ctx, taskID, input, log)
	if err != nil {
		s.metrics.RecordTask("error")
		log.Error("task failed", zap.String("input", input), zap.Error(err))
		return nil, err
	}
	result.Duration = time.Since(start)
	s.metrics.RecordTask("success")
	log.Info("task completed",
		zap.Bool("printable", result.Printability.Printable),
		zap.Duration("took", result.Duration))
	return result, nil
}

func (s *Service) process(ctx context.Context, taskID, input string, log *zap.Logger) (*Result, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if s.janitor != nil {
		if _, err := s.janitor.Sweep(); err != nil {
			log.Warn("storage sweep failed", zap.Error(err))
		}
	}

	result := &Result{TaskID: taskID, InputPath: input, ModelPath: input}
	log.Info("task started", zap.String("input", input))

	if IsImage(input) {
		kept := InputPath(s.cfg.OutputDir, taskID, filepath.Ext(input))
		if err := copyFile(input, kept); err != nil {
			return nil, fmt.Errorf("failed to store input: %w", err)
		}
		result.InputPath = kept
		result.ModelPath = ModelPath(s.cfg.OutputDir, taskID)

		genStart := time.Now()
		if err := s.generator.Generate(ctx, kept, result.ModelPath); err != nil {
			return nil, fmt.Errorf("model generation failed: %w", err)
		}
		s.observe("generate", genStart)
		log.Info("model generated", zap.String("model", result.ModelPath))
	}

	stlPath, err := s.ConvertToSTL(ctx, result.ModelPath, taskID)
	if err != nil {
		return nil, err
	}
	result.STLPath = stlPath

	if result.Repair, err = s.Optimize(ctx, stlPath); err != nil {
		return nil, err
	}
	if result.Printability, err = s.Check(ctx, stlPath); err != nil {
		return nil, err
	}

	if size := s.cfg.Preview.Size; size > 0 {
		out := PreviewPath(s.cfg.OutputDir, taskID)
		if err := s.Preview(ctx, stlPath, out, size); err != nil {
			log.Warn("preview not rendered", zap.Error(err))
		} else {
			result.PreviewPath = out
		}
	}
	return result, nil
}

// BatchItem is the outcome of one input in ProcessAll
type BatchItem struct {
	Input  string
	Result *Result
	Err    error
}

// ProcessAll processes inputs concurrently. Tasks are independent: one
// failing does not stop the others. Items keep the order of inputs.
func (s *Service) ProcessAll(ctx context.Context, inputs []string) []BatchItem {
	items := make([]BatchItem, len(inputs))
	var g errgroup.Group
	g.SetLimit(max(s.cfg.Workers, 1))

	for i, input := range inputs {
		items[i].Input = input
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = s.Process(ctx, input)
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// TaskStatus is the lifecycle state derived from files on disk
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
)

// Status reports how far taskID has progressed
func (s *Service) Status(taskID string) (TaskStatus, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return "", err
	}
	switch {
	case exists(STLPath(s.cfg.OutputDir, taskID)):
		return StatusCompleted, nil
	case exists(ModelPath(s.cfg.OutputDir, taskID)):
		return StatusProcessing, nil
	default:
		return StatusPending, nil
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist) && err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
