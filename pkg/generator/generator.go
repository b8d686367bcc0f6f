// Package generator turns a drawing into a raw 3D model file.
//
// The pipeline treats a generator as an opaque collaborator: it only cares
// that a successful run leaves a file the loader can read at outputPath.
package generator

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"
)

// ErrUnavailable means the generator cannot run in this environment
var ErrUnavailable = errors.New("generator unavailable")

// Generator writes a model for imagePath to outputPath
type Generator interface {
	Name() string
	Generate(ctx context.Context, imagePath, outputPath string) error
}

// Recorder receives one event per generator run
type Recorder interface {
	RecordGenerator(name, status string)
}

// Chain tries Primary and falls back to Fallback when it is missing or fails
type Chain struct {
	Primary  Generator
	Fallback Generator
	logger   *zap.Logger
	recorder Recorder
}

// NewChain builds a chain. primary may be nil.
func NewChain(primary, fallback Generator, logger *zap.Logger, recorder Recorder) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		Primary:  primary,
		Fallback: fallback,
		logger:   logger.With(zap.String("component", "generator")),
		recorder: recorder,
	}
}

// Name identifies the chain
func (c *Chain) Name() string {
	return "chain"
}

// Generate runs the primary generator, then the fallback if needed
func (c *Chain) Generate(ctx context.Context, imagePath, outputPath string) error {
	if c.Primary != nil {
		err := c.Primary.Generate(ctx, imagePath, outputPath)
		if err == nil {
			c.record(c.Primary.Name(), "success")
			return nil
		}
		c.record(c.Primary.Name(), "error")
		if c.Fallback == nil {
			return err
		}
		c.logger.Warn("primary generator failed, using fallback",
			zap.String("generator", c.Primary.Name()),
			zap.String("fallback", c.Fallback.Name()),
			zap.Error(err))
		_ = os.Remove(outputPath)
	}
	if c.Fallback == nil {
		return ErrUnavailable
	}

	if err := c.Fallback.Generate(ctx, imagePath, outputPath); err != nil {
		c.record(c.Fallback.Name(), "error")
		return err
	}
	c.record(c.Fallback.Name(), "success")
	return nil
}

func (c *Chain) record(name, status string) {
	if c.recorder != nil {
		c.recorder.RecordGenerator(name, status)
	}
}
