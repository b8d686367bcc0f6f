// Package repair fixes orientation and topology defects in a mesh.
//
// Every correction is a named step that works on its own copy of the mesh.
// The Engine commits a step's result only when it succeeds, so a failing or
// panicking step leaves the mesh exactly as it was and the next step runs.
package repair

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nQrChao/kids-draw-3d/pkg/mesh"
)

// ErrNotApplicable is returned by a step whose precondition does not hold.
// The Engine records it as skipped, not failed.
var ErrNotApplicable = errors.New("step not applicable")

// Step is one named transformation. Apply mutates the mesh it is given.
type Step struct {
	Name  string
	Apply func(m *mesh.Mesh) error
}

// StepError records a step that failed and was rolled back
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("repair step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepResult describes one executed step
type StepResult struct {
	Name        string        `json:"name"`
	Skipped     bool          `json:"skipped"`
	Err         error         `json:"-"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	FacesBefore int           `json:"faces_before"`
	FacesAfter  int           `json:"faces_after"`
}

// Failed reports whether the step was rolled back
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// Report summarizes an Engine run
type Report struct {
	Steps             []StepResult `json:"steps"`
	Watertight        bool         `json:"watertight"`
	WindingConsistent bool         `json:"winding_consistent"`
}

// Failures returns the step errors of the run in order
func (r *Report) Failures() []*StepError {
	var out []*StepError
	for _, s := range r.Steps {
		var se *StepError
		if errors.As(s.Err, &se) {
			out = append(out, se)
		}
	}
	return out
}

// Options tunes the cleanup tolerances
type Options struct {
	MergeTolerance float64
	AreaEpsilon    float64
}

// DefaultOptions returns the tolerances used when none are configured
func DefaultOptions() Options {
	return Options{
		MergeTolerance: 1e-8,
		AreaEpsilon:    1e-12,
	}
}

// DefaultSteps returns the standard plan: normals, inversion, winding,
// hole filling and cleanup, in that order
func DefaultSteps(opts Options) []Step {
	return []Step{
		{Name: "fix_normals", Apply: FixNormals},
		{Name: "fix_inversion", Apply: FixInversion},
		{Name: "fix_winding", Apply: FixWinding},
		{Name: "fill_holes", Apply: FillHoles},
		{Name: "cleanup", Apply: func(m *mesh.Mesh) error {
			Cleanup(m, opts)
			return nil
		}},
	}
}

// Engine runs a list of steps best-effort
type Engine struct {
	steps  []Step
	logger *zap.Logger
}

// NewEngine creates an engine running the default steps
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	return NewEngineWithSteps(DefaultSteps(opts), logger)
}

// NewEngineWithSteps creates an engine with a custom plan
func NewEngineWithSteps(steps []Step, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{steps: steps, logger: logger.With(zap.String("component", "repair"))}
}

// Run applies every step to m in place. It never fails: a step that errors
// or panics is logged, rolled back and recorded in the report.
func (e *Engine) Run(m *mesh.Mesh) *Report {
	report := &Report{Steps: make([]StepResult, 0, len(e.steps))}

	for _, step := range e.steps {
		result := StepResult{Name: step.Name, FacesBefore: len(m.Faces)}
		start := time.Now()

		work := m.Clone()
		err := apply(step, work)
		if err == nil {
			err = work.Validate()
		}
		result.Duration = time.Since(start)

		switch {
		case errors.Is(err, ErrNotApplicable):
			result.Skipped = true
			e.logger.Debug("repair step skipped", zap.String("step", step.Name))
		case err != nil:
			stepErr := &StepError{Step: step.Name, Err: err}
			result.Err = stepErr
			result.Error = stepErr.Error()
			e.logger.Warn("repair step failed, mesh left unchanged",
				zap.String("step", step.Name), zap.Error(err))
		default:
			m.Vertices, m.Faces = work.Vertices, work.Faces
			e.logger.Debug("repair step applied",
				zap.String("step", step.Name),
				zap.Int("faces", len(m.Faces)),
				zap.Bool("watertight", m.IsWatertight()),
				zap.Duration("took", result.Duration))
		}
		result.FacesAfter = len(m.Faces)
		report.Steps = append(report.Steps, result)
	}

	report.Watertight = m.IsWatertight()
	report.WindingConsistent = m.IsWindingConsistent()
	e.logger.Info("repair finished",
		zap.Int("faces", len(m.Faces)),
		zap.Int("vertices", len(m.Vertices)),
		zap.Bool("watertight", report.Watertight),
		zap.Int("failed_steps", len(report.Failures())))
	return report
}

func apply(step Step, m *mesh.Mesh) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.Apply(m)
}
