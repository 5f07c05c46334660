package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/ai"
	"github.com/spigell/rnd-matcher/internal/metrics"
)

// stage is one step of a match run. Stages keep no per-run state; everything a
// run produces lives in the batch.
type stage interface {
	Name() string
	// Disable switches the stage off and reports whether it could.
	Disable(reason string) bool
	IsEnabled() bool

	Validate(opts Options) error
	Apply(ctx context.Context, deps Deps, b *batch) (Step, error)
}

// Deps aggregates collaborators shared across all stages.
type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Phraser ai.Phraser
}

// Step describes the result of executing a stage.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

// Status represents runtime information about a stage.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// toggle implements Disable and IsEnabled for stages that can be switched off.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) bool {
	t.disabled = true
	t.reason = reason
	return true
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// alwaysOn is embedded by stages the pipeline cannot run without.
type alwaysOn struct{}

func (alwaysOn) Disable(string) bool { return false }

func (alwaysOn) IsEnabled() bool { return true }

// disableByName reports false for unknown and always-on stages.
func disableByName(stages []stage, name, reason string) bool {
	disabled := false
	for _, s := range stages {
		if s.Name() == name && s.Disable(reason) {
			disabled = true
		}
	}
	return disabled
}

// run executes the enabled stages sequentially and returns their steps.
func run(ctx context.Context, opts Options, deps Deps, stages []stage, b *batch) ([]Step, error) {
	for _, s := range stages {
		if !s.IsEnabled() {
			continue
		}
		if err := s.Validate(opts); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	steps := make([]Step, 0, len(stages))
	for _, s := range stages {
		if !s.IsEnabled() {
			deps.Logger.Info("stage disabled", zap.String("name", s.Name()))
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := s.Apply(ctx, deps, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		info.Name = s.Name()

		deps.Logger.Info("match step",
			zap.String("name", info.Name),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		deps.Metrics.ObserveStage(info.Name, info.Dropped)

		steps = append(steps, info)
	}
	return steps, nil
}

func describe(stages []stage) []Status {
	statuses := make([]Status, 0, len(stages))
	for _, s := range stages {
		if reporter, ok := s.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: s.Name(), Enabled: s.IsEnabled()})
	}
	return statuses
}
