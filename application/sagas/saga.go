// Package sagas provides ordered multi-step writes with compensation, used
// when the backing store cannot run a native multi-item transaction.
package sagas

import (
	"context"

	"go.uber.org/zap"
)

// Step is one forward action plus the action that undoes it. Compensate may
// be nil for steps with no lasting effect.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs steps in order and compensates completed steps, in reverse order,
// when a later step fails.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// New creates a named saga.
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		logger: logger.Named("saga").With(zap.String("saga", name)),
	}
}

// AddStep appends a step to the execution order.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the steps. On failure it compensates every completed step in
// reverse order and returns the failing step's error. Compensation errors are
// logged, not returned; the original failure is what callers act on.
func (s *Saga) Execute(ctx context.Context) error {
	completed := make([]Step, 0, len(s.steps))

	for _, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			s.logger.Warn("saga step failed, compensating",
				zap.String("step", step.Name),
				zap.Int("completed", len(completed)),
				zap.Error(err))
			s.compensate(ctx, completed)
			return err
		}
		completed = append(completed, step)
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, completed []Step) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("step", step.Name),
				zap.Error(err))
		}
	}
}
