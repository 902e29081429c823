package sagas_test

import (
	"context"
	"errors"
	"testing"

	"famhub-backend/application/sagas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func step(name string, trace *[]string, fail error) sagas.Step {
	return sagas.Step{
		Name: name,
		Execute: func(ctx context.Context) error {
			if fail != nil {
				return fail
			}
			*trace = append(*trace, "exec:"+name)
			return nil
		},
		Compensate: func(ctx context.Context) error {
			*trace = append(*trace, "undo:"+name)
			return nil
		},
	}
}

func TestSagaRunsStepsInOrder(t *testing.T) {
	var trace []string
	saga := sagas.New("test", zap.NewNop()).
		AddStep(step("one", &trace, nil)).
		AddStep(step("two", &trace, nil))

	require.NoError(t, saga.Execute(context.Background()))
	assert.Equal(t, []string{"exec:one", "exec:two"}, trace)
}

func TestSagaCompensatesInReverseOrder(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	saga := sagas.New("test", zap.NewNop()).
		AddStep(step("one", &trace, nil)).
		AddStep(step("two", &trace, nil)).
		AddStep(step("three", &trace, boom))

	err := saga.Execute(context.Background())
	assert.ErrorIs(t, err, boom, "the original failure is what propagates")
	assert.Equal(t, []string{"exec:one", "exec:two", "undo:two", "undo:one"}, trace)
}

func TestSagaCompensationErrorsDoNotMaskTheFailure(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	saga := sagas.New("test", zap.NewNop()).
		AddStep(sagas.Step{
			Name:    "one",
			Execute: func(ctx context.Context) error { trace = append(trace, "exec:one"); return nil },
			Compensate: func(ctx context.Context) error {
				trace = append(trace, "undo:one")
				return errors.New("undo failed too")
			},
		}).
		AddStep(step("two", &trace, boom))

	err := saga.Execute(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"exec:one", "undo:one"}, trace)
}

func TestSagaStepWithoutCompensation(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	saga := sagas.New("test", zap.NewNop()).
		AddStep(sagas.Step{
			Name:    "one",
			Execute: func(ctx context.Context) error { trace = append(trace, "exec:one"); return nil },
		}).
		AddStep(step("two", &trace, boom))

	err := saga.Execute(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"exec:one"}, trace)
}
