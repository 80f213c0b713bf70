package dependencies

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zhenzou/executors"

	"github.com/looplj/caseflow/internal/log"
)

func TestNewExecutors_ScheduleAndShutdown(t *testing.T) {
	executor := NewExecutors(log.New(log.Config{Name: "test", Level: "error"}))

	cancel, err := executor.ScheduleFuncAtCronRate(func(ctx context.Context) {}, executors.CRONRule{Expr: "0 0 1 1 *"})
	require.NoError(t, err)
	cancel()

	require.NoError(t, executor.Shutdown(context.Background()))
}

func TestHandlers_DoNotPanic(t *testing.T) {
	logger := log.New(log.Config{Name: "test", Level: "error"})

	require.NotPanics(t, func() {
		(&ErrorHandler{logger: logger}).CatchError(nil, errors.New("boom"))
	})
	require.NotPanics(t, func() {
		require.NoError(t, (&RejectionHandler{logger: logger}).RejectExecution(nil, nil))
	})
}
