package dependencies

import (
	"context"
	"reflect"

	"github.com/zhenzou/executors"

	"github.com/looplj/caseflow/internal/log"
)

type ErrorHandler struct {
	logger *log.Logger
}

func (h *ErrorHandler) CatchError(runnable executors.Runnable, err error) {
	h.logger.Error(context.Background(), "run runnable error", log.Cause(err))
}

type RejectionHandler struct {
	logger *log.Logger
}

func (h *RejectionHandler) RejectExecution(runnable executors.Runnable, e executors.Executor) error {
	h.logger.Error(context.Background(), "runnable rejection by executor", log.String("runnable", reflect.ValueOf(runnable).String()))
	return nil
}

// NewExecutors runs background jobs. Only the retention worker schedules
// on it today, so the pool stays small.
func NewExecutors(logger *log.Logger) executors.ScheduledExecutor {
	return executors.NewPoolScheduleExecutor(
		executors.WithMaxConcurrent(4),
		executors.WithMaxBlockingTasks(64),
		executors.WithErrorHandler(&ErrorHandler{logger: logger}),
		executors.WithRejectionHandler(&RejectionHandler{logger: logger}),
	)
}
