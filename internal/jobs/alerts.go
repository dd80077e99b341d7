package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// AlertFunc is invoked when a job fails or panics.
type AlertFunc func(ctx context.Context, job *rivertype.JobRow, err error)

// AlertingErrorHandler logs job failures and forwards them to Notify.
type AlertingErrorHandler struct {
	Logger *slog.Logger
	Notify AlertFunc
}

// NewAlertingErrorHandler builds an ErrorHandler that logs and forwards errors.
func NewAlertingErrorHandler(logger *slog.Logger, notify AlertFunc) *AlertingErrorHandler {
	return &AlertingErrorHandler{Logger: logger, Notify: notify}
}

func (h *AlertingErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	h.report(ctx, job, "job failed", err)
	return nil
}

// HandlePanic cancels the job. A sweep that panicked once will panic again.
func (h *AlertingErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	panicErr := fmt.Errorf("panic: %v", panicVal)
	if h.Logger != nil {
		h.Logger.Debug("job panic trace", "job_id", job.ID, "trace", trace)
	}
	h.report(ctx, job, "job panicked", panicErr)
	return &river.ErrorHandlerResult{SetCancelled: true}
}

func (h *AlertingErrorHandler) report(ctx context.Context, job *rivertype.JobRow, msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg,
			"job_id", job.ID,
			"kind", job.Kind,
			"queue", job.Queue,
			"attempt", job.Attempt,
			"max_attempts", job.MaxAttempts,
			"error", err,
		)
	}
	if h.Notify != nil {
		h.Notify(ctx, job, err)
	}
}
