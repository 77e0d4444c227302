package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs hook invocations. Run-phase hooks
// log at debug level to keep periodic jobs from flooding the log; the other
// phases log at info level, and failures always log at error level.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv Invocation, next Handler) error {
		level := slog.LevelInfo
		if inv.Phase == PhaseRun {
			level = slog.LevelDebug
		}

		logger.Log(ctx, level, "job hook started",
			slog.String("job_id", inv.JobID),
			slog.String("job_class", inv.JobClass),
			slog.String("phase", string(inv.Phase)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("job hook failed",
				slog.String("job_id", inv.JobID),
				slog.String("job_class", inv.JobClass),
				slog.String("phase", string(inv.Phase)),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Log(ctx, level, "job hook completed",
				slog.String("job_id", inv.JobID),
				slog.String("job_class", inv.JobClass),
				slog.String("phase", string(inv.Phase)),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
