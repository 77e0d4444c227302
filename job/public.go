package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loomworks/loom"
)

// RunPublicMethod invokes a public method the job's class declares,
// routing it to the runner's RunMethod implementation. Methods declared
// with WaitForResult return the method's value; the rest run on their own
// goroutine and return immediately with a nil result.
func (j *Job) RunPublicMethod(ctx context.Context, name string, args ...any) (any, error) {
	spec, ok := j.class.publicMethodSpec(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", loom.ErrMethodUnsupported, name)
	}
	if spec.Disabled {
		return nil, fmt.Errorf("%w: %q", loom.ErrMethodDisabled, name)
	}
	runner, ok := j.runner.(MethodRunner)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no method runner", loom.ErrMethodUnsupported, name)
	}
	if !j.Alive() {
		return nil, loom.ErrJobNotAlive
	}

	if spec.WaitForResult {
		return runner.RunMethod(ctx, name, args...)
	}
	go func() {
		if _, err := runner.RunMethod(context.Background(), name, args...); err != nil {
			j.logger().Error("job public method failed",
				slog.String("job_id", j.id.String()),
				slog.String("method", name),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil, nil
}
