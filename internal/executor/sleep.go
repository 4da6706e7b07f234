package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/variables"
	"github.com/mitchellh/mapstructure"
)

func init() {
	Register(jobspec.StepSleep, newSleepExecutor)
}

// sleepExecutor waits for a configured duration, canceling immediately if
// the scheduler signals shutdown instead of the original job runner's
// blocking time.sleep, which could not be interrupted mid-wait.
type sleepExecutor struct {
	duration time.Duration
	stdout   io.Writer
}

// sleepDetail is the typed shape of a sleep step's Detail map.
type sleepDetail struct {
	Seconds float64 `mapstructure:"seconds"`
}

func newSleepExecutor(step *jobspec.Step, _ variables.Environment) (Executor, error) {
	var detail sleepDetail
	if err := mapstructure.Decode(step.Detail, &detail); err != nil {
		return nil, fmt.Errorf("sleep step %q: decoding detail: %w", step.Key, err)
	}
	if detail.Seconds <= 0 {
		return nil, fmt.Errorf("sleep step %q: detail.seconds must be a positive number", step.Key)
	}
	return &sleepExecutor{duration: time.Duration(detail.Seconds * float64(time.Second))}, nil
}

func (s *sleepExecutor) SetStdout(w io.Writer) { s.stdout = w }
func (s *sleepExecutor) SetStderr(io.Writer)   {}

func (s *sleepExecutor) Run(ctx context.Context) (int, error) {
	timer := time.NewTimer(s.duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		if s.stdout != nil {
			fmt.Fprintf(s.stdout, "slept %s\n", s.duration)
		}
		return 0, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (s *sleepExecutor) Kill(os.Signal) error {
	// Run already selects on ctx.Done(); canceling the context is enough.
	return nil
}
