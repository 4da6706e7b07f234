package executor

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Simulate wraps an Executor so Run never performs real work: it writes a
// "simulated" marker to the step's stdout and returns success immediately.
// Used for --simulate, matching the original job runner's simulate flag
// (original_source/src/job_control/jobs.py). Disabled steps do not pass
// through it: they are marked SKIPPED and never run.
func Simulate(inner Executor) Executor {
	return &simulated{inner: inner}
}

type simulated struct {
	inner  Executor
	stdout io.Writer
}

func (s *simulated) SetStdout(w io.Writer) {
	s.stdout = w
	s.inner.SetStdout(w)
}

func (s *simulated) SetStderr(w io.Writer) { s.inner.SetStderr(w) }

func (s *simulated) Run(context.Context) (int, error) {
	if s.stdout != nil {
		fmt.Fprintln(s.stdout, "simulated")
	}
	return 0, nil
}

func (s *simulated) Kill(os.Signal) error { return nil }
