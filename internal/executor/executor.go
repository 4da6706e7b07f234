// Package executor runs individual steps: host shell commands, internal
// mail notifications, and sleeps, behind a small pluggable registry.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/variables"
)

// Executor runs one step to completion. Run blocks until the step finishes
// or ctx is canceled; Kill delivers sig to the running work, used for the
// SIGTERM-then-SIGKILL cancellation sequence.
type Executor interface {
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
	Run(ctx context.Context) (exitCode int, err error)
	Kill(sig os.Signal) error
}

// Creator builds an Executor for a step of a specific type. env carries the
// job's resolved Variable Environment, for executors (send_mail) whose
// behavior depends on job-wide settings like smtp_relay rather than only
// the step's own detail.
type Creator func(step *jobspec.Step, env variables.Environment) (Executor, error)

var registry = make(map[jobspec.StepType]Creator)

// Register associates a step type with a Creator. Called from each
// executor implementation's init().
func Register(stepType jobspec.StepType, create Creator) {
	registry[stepType] = create
}

// Create builds the Executor for a step, per its Type.
func Create(step *jobspec.Step, env variables.Environment) (Executor, error) {
	create, ok := registry[step.Type]
	if !ok {
		return nil, fmt.Errorf("no executor registered for step type %q", step.Type)
	}
	return create(step, env)
}
