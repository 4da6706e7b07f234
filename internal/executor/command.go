package executor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/variables"
	"golang.org/x/sys/unix"
)

func init() {
	Register(jobspec.StepOS, newCommandExecutor)
}

// commandExecutor runs a step's Task through the host shell, mirroring
// the original job runner's subprocess dispatch.
type commandExecutor struct {
	task   string
	stdout io.Writer
	stderr io.Writer
	cmd    *exec.Cmd
}

func newCommandExecutor(step *jobspec.Step, _ variables.Environment) (Executor, error) {
	return &commandExecutor{task: step.Task}, nil
}

func (c *commandExecutor) SetStdout(w io.Writer) { c.stdout = w }
func (c *commandExecutor) SetStderr(w io.Writer) { c.stderr = w }

func shellPath() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (c *commandExecutor) Run(ctx context.Context) (int, error) {
	cmd := exec.CommandContext(ctx, shellPath(), "-c", c.task)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	// Start the command in its own process group so Kill can signal the
	// whole tree the shell spawns, not just the shell itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// On ctx cancellation send SIGTERM to the process group instead of the
	// default SIGKILL, so the scheduler's grace period applies.
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	c.cmd = cmd

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (c *commandExecutor) Kill(sig os.Signal) error {
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}
	sysSig, ok := sig.(syscall.Signal)
	if !ok {
		sysSig = syscall.SIGTERM
	}
	// Negative pid targets the whole process group.
	return unix.Kill(-c.cmd.Process.Pid, sysSig)
}
