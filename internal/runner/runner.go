// Package runner wires configuration loading, variable resolution, graph
// construction, scheduling, logging, and notification into a single job
// invocation, mirroring the teacher's agent.Agent orchestration.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/logger"
	"github.com/jobdag/jobdag/internal/mailer"
	"github.com/jobdag/jobdag/internal/notifier"
	"github.com/jobdag/jobdag/internal/runid"
	"github.com/jobdag/jobdag/internal/scheduler"
	"github.com/jobdag/jobdag/internal/variables"
)

// Options mirror the CLI flags of spec.md §6 exactly.
type Options struct {
	Path           string
	LogPath        string
	ConfigFile     string
	Delay          time.Duration
	Disabled       []string
	MailToOverride string
	Extras         string
	ExtrasFile     string
	RunningDelay   time.Duration
	Simulate       bool
	Verbose        bool
	NoSuccessEmail bool
}

// smtpPort is the relay port used for both the job-level notifier and the
// send_mail step executor; spec.md's smtp_relay variable names a host only.
const smtpPort = "25"

// Runner executes a single job invocation.
type Runner struct {
	opts Options
}

func New(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Run loads the job config, resolves variables, builds the graph, and
// schedules every step to completion, returning the job's outcome. The
// returned error is non-nil only for failures that occur before
// scheduling begins (bad config, cycle, unknown variable); step failures
// are reported through outcome, not err.
func (r *Runner) Run(ctx context.Context) (scheduler.JobOutcome, error) {
	opts := r.opts
	runID := runid.New()
	now := time.Now()

	logDir := opts.LogPath
	if logDir == "" {
		logDir = filepath.Join(opts.Path, "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return scheduler.JobFailure, fmt.Errorf("creating log directory: %w", err)
	}

	log, err := logger.New(logger.TranscriptPath(logDir, runID), opts.Verbose)
	if err != nil {
		return scheduler.JobFailure, fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()
	ctx = logger.WithContext(ctx, log)

	configPath := filepath.Join(opts.Path, opts.ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return scheduler.JobFailure, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := jobspec.Parse(data)
	if err != nil {
		return scheduler.JobFailure, fmt.Errorf("parsing config: %w", err)
	}

	env, err := r.buildEnvironment(cfg, configPath, now)
	if err != nil {
		return scheduler.JobFailure, fmt.Errorf("resolving variables: %w", err)
	}
	if err := jobspec.CheckRequiredVariables(env); err != nil {
		return scheduler.JobFailure, err
	}

	applyDisabled(cfg, opts.Disabled)

	graph, err := jobspec.Resolve(cfg, env)
	if err != nil {
		return scheduler.JobFailure, fmt.Errorf("building graph: %w", err)
	}

	sched := scheduler.New(graph, scheduler.Config{
		Concurrency:  concurrencyFromEnv(env),
		Simulate:     opts.Simulate,
		Delay:        opts.Delay,
		RunningDelay: opts.RunningDelay,
		Env:          env,
		Console:      os.Stdout,
		OpenStepLog: func(stepKey string) (io.WriteCloser, error) {
			return logger.OpenStepLog(logDir, stepKey, runID, time.Now())
		},
	})

	n := r.buildNotifier(env)
	if err := n.NotifyStart(runID, now); err != nil {
		log.Warn(fmt.Sprintf("notifier: start notification failed: %v", err))
	}

	outcome := sched.Run(ctx)

	results := sched.Results()
	fmt.Fprint(os.Stdout, notifier.RenderConsole(runID, outcome, results, now))
	if err := n.NotifyFinish(runID, outcome, results, now); err != nil {
		log.Warn(fmt.Sprintf("notifier: finish notification failed: %v", err))
	}

	log.Info(fmt.Sprintf("job finished: %s", outcome))
	return outcome, nil
}

func (r *Runner) buildEnvironment(cfg *jobspec.Config, configPath string, now time.Time) (variables.Environment, error) {
	builtins := variables.Builtins(configPath, now)
	configVars := variables.Environment(cfg.Variables)

	var extrasFile variables.Environment
	if r.opts.ExtrasFile != "" {
		data, err := os.ReadFile(r.opts.ExtrasFile)
		if err != nil {
			return nil, fmt.Errorf("reading extras file: %w", err)
		}
		extrasFile, err = parseJSONStringMap(data)
		if err != nil {
			return nil, fmt.Errorf("parsing extras file: %w", err)
		}
	}

	var cliExtras variables.Environment
	if r.opts.Extras != "" {
		var err error
		cliExtras, err = parseJSONStringMap([]byte(r.opts.Extras))
		if err != nil {
			return nil, fmt.Errorf("parsing --Extras: %w", err)
		}
	}

	if r.opts.MailToOverride != "" {
		if configVars == nil {
			configVars = variables.Environment{}
		}
		configVars["mail_to_fail"] = r.opts.MailToOverride
	}

	return variables.Merge(builtins, configVars, extrasFile, cliExtras)
}

func parseJSONStringMap(data []byte) (variables.Environment, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return variables.Environment(m), nil
}

func applyDisabled(cfg *jobspec.Config, disabled []string) {
	for _, key := range disabled {
		key = strings.TrimSpace(key)
		if step, ok := cfg.Steps[key]; ok {
			f := false
			step.Enabled = &f
		}
	}
}

func concurrencyFromEnv(env variables.Environment) int {
	n := 0
	fmt.Sscanf(env["concurrency"], "%d", &n)
	if n <= 0 {
		n = 1
	}
	return n
}

func (r *Runner) buildNotifier(env variables.Environment) *notifier.Notifier {
	splitList := func(s string) []string {
		if s == "" {
			return nil
		}
		return strings.Split(s, ",")
	}
	return notifier.New(notifier.Config{
		From:            env["mail_from"],
		MailTo:          splitList(env["mail_to"]),
		MailToFail:      splitList(env["mail_to_fail"]),
		SuppressSuccess: r.opts.NoSuccessEmail,
		Relay:           mailer.Config{Host: env["smtp_relay"], Port: smtpPort},
	})
}
