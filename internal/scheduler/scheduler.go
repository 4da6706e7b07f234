package scheduler

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/jobdag/jobdag/internal/executor"
	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/logger"
	"github.com/jobdag/jobdag/internal/variables"
)

// JobOutcome is the job's overall result once every step has reached a
// terminal state.
type JobOutcome int

const (
	JobSuccess JobOutcome = iota
	JobFailure
	JobCanceled
)

func (o JobOutcome) String() string {
	switch o {
	case JobSuccess:
		return "SUCCESS"
	case JobFailure:
		return "FAILURE"
	case JobCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// KillGracePeriod is how long a step is given to exit after SIGTERM before
// the scheduler escalates to SIGKILL, per spec.md's Open Question #2.
const KillGracePeriod = 5 * time.Second

// StepLogOpener opens a writer for a step's log, called once per step
// invocation.
type StepLogOpener func(stepKey string) (io.WriteCloser, error)

// Config configures a single job run.
type Config struct {
	Concurrency  int
	Simulate     bool
	Delay        time.Duration          // pause between dispatch ticks
	RunningDelay time.Duration          // interval for the periodic running-steps summary
	Env          variables.Environment  // job's resolved Variable Environment, threaded to executors
	OpenStepLog  StepLogOpener
	Console      io.Writer // receives colorized step-completion lines and running summaries
}

// Scheduler dispatches a single job's graph to completion.
type Scheduler struct {
	cfg   Config
	graph *jobspec.Graph
	nodes map[string]*Node
	keys  []string

	mu        sync.Mutex
	running   int
	canceling bool
}

// New builds a Scheduler for graph using cfg.
func New(graph *jobspec.Graph, cfg Config) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RunningDelay <= 0 {
		cfg.RunningDelay = 900 * time.Second
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 200 * time.Millisecond
	}
	s := &Scheduler{cfg: cfg, graph: graph, nodes: make(map[string]*Node)}
	for _, key := range graph.Keys() {
		s.nodes[key] = newNode(graph.Step(key))
	}
	s.keys = graph.Keys()
	return s
}

// Results returns a snapshot of every step's terminal state, in key order.
func (s *Scheduler) Results() []Result {
	out := make([]Result, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, s.nodes[key].Result())
	}
	return out
}

// Run dispatches every step to completion or cancellation and returns the
// job's overall outcome. ctx cancellation triggers graceful shutdown:
// running steps are sent SIGTERM, escalated to SIGKILL after
// KillGracePeriod, and no new steps are admitted.
func (s *Scheduler) Run(ctx context.Context) JobOutcome {
	log := logger.FromContext(ctx)
	done := make(chan *Node, len(s.keys))
	ticker := time.NewTicker(s.cfg.Delay)
	defer ticker.Stop()

	var runningSummaryAt time.Time
	jobStart := time.Now()

	for !s.allTerminal() {
		select {
		case <-ctx.Done():
			s.beginCancel(log)
		case node := <-done:
			s.handleCompletion(node, log)
		case <-ticker.C:
			s.cascadeCancellations()
			s.dispatchReady(ctx, done, log)
			if s.cfg.Console != nil && time.Since(runningSummaryAt) >= s.cfg.RunningDelay {
				runningSummaryAt = time.Now()
				logger.PrintRunningSummary(s.cfg.Console, s.runningKeys(), jobStart)
			}
		}
	}

	// Drain any completions still in flight.
	for s.hasRunning() {
		node := <-done
		s.handleCompletion(node, log)
	}

	return s.outcome()
}

func (s *Scheduler) allTerminal() bool {
	for _, key := range s.keys {
		if !s.nodes[key].Status().terminal() {
			return false
		}
	}
	return true
}

func (s *Scheduler) hasRunning() bool {
	for _, key := range s.keys {
		if s.nodes[key].Status() == Running {
			return true
		}
	}
	return false
}

func (s *Scheduler) runningKeys() []string {
	var out []string
	for _, key := range s.keys {
		if s.nodes[key].Status() == Running {
			out = append(out, key)
		}
	}
	return out
}

// cascadeCancellations marks every still-pending step whose dependency
// failed or was canceled as Canceled, without running it. This is the
// fail-soft, descendant-scoped cancellation spec.md mandates: unrelated
// branches keep running.
func (s *Scheduler) cascadeCancellations() {
	changed := true
	for changed {
		changed = false
		for _, key := range s.keys {
			node := s.nodes[key]
			if node.Status() != Pending {
				continue
			}
			for _, dep := range s.graph.Dependencies(key) {
				depStatus := s.nodes[dep].Status()
				if depStatus == Failed || depStatus == Canceled {
					node.setStatus(Canceled)
					changed = true
					break
				}
			}
		}
	}
}

// isReady reports whether every dependency of key has reached a
// success-equivalent terminal state.
func (s *Scheduler) isReady(key string) bool {
	node := s.nodes[key]
	if node.Status() != Pending {
		return false
	}
	for _, dep := range s.graph.Dependencies(key) {
		if !s.nodes[dep].Status().satisfies() {
			return false
		}
	}
	return true
}

func (s *Scheduler) dispatchReady(ctx context.Context, done chan<- *Node, log logger.Logger) {
	s.mu.Lock()
	canceling := s.canceling
	s.mu.Unlock()
	if canceling {
		return
	}

	var ready []string
	for _, key := range s.keys {
		if s.isReady(key) {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	for _, key := range ready {
		s.mu.Lock()
		if s.running >= s.cfg.Concurrency {
			s.mu.Unlock()
			break
		}
		s.running++
		s.mu.Unlock()

		node := s.nodes[key]
		node.setStatus(Ready)
		go s.runStep(ctx, node, done, log)
	}
}

func (s *Scheduler) runStep(ctx context.Context, node *Node, done chan<- *Node, log logger.Logger) {
	defer func() {
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
		done <- node
	}()

	exec, err := executor.Create(node.Step, s.cfg.Env)
	if err != nil {
		node.finish(Failed, -1, err)
		return
	}
	if s.cfg.Simulate {
		exec = executor.Simulate(exec)
	}

	var logWriter io.WriteCloser
	if s.cfg.OpenStepLog != nil {
		logWriter, err = s.cfg.OpenStepLog(node.Key)
		if err == nil {
			defer logWriter.Close()
			exec.SetStdout(logWriter)
			exec.SetStderr(logWriter)
		}
	}

	node.setRunning(exec)
	log.Info("step started", "step", node.Key)

	exitCode, runErr := exec.Run(ctx)

	status := Failed
	if runErr == nil && codeAllowed(exitCode, node.Step.ResultCodes) {
		status = Succeeded
	}
	if ctx.Err() != nil {
		status = Canceled
	}
	node.finish(status, exitCode, runErr)
	log.Info("step finished", "step", node.Key, "status", status.String())
}

func codeAllowed(code int, allowed []int) bool {
	for _, a := range allowed {
		if a == code {
			return true
		}
	}
	return false
}

func (s *Scheduler) handleCompletion(node *Node, log logger.Logger) {
	if s.cfg.Console != nil {
		logger.PrintStepResult(s.cfg.Console, node.Key, node.Status().String(), node.Elapsed())
	}
}

// beginCancel stops admitting new steps and signals every running step,
// escalating from SIGTERM to SIGKILL after KillGracePeriod.
func (s *Scheduler) beginCancel(log logger.Logger) {
	s.mu.Lock()
	if s.canceling {
		s.mu.Unlock()
		return
	}
	s.canceling = true
	s.mu.Unlock()

	log.Warn("canceling job: signaling running steps")
	go func() {
		s.signalRunning(syscall.SIGTERM)
		timer := time.NewTimer(KillGracePeriod)
		defer timer.Stop()
		retick := time.NewTicker(1 * time.Second)
		defer retick.Stop()
		for {
			select {
			case <-timer.C:
				log.Warn("grace period elapsed, sending SIGKILL")
				s.signalRunning(syscall.SIGKILL)
				return
			case <-retick.C:
				if !s.hasRunning() {
					return
				}
			}
		}
	}()

	for _, key := range s.keys {
		node := s.nodes[key]
		if node.Status() == Pending || node.Status() == Ready {
			node.setStatus(Canceled)
		}
	}
}

func (s *Scheduler) signalRunning(sig os.Signal) {
	for _, key := range s.keys {
		node := s.nodes[key]
		if node.Status() == Running {
			_ = node.killExec(sig)
		}
	}
}

func (s *Scheduler) outcome() JobOutcome {
	anyCanceled := false
	for _, key := range s.keys {
		switch s.nodes[key].Status() {
		case Failed:
			return JobFailure
		case Canceled:
			anyCanceled = true
		}
	}
	if anyCanceled {
		return JobCanceled
	}
	return JobSuccess
}
