package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/scheduler"
	"github.com/jobdag/jobdag/internal/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphFrom(t *testing.T, config string) *jobspec.Graph {
	t.Helper()
	cfg, err := jobspec.Parse([]byte(config))
	require.NoError(t, err)
	graph, err := jobspec.Resolve(cfg, variables.Environment{})
	require.NoError(t, err)
	return graph
}

func resultsByKey(results []scheduler.Result) map[string]scheduler.Result {
	out := make(map[string]scheduler.Result, len(results))
	for _, r := range results {
		out[r.Key] = r
	}
	return out
}

func TestScheduler_LinearChainSucceeds(t *testing.T) {
	graph := graphFrom(t, `{
		"steps": {
			"a": {"type": "os", "task": "true", "dependencies": []},
			"b": {"type": "os", "task": "true", "dependencies": ["a"]},
			"c": {"type": "os", "task": "true", "dependencies": ["b"]}
		}
	}`)

	sched := scheduler.New(graph, scheduler.Config{Concurrency: 2, Delay: 5 * time.Millisecond})
	outcome := sched.Run(context.Background())

	assert.Equal(t, scheduler.JobSuccess, outcome)
	results := resultsByKey(sched.Results())
	for _, key := range []string{"a", "b", "c"} {
		assert.Equal(t, scheduler.Succeeded, results[key].Status)
	}
}

func TestScheduler_FailurePropagatesCancellationToDescendants(t *testing.T) {
	graph := graphFrom(t, `{
		"steps": {
			"a": {"type": "os", "task": "false", "dependencies": []},
			"b": {"type": "os", "task": "true", "dependencies": ["a"]},
			"unrelated": {"type": "os", "task": "true", "dependencies": []}
		}
	}`)

	sched := scheduler.New(graph, scheduler.Config{Concurrency: 2, Delay: 5 * time.Millisecond})
	outcome := sched.Run(context.Background())

	assert.Equal(t, scheduler.JobFailure, outcome)
	results := resultsByKey(sched.Results())
	assert.Equal(t, scheduler.Failed, results["a"].Status)
	assert.Equal(t, scheduler.Canceled, results["b"].Status)
	assert.Equal(t, scheduler.Succeeded, results["unrelated"].Status)
}

func TestScheduler_DisabledStepCountsAsSuccessForDependents(t *testing.T) {
	graph := graphFrom(t, `{
		"steps": {
			"a": {"type": "os", "task": "true", "dependencies": [], "enabled": false},
			"b": {"type": "os", "task": "true", "dependencies": ["a"]}
		}
	}`)

	sched := scheduler.New(graph, scheduler.Config{Concurrency: 2, Delay: 5 * time.Millisecond})
	outcome := sched.Run(context.Background())

	assert.Equal(t, scheduler.JobSuccess, outcome)
	results := resultsByKey(sched.Results())
	assert.Equal(t, scheduler.Skipped, results["a"].Status)
	assert.Equal(t, scheduler.Succeeded, results["b"].Status)
}

func TestScheduler_SimulateModeSkipsRealWork(t *testing.T) {
	graph := graphFrom(t, `{
		"steps": {
			"a": {"type": "os", "task": "exit 1", "dependencies": []}
		}
	}`)

	sched := scheduler.New(graph, scheduler.Config{Concurrency: 1, Delay: 5 * time.Millisecond, Simulate: true})
	outcome := sched.Run(context.Background())

	assert.Equal(t, scheduler.JobSuccess, outcome)
}

func TestScheduler_AllSentinelWaitsForEveryOtherStep(t *testing.T) {
	graph := graphFrom(t, `{
		"steps": {
			"a": {"type": "os", "task": "true", "dependencies": []},
			"b": {"type": "os", "task": "true", "dependencies": []},
			"finish": {"type": "os", "task": "true", "dependencies": "ALL"}
		}
	}`)

	sched := scheduler.New(graph, scheduler.Config{Concurrency: 2, Delay: 5 * time.Millisecond})
	outcome := sched.Run(context.Background())

	assert.Equal(t, scheduler.JobSuccess, outcome)
	results := resultsByKey(sched.Results())
	assert.True(t, results["finish"].FinishedAt.After(results["a"].FinishedAt) || results["finish"].FinishedAt.Equal(results["a"].FinishedAt))
	assert.True(t, results["finish"].FinishedAt.After(results["b"].FinishedAt) || results["finish"].FinishedAt.Equal(results["b"].FinishedAt))
}

func TestScheduler_ConcurrencyCapLimitsParallelism(t *testing.T) {
	graph := graphFrom(t, `{
		"steps": {
			"a": {"type": "internal", "task": "sleep", "detail": {"seconds": 0.05}, "dependencies": []},
			"b": {"type": "internal", "task": "sleep", "detail": {"seconds": 0.05}, "dependencies": []},
			"c": {"type": "internal", "task": "sleep", "detail": {"seconds": 0.05}, "dependencies": []}
		}
	}`)

	sched := scheduler.New(graph, scheduler.Config{Concurrency: 1, Delay: 5 * time.Millisecond})
	start := time.Now()
	outcome := sched.Run(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, scheduler.JobSuccess, outcome)
	// With a concurrency cap of 1, three 50ms sleeps must run sequentially.
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
}

func TestScheduler_GracefulCancelStopsAdmittingNewSteps(t *testing.T) {
	graph := graphFrom(t, `{
		"steps": {
			"a": {"type": "internal", "task": "sleep", "detail": {"seconds": 0.2}, "dependencies": []},
			"b": {"type": "os", "task": "true", "dependencies": ["a"]}
		}
	}`)

	sched := scheduler.New(graph, scheduler.Config{Concurrency: 2, Delay: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome := sched.Run(ctx)

	assert.Equal(t, scheduler.JobCanceled, outcome)
	results := resultsByKey(sched.Results())
	assert.Equal(t, scheduler.Canceled, results["b"].Status)
}
