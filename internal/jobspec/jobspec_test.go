package jobspec_test

import (
	"testing"

	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/variables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearConfig = `{
  "variables": {"greeting": "hello"},
  "steps": {
    "a": {"type": "os", "task": "echo $greeting", "dependencies": []},
    "b": {"type": "os", "task": "echo b", "dependencies": ["a"]},
    "c": {"type": "os", "task": "echo c", "dependencies": ["b"]}
  }
}`

func TestResolve_LinearChain(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(linearConfig))
	require.NoError(t, err)

	graph, err := jobspec.Resolve(cfg, variables.Environment{"greeting": "hi"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, graph.Keys())
	assert.Equal(t, "echo hi", graph.Step("a").Task)
	assert.ElementsMatch(t, []string{"b"}, graph.Dependencies("c"))
}

func TestResolve_DanglingDependency(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{"steps": {"a": {"type": "os", "task": "x", "dependencies": ["missing"]}}}`))
	require.NoError(t, err)

	_, err = jobspec.Resolve(cfg, variables.Environment{})
	require.Error(t, err)
	assert.ErrorIs(t, err, jobspec.ErrDanglingDependency)
}

func TestResolve_CycleDetected(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{
		"steps": {
			"a": {"type": "os", "task": "x", "dependencies": ["b"]},
			"b": {"type": "os", "task": "y", "dependencies": ["a"]}
		}
	}`))
	require.NoError(t, err)

	_, err = jobspec.Resolve(cfg, variables.Environment{})
	require.Error(t, err)
	assert.ErrorIs(t, err, jobspec.ErrCycleDetected)
}

func TestResolve_AllSentinelExpandsToEveryOtherStep(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{
		"steps": {
			"a": {"type": "os", "task": "x", "dependencies": []},
			"b": {"type": "os", "task": "y", "dependencies": []},
			"finish": {"type": "os", "task": "z", "dependencies": "ALL"}
		}
	}`))
	require.NoError(t, err)

	graph, err := jobspec.Resolve(cfg, variables.Environment{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, graph.Dependencies("finish"))
}

func TestResolve_MultipleAllStepsRejected(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{
		"steps": {
			"a": {"type": "os", "task": "x", "dependencies": []},
			"finish1": {"type": "os", "task": "z", "dependencies": "ALL"},
			"finish2": {"type": "os", "task": "z", "dependencies": "ALL"}
		}
	}`))
	require.NoError(t, err)

	_, err = jobspec.Resolve(cfg, variables.Environment{})
	require.Error(t, err)
	assert.ErrorIs(t, err, jobspec.ErrMultipleAllSteps)
}

func TestResolve_NoStepMayDependOnAllStep(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{
		"steps": {
			"a": {"type": "os", "task": "x", "dependencies": []},
			"finish": {"type": "os", "task": "z", "dependencies": "ALL"},
			"after": {"type": "os", "task": "z", "dependencies": ["finish"]}
		}
	}`))
	require.NoError(t, err)

	_, err = jobspec.Resolve(cfg, variables.Environment{})
	require.Error(t, err)
	assert.ErrorIs(t, err, jobspec.ErrConfigInvalid)
}

func TestResolve_UnknownVariableFails(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{"steps": {"a": {"type": "os", "task": "echo $missing", "dependencies": []}}}`))
	require.NoError(t, err)

	_, err = jobspec.Resolve(cfg, variables.Environment{})
	require.Error(t, err)
	assert.ErrorIs(t, err, jobspec.ErrUnknownVariable)
}

func TestResolve_InternalSendMailStep(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{
		"steps": {
			"a": {"type": "internal", "task": "send_mail", "detail": {"mail_to": "a@example.com", "mail_subject": "hi"}, "dependencies": []}
		}
	}`))
	require.NoError(t, err)

	graph, err := jobspec.Resolve(cfg, variables.Environment{})
	require.NoError(t, err)
	assert.Equal(t, jobspec.StepSendMail, graph.Step("a").Type)
	assert.Equal(t, "a@example.com", graph.Step("a").Detail["mail_to"])
}

func TestResolve_InternalSleepStep(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{
		"steps": {
			"a": {"type": "internal", "task": "sleep", "detail": {"seconds": 5}, "dependencies": []}
		}
	}`))
	require.NoError(t, err)

	graph, err := jobspec.Resolve(cfg, variables.Environment{})
	require.NoError(t, err)
	assert.Equal(t, jobspec.StepSleep, graph.Step("a").Type)
}

func TestResolve_InternalStepRequiresKnownTask(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{
		"steps": {
			"a": {"type": "internal", "task": "reboot", "dependencies": []}
		}
	}`))
	require.NoError(t, err)

	_, err = jobspec.Resolve(cfg, variables.Environment{})
	require.Error(t, err)
	assert.ErrorIs(t, err, jobspec.ErrConfigInvalid)
}

func TestResolve_EnabledFalseDisablesStep(t *testing.T) {
	cfg, err := jobspec.Parse([]byte(`{"steps": {"a": {"type": "os", "task": "x", "dependencies": [], "enabled": false}}}`))
	require.NoError(t, err)

	graph, err := jobspec.Resolve(cfg, variables.Environment{})
	require.NoError(t, err)
	assert.False(t, graph.Step("a").Enabled)
}
