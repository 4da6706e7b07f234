package jobspec

import (
	"fmt"

	"github.com/jobdag/jobdag/internal/variables"
)

// Resolve substitutes every string field of every step using env, then
// validates the result into a Graph. Substitution runs exactly once, before
// scheduling, as spec.md requires.
func Resolve(cfg *Config, env variables.Environment) (*Graph, error) {
	steps := make(map[string]*Step, len(cfg.Steps))
	for key, raw := range cfg.Steps {
		step, err := resolveStep(key, raw, env)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", key, err)
		}
		steps[key] = step
	}
	return NewGraph(steps)
}

func resolveStep(key string, raw *rawStep, env variables.Environment) (*Step, error) {
	name, err := variables.Substitute(raw.Name, env)
	if err != nil {
		return nil, wrapUnknownVar(err)
	}
	task, err := variables.Substitute(raw.Task, env)
	if err != nil {
		return nil, wrapUnknownVar(err)
	}
	comment, err := variables.Substitute(raw.Comment, env)
	if err != nil {
		return nil, wrapUnknownVar(err)
	}

	var detail map[string]any
	if raw.Detail != nil {
		detail, err = variables.SubstituteMap(raw.Detail, env)
		if err != nil {
			return nil, wrapUnknownVar(err)
		}
	}

	stepType, err := resolveStepType(raw.Type, task)
	if err != nil {
		return nil, err
	}

	enabled := true
	if raw.Enabled != nil {
		enabled = *raw.Enabled
	}

	resultCodes := raw.ResultCodes
	if resultCodes == nil {
		resultCodes = []int{0}
	}

	deps := raw.Dependencies
	return &Step{
		Key:          key,
		Type:         stepType,
		Name:         name,
		Task:         task,
		Dependencies: deps.items,
		DependsOnAll: deps.all,
		Enabled:      enabled,
		ResultCodes:  resultCodes,
		Detail:       detail,
		Comment:      comment,
	}, nil
}

// resolveStepType derives the concrete executor kind from the config's
// two-level type/task schema: `type=os` runs task as a shell command;
// `type=internal` selects the internal executor named by task itself
// (send_mail or sleep), with the task's actual parameters carried in detail.
func resolveStepType(rawType, task string) (StepType, error) {
	switch rawType {
	case "", "os":
		return StepOS, nil
	case "internal":
		switch task {
		case "send_mail":
			return StepSendMail, nil
		case "sleep":
			return StepSleep, nil
		default:
			return "", fmt.Errorf("%w: internal step requires task \"send_mail\" or \"sleep\", got %q", ErrConfigInvalid, task)
		}
	default:
		return "", fmt.Errorf("%w: unknown step type %q", ErrConfigInvalid, rawType)
	}
}

func wrapUnknownVar(err error) error {
	if uv, ok := err.(*variables.ErrUnknownVariable); ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, uv.Name)
	}
	return err
}
