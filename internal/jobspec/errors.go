// Package jobspec parses and validates job configuration files into a
// dependency graph of steps.
package jobspec

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors identifying the class of a configuration problem. Use
// errors.Is to check against these; the wrapped message carries the detail.
var (
	ErrConfigInvalid           = errors.New("config invalid")
	ErrDuplicateKey            = errors.New("duplicate step key")
	ErrDanglingDependency      = errors.New("dependency refers to unknown step")
	ErrMultipleAllSteps        = errors.New("more than one step depends on ALL")
	ErrCycleDetected           = errors.New("dependency cycle detected")
	ErrUnknownVariable         = errors.New("unknown variable reference")
	ErrMissingRequiredVariable = errors.New("missing required variable")
)

// RequiredVariables lists the built-in variables that must resolve to a
// non-empty value before a job may be scheduled.
var RequiredVariables = []string{"mail_to", "mail_to_fail"}

// CheckRequiredVariables fails with ErrMissingRequiredVariable if any
// RequiredVariables entry is absent or empty in env.
func CheckRequiredVariables(env map[string]string) error {
	var missing []string
	for _, name := range RequiredVariables {
		if env[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingRequiredVariable, strings.Join(missing, ", "))
}

// errorList collects multiple validation failures instead of stopping at
// the first one, so a single validate() pass reports everything wrong with
// a config at once.
type errorList []error

func (l *errorList) Add(err error) {
	if err != nil {
		*l = append(*l, err)
	}
}

func (l errorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return errors.Join(l...)
}
