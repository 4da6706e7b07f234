package jobspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// rawDependencies accepts either a JSON array of step keys or the literal
// string "ALL", matching the config grammar spec §4.2 describes.
type rawDependencies struct {
	all   bool
	items []string
}

func (d *rawDependencies) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != allDependency {
			return fmt.Errorf("%w: dependencies string must be %q, got %q", ErrConfigInvalid, allDependency, asString)
		}
		d.all = true
		return nil
	}
	var asList []string
	if err := json.Unmarshal(data, &asList); err != nil {
		return fmt.Errorf("%w: dependencies must be an array or %q: %w", ErrConfigInvalid, allDependency, err)
	}
	d.items = asList
	return nil
}

// fileDoc is the wire format of a whole job config file.
type fileDoc struct {
	Variables map[string]string  `json:"variables"`
	Steps     map[string]rawStep `json:"steps"`
}

// Parse decodes a job config document into a Config. encoding/json does not
// keep object key order, so step keys are recorded in sorted order, returned
// by Config.Keys. The steps object is decoded into a map: a step key that
// appears twice keeps its last record and is not reported as a duplicate.
func Parse(data []byte) (*Config, error) {
	var doc fileDoc
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	cfg := &Config{
		Variables: doc.Variables,
		Steps:     make(map[string]*rawStep, len(doc.Steps)),
	}
	for key, step := range doc.Steps {
		s := step
		cfg.Steps[key] = &s
		cfg.order = append(cfg.order, key)
	}
	sort.Strings(cfg.order)
	return cfg, nil
}

// Keys returns step keys in sorted (lowest-first) order, matching the
// deterministic dispatch tie-break used by the scheduler.
func (c *Config) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
