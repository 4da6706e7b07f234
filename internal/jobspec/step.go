package jobspec

// StepType is the kind of work a step performs.
type StepType string

const (
	StepOS       StepType = "os"
	StepSendMail StepType = "send_mail"
	StepSleep    StepType = "sleep"
)

// allDependency is the sentinel string that marks a step as depending on
// every other step in the job, without materializing that edge list.
const allDependency = "ALL"

// Step is one node of the job's dependency graph, as read from the config
// file. Dependencies is either an explicit list of step keys, or the single
// string "ALL", recorded in DependsOnAll.
type Step struct {
	Key          string
	Type         StepType
	Name         string
	Task         string
	Dependencies []string
	DependsOnAll bool
	Enabled      bool
	ResultCodes  []int
	Detail       map[string]any
	Comment      string
}

// rawStep mirrors the on-disk JSON shape before dependency resolution; its
// Dependencies field accepts either a JSON array or the literal "ALL".
type rawStep struct {
	Type         string          `json:"type"`
	Name         string          `json:"name"`
	Task         string          `json:"task"`
	Dependencies rawDependencies `json:"dependencies"`
	Enabled      *bool           `json:"enabled"`
	ResultCodes  []int           `json:"resultcode_allowed"`
	Detail       map[string]any  `json:"detail"`
	Comment      string          `json:"comment"`
}

// Config is the parsed, pre-substitution representation of a job file.
type Config struct {
	Variables map[string]string
	Steps     map[string]*rawStep
	order     []string
}
