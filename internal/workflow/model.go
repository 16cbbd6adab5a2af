package workflow

import (
	"strconv"
	"strings"
)

const (
	// DefaultRunner is used when a job omits runs-on.
	DefaultRunner = "ubuntu-latest"
	// DefaultName is used when a workflow omits name.
	DefaultName = "Default Workflow Name"
	// UnnamedStep is the display name of a step that omits name.
	UnnamedStep = "Unnamed Step"
)

// Well-known trigger events.
const (
	EventPush             = "push"
	EventWorkflowDispatch = "workflow_dispatch"
	EventWorkflowCall     = "workflow_call"
	EventWorkflowRun      = "workflow_run"
)

// CriticalBranches are branch names treated as protected.
var CriticalBranches = []string{"master", "main", "production"}

// EnvVar is a single key/value pair of an env block. Values keep their literal text.
type EnvVar struct {
	Key   string
	Value string
	Line  int
}

// Env is an ordered env block.
type Env []EnvVar

// Get returns the value of key.
func (e Env) Get(key string) (string, bool) {
	for _, v := range e {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Has reports whether key is defined.
func (e Env) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// Keys returns the keys in declaration order.
func (e Env) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, v := range e {
		keys = append(keys, v.Key)
	}
	return keys
}

// Permissions is either a scalar level (read-all, write-all, ...) or a map of scope to level.
type Permissions struct {
	Declared bool
	Scalar   string
	Scopes   Env
	Line     int
}

// IsScalar reports whether permissions were declared as a single level.
func (p Permissions) IsScalar() bool {
	return p.Declared && p.Scopes == nil
}

// Input is one declared input of a dispatch or call trigger.
type Input struct {
	Name           string
	Description    string
	HasDescription bool
	Type           string
	HasType        bool
	HasOptions     bool
	Required       string
	HasRequired    bool
	Default        string
	HasDefault     bool
	Line           int
}

// IsRequired reports whether the required field holds a true literal.
func (i Input) IsRequired() bool {
	return IsTrue(i.Required)
}

// Trigger is one event under on.
type Trigger struct {
	Event string
	// Empty is set when the event is declared without a body (e.g. `workflow_dispatch:`).
	Empty bool
	// Keys lists the sub-keys declared under the event, in order.
	Keys           []string
	Branches       []string
	BranchesIgnore []string
	Tags           []string
	Types          []string
	Workflows      []string
	Inputs         []Input
	HasInputs      bool
	Secrets        Env
	Line           int
}

// HasKey reports whether key was declared under the event.
func (t Trigger) HasKey(key string) bool {
	for _, k := range t.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Concurrency is the concurrency descriptor at workflow or job level.
type Concurrency struct {
	Declared bool
	// Group is the literal group text. GroupIsString is false for non-scalar groups.
	Group            string
	HasGroup         bool
	GroupIsString    bool
	CancelInProgress string
	HasCancel        bool
	Line             int
}

// Service is a job service container.
type Service struct {
	Name        string
	Image       string
	Env         Env
	Credentials Env
	Line        int
}

// Strategy is a job execution strategy.
type Strategy struct {
	Declared    bool
	FailFast    string
	HasFailFast bool
	Matrix      map[string][]string
	Line        int
}

// Timeout is a timeout-minutes value. Raw keeps expressions that are not numbers.
type Timeout struct {
	Set     bool
	Raw     string
	Minutes int
	Numeric bool
}

// RunsOn is the runner specification of a job.
type RunsOn struct {
	Labels   []string
	Declared bool
}

// Step is one element of a job's steps sequence.
type Step struct {
	Name             string
	ID               string
	Uses             string
	Run              string
	HasRun           bool
	WorkingDirectory string
	Env              Env
	If               string
	ContinueOnError  string
	Timeout          Timeout
	With             Env
	Line             int
}

// DisplayName returns the step name or a placeholder when the step has none.
func (s Step) DisplayName() string {
	if s.Name == "" {
		return UnnamedStep
	}
	return s.Name
}

// Job is one entry of jobs.
type Job struct {
	Name            string
	DisplayName     string
	RunsOn          RunsOn
	Steps           []Step
	Env             Env
	If              string
	Permissions     Permissions
	Services        []Service
	Strategy        Strategy
	Secrets         Env
	InheritSecrets  bool
	Timeout         Timeout
	Needs           []string
	Uses            string
	With            Env
	ContinueOnError string
	Environment     string
	HasEnvironment  bool
	Container       string
	HasDefaults     bool
	Outputs         Env
	Concurrency     Concurrency
	Line            int
}

// Workflow is the parsed form of a pipeline definition.
type Workflow struct {
	Source      string
	Name        string
	HasName     bool
	HasOn       bool
	Triggers    []Trigger
	Env         Env
	Jobs        []Job
	Permissions Permissions
	Concurrency Concurrency
	HasDefaults bool
	Raw         string
}

// Job returns the job with the given name.
func (w *Workflow) Job(name string) (*Job, bool) {
	for i := range w.Jobs {
		if w.Jobs[i].Name == name {
			return &w.Jobs[i], true
		}
	}
	return nil, false
}

// Trigger returns the trigger for event.
func (w *Workflow) Trigger(event string) (*Trigger, bool) {
	for i := range w.Triggers {
		if w.Triggers[i].Event == event {
			return &w.Triggers[i], true
		}
	}
	return nil, false
}

// TriggerNames returns the declared events in order.
func (w *Workflow) TriggerNames() []string {
	names := make([]string, 0, len(w.Triggers))
	for _, t := range w.Triggers {
		names = append(names, t.Event)
	}
	return names
}

// PushBranches returns the branch filter of the push trigger.
func (w *Workflow) PushBranches() []string {
	if t, ok := w.Trigger(EventPush); ok {
		return t.Branches
	}
	return nil
}

// CriticalBranch returns the first protected branch targeted by push.
func (w *Workflow) CriticalBranch() (string, bool) {
	for _, b := range w.PushBranches() {
		if IsCriticalBranch(b) {
			return b, true
		}
	}
	return "", false
}

// IsCriticalBranch reports whether branch is a protected branch name.
func IsCriticalBranch(branch string) bool {
	for _, c := range CriticalBranches {
		if branch == c {
			return true
		}
	}
	return false
}

// IsTrue reports whether a literal is one of the YAML true spellings.
func IsTrue(v string) bool {
	switch strings.TrimSpace(v) {
	case "true", "True", "TRUE":
		return true
	}
	return false
}

func parseTimeout(raw string) Timeout {
	t := Timeout{Set: true, Raw: raw}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		t.Minutes = n
		t.Numeric = true
	} else if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		t.Minutes = int(f)
		t.Numeric = true
	}
	return t
}
