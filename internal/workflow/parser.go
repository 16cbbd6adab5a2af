package workflow

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads and parses the pipeline definition at path.
func ParseFile(path string) (*Workflow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %q: %w", path, err)
	}
	return Parse(path, content)
}

// Parse converts pipeline text into a Workflow. Scalars are kept as their literal text,
// so `on`, `yes` or dates are never coerced. Malformed input returns a *ParseError.
func Parse(source string, content []byte) (*Workflow, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, newParseError(source, 0, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, newParseError(source, 0, ErrEmptyDocument)
	}
	root := resolve(doc.Content[0])
	if isNull(root) {
		return nil, newParseError(source, root.Line, ErrEmptyDocument)
	}
	if root.Kind != yaml.MappingNode {
		return nil, newParseError(source, root.Line, fmt.Errorf("top level must be a mapping"))
	}

	p := &parser{source: source}
	wf, err := p.workflow(root)
	if err != nil {
		return nil, err
	}
	wf.Raw = string(content)
	return wf, nil
}

type parser struct {
	source string
}

type pair struct {
	key   string
	line  int
	value *yaml.Node
}

func (p *parser) errorf(n *yaml.Node, format string, args ...interface{}) error {
	line := 0
	if n != nil {
		line = n.Line
	}
	return newParseError(p.source, line, fmt.Errorf(format, args...))
}

// pairs returns the entries of a mapping node and rejects duplicate keys.
func (p *parser) pairs(n *yaml.Node) ([]pair, error) {
	n = resolve(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, p.errorf(n, "expected a mapping")
	}
	seen := make(map[string]bool, len(n.Content)/2)
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k.Value == "<<" {
			continue
		}
		if seen[k.Value] {
			return nil, p.errorf(k, "duplicate key %q", k.Value)
		}
		seen[k.Value] = true
		out = append(out, pair{key: k.Value, line: k.Line, value: n.Content[i+1]})
	}
	return out, nil
}

func (p *parser) workflow(root *yaml.Node) (*Workflow, error) {
	entries, err := p.pairs(root)
	if err != nil {
		return nil, err
	}

	wf := &Workflow{Source: p.source, Name: DefaultName}
	for _, e := range entries {
		switch e.key {
		case "name":
			if !isNull(e.value) {
				wf.Name = scalar(e.value)
				wf.HasName = true
			}
		case "on":
			wf.HasOn = true
			if wf.Triggers, err = p.triggers(e.value); err != nil {
				return nil, err
			}
		case "env":
			if wf.Env, err = p.env(e.value); err != nil {
				return nil, err
			}
		case "permissions":
			if wf.Permissions, err = p.permissions(e.value); err != nil {
				return nil, err
			}
		case "concurrency":
			if wf.Concurrency, err = p.concurrency(e.value); err != nil {
				return nil, err
			}
		case "defaults":
			wf.HasDefaults = true
		case "jobs":
			if wf.Jobs, err = p.jobs(e.value); err != nil {
				return nil, err
			}
		}
	}
	return wf, nil
}

func (p *parser) triggers(n *yaml.Node) ([]Trigger, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if isNull(n) {
			return nil, nil
		}
		return []Trigger{{Event: n.Value, Empty: true, Line: n.Line}}, nil
	case yaml.SequenceNode:
		out := make([]Trigger, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolve(item)
			out = append(out, Trigger{Event: scalar(item), Empty: true, Line: item.Line})
		}
		return out, nil
	}

	entries, err := p.pairs(n)
	if err != nil {
		return nil, err
	}
	out := make([]Trigger, 0, len(entries))
	for _, e := range entries {
		t := Trigger{Event: e.key, Line: e.line}
		body := resolve(e.value)
		if isNull(body) {
			t.Empty = true
			out = append(out, t)
			continue
		}
		if body.Kind == yaml.MappingNode {
			if err := p.triggerBody(&t, body); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *parser) triggerBody(t *Trigger, body *yaml.Node) error {
	entries, err := p.pairs(body)
	if err != nil {
		return err
	}
	for _, e := range entries {
		t.Keys = append(t.Keys, e.key)
		switch e.key {
		case "branches":
			t.Branches = stringList(e.value)
		case "branches-ignore":
			t.BranchesIgnore = stringList(e.value)
		case "tags":
			t.Tags = stringList(e.value)
		case "types":
			t.Types = stringList(e.value)
		case "workflows", "workflow":
			t.Workflows = append(t.Workflows, stringList(e.value)...)
		case "inputs":
			t.HasInputs = true
			if t.Inputs, err = p.inputs(e.value); err != nil {
				return err
			}
		case "secrets":
			if t.Secrets, err = p.env(e.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) inputs(n *yaml.Node) ([]Input, error) {
	entries, err := p.pairs(n)
	if err != nil {
		return nil, err
	}
	out := make([]Input, 0, len(entries))
	for _, e := range entries {
		in := Input{Name: e.key, Line: e.line}
		fields, err := p.pairs(e.value)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			switch f.key {
			case "description":
				in.Description, in.HasDescription = scalar(f.value), true
			case "type":
				if !isNull(f.value) {
					in.Type = scalar(f.value)
				}
				in.HasType = true
			case "options":
				in.HasOptions = true
			case "required":
				in.Required, in.HasRequired = scalar(f.value), true
			case "default":
				in.Default, in.HasDefault = scalar(f.value), true
			}
		}
		out = append(out, in)
	}
	return out, nil
}

func (p *parser) env(n *yaml.Node) (Env, error) {
	n = resolve(n)
	if isNull(n) {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		// env computed from an expression has no static keys
		return nil, nil
	case yaml.SequenceNode:
		var out Env
		for _, item := range n.Content {
			part, err := p.env(item)
			if err != nil {
				return nil, err
			}
			out = append(out, part...)
		}
		return out, nil
	}

	entries, err := p.pairs(n)
	if err != nil {
		return nil, err
	}
	out := make(Env, 0, len(entries))
	for _, e := range entries {
		out = append(out, EnvVar{Key: e.key, Value: scalar(e.value), Line: e.line})
	}
	return out, nil
}

func (p *parser) permissions(n *yaml.Node) (Permissions, error) {
	n = resolve(n)
	perm := Permissions{Declared: true, Line: n.Line}
	if n.Kind == yaml.MappingNode {
		scopes, err := p.env(n)
		if err != nil {
			return Permissions{}, err
		}
		perm.Scopes = append(Env{}, scopes...)
		return perm, nil
	}
	if !isNull(n) {
		perm.Scalar = scalar(n)
	}
	return perm, nil
}

func (p *parser) concurrency(n *yaml.Node) (Concurrency, error) {
	n = resolve(n)
	c := Concurrency{Declared: true, Line: n.Line}
	if isNull(n) {
		return c, nil
	}
	if n.Kind != yaml.MappingNode {
		c.Group, c.HasGroup, c.GroupIsString = scalar(n), true, isString(n)
		return c, nil
	}
	entries, err := p.pairs(n)
	if err != nil {
		return Concurrency{}, err
	}
	for _, e := range entries {
		switch e.key {
		case "group":
			v := resolve(e.value)
			c.Group, c.HasGroup, c.GroupIsString = scalar(v), true, isString(v)
		case "cancel-in-progress":
			c.CancelInProgress, c.HasCancel = scalar(e.value), true
		}
	}
	return c, nil
}

func (p *parser) jobs(n *yaml.Node) ([]Job, error) {
	entries, err := p.pairs(n)
	if err != nil {
		return nil, err
	}
	out := make([]Job, 0, len(entries))
	for _, e := range entries {
		job, err := p.job(e)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func (p *parser) job(e pair) (Job, error) {
	job := Job{Name: e.key, Line: e.line}
	body := resolve(e.value)
	if !isNull(body) && body.Kind != yaml.MappingNode {
		return Job{}, p.errorf(body, "job %q must be a mapping", e.key)
	}
	entries, err := p.pairs(body)
	if err != nil {
		return Job{}, err
	}

	for _, f := range entries {
		switch f.key {
		case "name":
			job.DisplayName = scalar(f.value)
		case "runs-on":
			job.RunsOn = runsOn(f.value)
		case "steps":
			if job.Steps, err = p.steps(f.value); err != nil {
				return Job{}, err
			}
		case "env":
			job.Env, err = p.env(f.value)
		case "if":
			job.If = scalar(f.value)
		case "permissions":
			job.Permissions, err = p.permissions(f.value)
		case "services":
			job.Services, err = p.services(f.value)
		case "strategy":
			job.Strategy, err = p.strategy(f.value)
		case "secrets":
			v := resolve(f.value)
			if v.Kind == yaml.ScalarNode && v.Value == "inherit" {
				job.InheritSecrets = true
			} else {
				job.Secrets, err = p.env(v)
			}
		case "timeout-minutes":
			job.Timeout = parseTimeout(scalar(f.value))
		case "needs":
			job.Needs = stringList(f.value)
		case "uses":
			job.Uses = scalar(f.value)
		case "with":
			job.With, err = p.env(f.value)
		case "continue-on-error":
			job.ContinueOnError = scalar(f.value)
		case "environment":
			job.HasEnvironment = true
			job.Environment = nameOrScalar(f.value, "name")
		case "container":
			job.Container = nameOrScalar(f.value, "image")
		case "defaults":
			job.HasDefaults = true
		case "outputs":
			job.Outputs, err = p.env(f.value)
		case "concurrency":
			job.Concurrency, err = p.concurrency(f.value)
		}
		if err != nil {
			return Job{}, err
		}
	}

	if !job.RunsOn.Declared {
		job.RunsOn.Labels = []string{DefaultRunner}
	}
	return job, nil
}

func (p *parser) steps(n *yaml.Node) ([]Step, error) {
	n = resolve(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, p.errorf(n, "steps must be a sequence")
	}
	out := make([]Step, 0, len(n.Content))
	for _, item := range n.Content {
		item = resolve(item)
		if item.Kind != yaml.MappingNode {
			return nil, p.errorf(item, "step must be a mapping")
		}
		step, err := p.step(item)
		if err != nil {
			return nil, err
		}
		out = append(out, step)
	}
	return out, nil
}

func (p *parser) step(n *yaml.Node) (Step, error) {
	step := Step{Line: n.Line}
	entries, err := p.pairs(n)
	if err != nil {
		return Step{}, err
	}
	for _, f := range entries {
		switch f.key {
		case "name":
			step.Name = scalar(f.value)
		case "id":
			step.ID = scalar(f.value)
		case "uses":
			step.Uses = scalar(f.value)
		case "run":
			step.Run, step.HasRun = scalar(f.value), !isNull(resolve(f.value))
		case "working-directory":
			step.WorkingDirectory = scalar(f.value)
		case "env":
			step.Env, err = p.env(f.value)
		case "if":
			step.If = scalar(f.value)
		case "continue-on-error":
			step.ContinueOnError = scalar(f.value)
		case "timeout-minutes":
			step.Timeout = parseTimeout(scalar(f.value))
		case "with":
			step.With, err = p.env(f.value)
		}
		if err != nil {
			return Step{}, err
		}
	}
	return step, nil
}

func (p *parser) services(n *yaml.Node) ([]Service, error) {
	entries, err := p.pairs(n)
	if err != nil {
		return nil, err
	}
	out := make([]Service, 0, len(entries))
	for _, e := range entries {
		svc := Service{Name: e.key, Line: e.line}
		body := resolve(e.value)
		if body.Kind == yaml.MappingNode {
			fields, err := p.pairs(body)
			if err != nil {
				return nil, err
			}
			for _, f := range fields {
				switch f.key {
				case "image":
					svc.Image = scalar(f.value)
				case "env":
					svc.Env, err = p.env(f.value)
				case "credentials":
					svc.Credentials, err = p.env(f.value)
				}
				if err != nil {
					return nil, err
				}
			}
		}
		out = append(out, svc)
	}
	return out, nil
}

func (p *parser) strategy(n *yaml.Node) (Strategy, error) {
	n = resolve(n)
	s := Strategy{Declared: true, Line: n.Line}
	if n.Kind != yaml.MappingNode {
		return s, nil
	}
	entries, err := p.pairs(n)
	if err != nil {
		return Strategy{}, err
	}
	for _, e := range entries {
		switch e.key {
		case "fail-fast":
			s.FailFast, s.HasFailFast = scalar(e.value), true
		case "matrix":
			m := resolve(e.value)
			if m.Kind != yaml.MappingNode {
				continue
			}
			dims, err := p.pairs(m)
			if err != nil {
				return Strategy{}, err
			}
			s.Matrix = make(map[string][]string, len(dims))
			for _, d := range dims {
				if v := resolve(d.value); v.Kind == yaml.SequenceNode {
					s.Matrix[d.key] = stringList(v)
				}
			}
		}
	}
	return s, nil
}

func runsOn(n *yaml.Node) RunsOn {
	n = resolve(n)
	r := RunsOn{Declared: true}
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			switch n.Content[i].Value {
			case "group", "labels":
				r.Labels = append(r.Labels, stringList(n.Content[i+1])...)
			}
		}
	default:
		r.Labels = stringList(n)
	}
	return r
}

func nameOrScalar(n *yaml.Node, key string) string {
	n = resolve(n)
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				return scalar(n.Content[i+1])
			}
		}
		return ""
	}
	if isNull(n) {
		return ""
	}
	return scalar(n)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func isString(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode {
		return false
	}
	switch n.Tag {
	case "!!int", "!!float", "!!null":
		return false
	}
	return true
}

// scalar returns the literal text of a node. Non-scalar nodes are re-encoded as YAML.
func scalar(n *yaml.Node) string {
	n = resolve(n)
	if isNull(n) {
		return ""
	}
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return ""
	}
	_ = enc.Close()
	return strings.TrimSpace(buf.String())
}

func stringList(n *yaml.Node) []string {
	n = resolve(n)
	switch {
	case isNull(n):
		return nil
	case n.Kind == yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			out = append(out, scalar(item))
		}
		return out
	default:
		return []string{scalar(n)}
	}
}

// FileName returns the base name of the workflow source.
func (w *Workflow) FileName() string {
	return filepath.Base(w.Source)
}
