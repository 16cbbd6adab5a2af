package detectors

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// Score is one output of a secondary scorer.
type Score struct {
	Subject string
	Value   float64
	Detail  string
}

// Scorer is an optional, non-deterministic secondary analysis of conditions.
// The runner never calls it unless one is set with WithScorer.
type Scorer interface {
	ScoreCondition(ctx context.Context, condition string) ([]Score, error)
}

// Runner executes a set of detectors against workflows.
type Runner struct {
	detectors []Detector
	logger    hclog.Logger
	scorer    Scorer
}

// NewRunner builds a runner for the named detectors, or the full battery when none are named.
func NewRunner(opts Options, names ...string) (*Runner, error) {
	opts = opts.withDefaults()
	set, err := NewSet(names, opts)
	if err != nil {
		return nil, err
	}
	return &Runner{detectors: set, logger: opts.Logger}, nil
}

// WithScorer attaches a secondary scorer.
func (r *Runner) WithScorer(s Scorer) *Runner {
	r.scorer = s
	return r
}

// Names returns the names of the detectors this runner executes.
func (r *Runner) Names() []string {
	out := make([]string, 0, len(r.detectors))
	for _, d := range r.detectors {
		out = append(out, d.Name())
	}
	return out
}

// Run executes every detector. A failing or panicking detector is reported in its
// group and does not suppress the findings of the others.
func (r *Runner) Run(ctx context.Context, wf *workflow.Workflow) []findings.Group {
	groups := make([]findings.Group, 0, len(r.detectors))
	for _, d := range r.detectors {
		groups = append(groups, r.runDetector(ctx, d, wf))
	}
	return groups
}

// RunOne executes a single detector by name.
func (r *Runner) RunOne(ctx context.Context, name string, wf *workflow.Workflow) (findings.Group, error) {
	for _, d := range r.detectors {
		if d.Name() == name {
			return r.runDetector(ctx, d, wf), nil
		}
	}
	return findings.Group{}, fmt.Errorf("detector %q is not part of this runner", name)
}

// Score runs the secondary scorer over every job and step condition.
// It returns nothing when no scorer is attached.
func (r *Runner) Score(ctx context.Context, wf *workflow.Workflow) ([]Score, error) {
	if r.scorer == nil {
		return nil, nil
	}
	var out []Score
	for _, job := range wf.Jobs {
		conditions := []string{job.If}
		for _, step := range job.Steps {
			conditions = append(conditions, step.If)
		}
		for _, c := range conditions {
			if c == "" {
				continue
			}
			scores, err := r.scorer.ScoreCondition(ctx, c)
			if err != nil {
				return out, fmt.Errorf("score condition %q: %w", c, err)
			}
			out = append(out, scores...)
		}
	}
	return out, nil
}

func (r *Runner) runDetector(ctx context.Context, d Detector, wf *workflow.Workflow) (group findings.Group) {
	group.Detector = d.Name()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("detector panicked", "detector", d.Name(), "source", wf.Source, "panic", rec)
			group.Findings = nil
			group.Error = fmt.Sprintf("detector panicked: %v", rec)
		}
	}()

	found, err := d.Detect(ctx, wf)
	if err != nil {
		r.logger.Error("detector failed", "detector", d.Name(), "source", wf.Source, "error", err)
		group.Error = err.Error()
		return group
	}
	group.Findings = found
	return group
}
