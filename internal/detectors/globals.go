package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// globalVariables analyses env variables across workflow, job and step scopes.
type globalVariables struct {
	cat *catalog.Catalog
	max int
}

type scopedVar struct {
	workflow.EnvVar
	scope string
	job   string
	step  string
}

func (d *globalVariables) Name() string { return NameGlobalVariables }

func (d *globalVariables) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	vars := collectVars(wf)

	var out []findings.Finding
	add := func(v scopedVar, msg string) {
		out = append(out, findings.NewFrom(d.cat, findings.GlobalVariable, msg, at(wf, v.job, v.step, v.Line)))
	}

	if len(vars) > d.max {
		out = append(out, findings.NewFrom(d.cat, findings.GlobalVariable,
			fmt.Sprintf("The workflow defines %d env variables, more than the limit of %d. "+
				"Consider reducing the number of variables or grouping them.", len(vars), d.max),
			at(wf, "", "", 1)))
	}

	for _, v := range vars {
		if d.cat.IsGenericName(v.Key) {
			add(v, fmt.Sprintf("Variable '%s' in %s has a generic name. Consider a more descriptive name.", v.Key, v.scope))
		}
	}
	for _, v := range vars {
		if d.cat.ContainsSensitive(v.Value) {
			add(v, fmt.Sprintf("Variable '%s' in %s holds a sensitive value. Consider using secrets instead.", v.Key, v.scope))
		}
	}

	for _, job := range wf.Jobs {
		for _, v := range job.Env {
			if orig, ok := wf.Env.Get(v.Key); ok {
				out = append(out, findings.NewFrom(d.cat, findings.GlobalVariable,
					fmt.Sprintf("Variable '%s' in job: %s redefines an outer variable ('%s' -> '%s').", v.Key, job.Name, orig, v.Value),
					at(wf, job.Name, "", v.Line)))
			}
		}
		for _, step := range job.Steps {
			for _, v := range step.Env {
				orig, ok := wf.Env.Get(v.Key)
				if !ok {
					orig, ok = job.Env.Get(v.Key)
				}
				if ok {
					out = append(out, findings.NewFrom(d.cat, findings.GlobalVariable,
						fmt.Sprintf("Variable '%s' in step in job: %s redefines an outer variable ('%s' -> '%s').", v.Key, job.Name, orig, v.Value),
						at(wf, job.Name, step.DisplayName(), v.Line)))
				}
			}
		}
	}

	seen := make(map[string]bool)
	checkCondition := func(cond, scope, job, step string) {
		if cond == "" {
			return
		}
		for _, v := range vars {
			if seen[v.Key] || !strings.Contains(cond, v.Key) {
				continue
			}
			seen[v.Key] = true
			out = append(out, findings.NewFrom(d.cat, findings.GlobalVariable,
				fmt.Sprintf("Variable '%s' is referenced in %s. Variables in conditions add complexity to the logic.", v.Key, scope),
				at(wf, job, step, v.Line)))
		}
	}
	for _, job := range wf.Jobs {
		checkCondition(job.If, "job condition: "+job.Name, job.Name, "")
		for _, step := range job.Steps {
			checkCondition(step.If, "step condition in job: "+job.Name, job.Name, step.DisplayName())
		}
	}
	return out, nil
}

func collectVars(wf *workflow.Workflow) []scopedVar {
	var vars []scopedVar
	for _, v := range wf.Env {
		vars = append(vars, scopedVar{EnvVar: v, scope: "workflow"})
	}
	for _, job := range wf.Jobs {
		for _, v := range job.Env {
			vars = append(vars, scopedVar{EnvVar: v, scope: "job: " + job.Name, job: job.Name})
		}
		for _, step := range job.Steps {
			for _, v := range step.Env {
				vars = append(vars, scopedVar{EnvVar: v, scope: "step in job: " + job.Name, job: job.Name, step: step.DisplayName()})
			}
		}
	}
	return vars
}
