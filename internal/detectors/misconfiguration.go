package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

const simplifyHint = "Consider simplifying the condition ou separating into different steps ou jobs."

// misconfiguration flags missing parameters, fuzzy action versions, overly complex step
// conditions and malformed concurrency blocks.
type misconfiguration struct {
	cat *catalog.Catalog
}

func (d *misconfiguration) Name() string { return NameMisconfiguration }

func (d *misconfiguration) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	var out []findings.Finding
	out = append(out, d.missingParameters(wf)...)
	out = append(out, d.fuzzyVersions(wf)...)
	out = append(out, d.conditionComplexity(wf)...)
	out = append(out, d.concurrency(wf)...)
	return out, nil
}

func (d *misconfiguration) missingParameters(wf *workflow.Workflow) []findings.Finding {
	var out []findings.Finding
	add := func(loc findings.Location, msg string) {
		out = append(out, findings.NewFrom(d.cat, findings.Misconfiguration, msg, loc))
	}

	if !wf.HasName {
		add(at(wf, "", "", 1), "No 'name' were set for the workflow. "+
			"Consider providing an 'alias' for the workflow for better maintenance.")
	}
	if !wf.HasOn || len(wf.Triggers) == 0 {
		add(at(wf, "", "", 1), "Workflow is missing the 'on' parameter. You need to provide a trigger event.")
	}
	if !wf.HasDefaults {
		add(at(wf, "", "", 1), "No 'defaults' values were set on the workflow. "+
			"Consider using the 'defaults' parameter to set the common values for all your jobs.")
	}

	for _, job := range wf.Jobs {
		if !job.HasEnvironment || job.Environment == "" {
			add(at(wf, job.Name, "", job.Line), fmt.Sprintf("Job '%s' has no 'environment' parameter set. "+
				"Consider create environments for better security and maintenance. You can find all the info about "+
				"it at https://docs.github.com/en/actions/deployment/targeting-different-environments", job.Name))
		}
		if !job.RunsOn.Declared {
			add(at(wf, job.Name, "", job.Line), fmt.Sprintf("Job '%s' do not have a runner specified, it will be use "+
				"the default runner '%s'. Consider specifying 'runs-on' explicitly.", job.Name, workflow.DefaultRunner))
		}
		for _, step := range job.Steps {
			if step.Uses == "" && step.Run == "" {
				add(at(wf, job.Name, step.DisplayName(), step.Line), fmt.Sprintf("Step '%s' in job '%s' is missing "+
					"both the 'uses' and the 'run' parameters. Consider specifying an action or the command to run.",
					step.DisplayName(), job.Name))
			}
		}
	}
	return out
}

func (d *misconfiguration) fuzzyVersions(wf *workflow.Workflow) []findings.Finding {
	var out []findings.Finding
	for _, job := range wf.Jobs {
		for _, step := range job.Steps {
			if step.Uses == "" || !fuzzyRe.MatchString(step.Uses) {
				continue
			}
			version := "unknown"
			if i := strings.Index(step.Uses, "@"); i >= 0 {
				version = step.Uses[i+1:]
			}
			out = append(out, findings.NewFrom(d.cat, findings.FuzzyVersion,
				fmt.Sprintf("Job '%s' has a step with an unspecified or fuzzy version %s. "+
					"Consider specifying a more precise version or use the Matrix parameter.", job.Name, version),
				at(wf, job.Name, step.DisplayName(), step.Line)))
		}
	}
	return out
}

func (d *misconfiguration) conditionComplexity(wf *workflow.Workflow) []findings.Finding {
	var out []findings.Finding
	for _, job := range wf.Jobs {
		for _, step := range job.Steps {
			if step.If == "" {
				continue
			}
			name := step.DisplayName()
			loc := at(wf, job.Name, name, step.Line)

			if len(strings.Split(step.If, "&&")) > d.cat.Thresholds.MaxAndClauses {
				out = append(out, findings.NewFrom(d.cat, findings.UnnecessaryComplexity,
					fmt.Sprintf("Job '%s' has a step '%s' with an unnecessary complexity on 'if' condition. %s",
						job.Name, name, simplifyHint), loc))
			}
			if parenRe.MatchString(step.If) {
				out = append(out, findings.NewFrom(d.cat, findings.UnnecessaryComplexity,
					fmt.Sprintf("Step '%s' in job '%s' has nested 'if' conditions: '%s'. %s",
						name, job.Name, step.If, simplifyHint), loc))
			}
			if len(logicalOpRe.FindAllString(step.If, -1)) > 1 {
				out = append(out, findings.NewFrom(d.cat, findings.UnnecessaryComplexity,
					fmt.Sprintf("Step '%s' in job '%s' has multiple logical operators in 'if' condition: '%s'. %s",
						name, job.Name, step.If, simplifyHint), loc))
			}
		}
	}
	return out
}

func (d *misconfiguration) concurrency(wf *workflow.Workflow) []findings.Finding {
	c := wf.Concurrency
	if !c.Declared {
		return nil
	}
	var out []findings.Finding
	loc := at(wf, "", "", c.Line)

	if !c.HasGroup || !c.GroupIsString {
		group := "None"
		if c.HasGroup {
			group = c.Group
		}
		out = append(out, findings.NewFrom(d.cat, findings.Misconfiguration,
			fmt.Sprintf("Concurrency configuration is missing the 'group' parameter or it is not a string: %s. "+
				"Ensure 'group' is specified and is a string.", group), loc))
	}
	if !c.HasCancel {
		out = append(out, findings.NewFrom(d.cat, findings.Misconfiguration,
			"Concurrency configuration is missing the cancel-in-progress. "+
				"Ensure 'cancel-in-progress' is specified and is a boolean.", loc))
		return out
	}
	if c.CancelInProgress != "True" && c.CancelInProgress != "true" && !expressionRe.MatchString(strings.TrimSpace(c.CancelInProgress)) {
		out = append(out, findings.NewFrom(d.cat, findings.Misconfiguration,
			fmt.Sprintf("Concurrency configuration for cancel-in-progress is not a boolean, valid GitHub expression "+
				"or is not set to True. (cancel-in-progress: %s). Ensure cancel-in-progress has the right configuration.",
				c.CancelInProgress), loc))
	}
	return out
}
