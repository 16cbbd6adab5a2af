package detectors

import (
	"context"
	"fmt"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// errorHandling flags continue-on-error, disabled fail-fast and missing or extreme timeouts.
type errorHandling struct {
	cat *catalog.Catalog
}

func (d *errorHandling) Name() string { return NameErrorHandling }

func (d *errorHandling) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	var out []findings.Finding
	out = append(out, d.continueOnError(wf)...)
	out = append(out, d.failFast(wf)...)
	out = append(out, d.timeouts(wf)...)
	return out, nil
}

func (d *errorHandling) continueOnError(wf *workflow.Workflow) []findings.Finding {
	var out []findings.Finding
	for _, job := range wf.Jobs {
		if workflow.IsTrue(job.ContinueOnError) {
			out = append(out, findings.NewFrom(d.cat, findings.ContinueOnError,
				fmt.Sprintf("Job '%s' has continue-on-error set to true. This could be useful in some cases, but it is "+
					"generally not recommended.Meaning that the job will continue to run even if a step fails. "+
					"This can lead to unexpected behavior and should be avoided.", job.Name),
				at(wf, job.Name, "", job.Line)))
		}
		for _, step := range job.Steps {
			if workflow.IsTrue(step.ContinueOnError) {
				out = append(out, findings.NewFrom(d.cat, findings.ContinueOnError,
					fmt.Sprintf("Step '%s' has continue-on-error set to true. This could be useful in some cases, but "+
						"it is generally not recommended.Meaning that the step will continue to run even if it fails. "+
						"This can lead to unexpected behavior and should be avoided.", step.DisplayName()),
					at(wf, job.Name, step.DisplayName(), step.Line)))
			}
		}
	}
	return out
}

func (d *errorHandling) failFast(wf *workflow.Workflow) []findings.Finding {
	var out []findings.Finding
	for _, job := range wf.Jobs {
		if !job.Strategy.Declared {
			continue
		}
		value := "None"
		if job.Strategy.HasFailFast {
			value = job.Strategy.FailFast
		}
		if workflow.IsTrue(value) {
			continue
		}
		out = append(out, findings.NewFrom(d.cat, findings.ErrorHandling,
			fmt.Sprintf("Job '%s' has fail-fast set to %s. This means that the job will continue to run even if a "+
				"step fails. This can lead to unexpected behavior and should be avoided.", job.Name, value),
			at(wf, job.Name, "", firstLine(job.Strategy.Line, job.Line))))
	}
	return out
}

func (d *errorHandling) timeouts(wf *workflow.Workflow) []findings.Finding {
	var out []findings.Finding
	for _, job := range wf.Jobs {
		out = append(out, d.timeout(job.Timeout, "Job", "job", job.Name, at(wf, job.Name, "", job.Line))...)
		for _, step := range job.Steps {
			out = append(out, d.timeout(step.Timeout, "Step", "step", step.DisplayName(),
				at(wf, job.Name, step.DisplayName(), step.Line))...)
		}
	}
	return out
}

func (d *errorHandling) timeout(t workflow.Timeout, kind, noun, name string, loc findings.Location) []findings.Finding {
	if !t.Set {
		return []findings.Finding{findings.NewFrom(d.cat, findings.ErrorHandling,
			fmt.Sprintf("%s '%s' does not have a timeout set. It is recommended to set a timeout for %ss to prevent "+
				"them from running with the default value of 6 hours and consuming resources unnecessarily.", kind, name, noun),
			loc)}
	}
	if !t.Numeric {
		return nil
	}
	switch {
	case t.Minutes == d.cat.Thresholds.ShortTimeout:
		return []findings.Finding{findings.NewFrom(d.cat, findings.ErrorHandling,
			fmt.Sprintf("%s '%s' has a timeout of %d min. This is a short time for a %s to run. If the timeout have "+
				"a short value, it will lead to cancel the %s before it finishes.", kind, name, t.Minutes, noun, noun),
			loc)}
	case t.Minutes >= d.cat.Thresholds.LongTimeout:
		return []findings.Finding{findings.NewFrom(d.cat, findings.ErrorHandling,
			fmt.Sprintf("%s '%s' has a timeout of %d min. This is a long time for a %s to run. If a %s is taking this "+
				"long to run, it may be a sign that something is wrong. It is recommended to investigate why the %s is "+
				"taking so long to run and to try to optimize it.", kind, name, t.Minutes, noun, noun, noun),
			loc)}
	}
	return nil
}
