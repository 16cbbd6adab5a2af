package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// longBlocks flags workflows with too many jobs, jobs with too many steps and
// run blocks with too many lines.
type longBlocks struct {
	cat *catalog.Catalog
}

func (d *longBlocks) Name() string { return NameLongBlocks }

func (d *longBlocks) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	var out []findings.Finding
	limits := d.cat.Thresholds

	if n := len(wf.Jobs); n > limits.MaxJobs {
		out = append(out, findings.NewFrom(d.cat, findings.LongBlock,
			fmt.Sprintf("The workflow has more than %d jobs. Consider splitting the jobs into multiple workflows. "+
				"A longer pipeline can be difficult to maintain and debug and can lead to security vulnerabilities.", n),
			at(wf, "", "", 1)))
	}

	for _, job := range wf.Jobs {
		if n := len(job.Steps); n > limits.MaxSteps {
			out = append(out, findings.NewFrom(d.cat, findings.LongBlock,
				fmt.Sprintf("The job '%s' has more than %d steps. Consider splitting the steps into multiple jobs. "+
					"A longer job can be difficult to maintain and debug and can lead to security vulnerabilities.", job.Name, n),
				at(wf, job.Name, "", job.Line)))
		}
		for _, step := range job.Steps {
			loc := at(wf, job.Name, step.DisplayName(), step.Line)
			if !step.HasRun {
				out = append(out, findings.NewFrom(d.cat, findings.LongBlock,
					fmt.Sprintf("The step '%s' does not have any commands to run.", step.DisplayName()), loc))
				continue
			}
			if n := len(strings.Split(step.Run, "\n")); n > limits.MaxRunLines {
				out = append(out, findings.NewFrom(d.cat, findings.LongBlock,
					fmt.Sprintf("The step '%s' run has more than %d commands. Consider splitting the commands into "+
						"multiple step groups. A longer step group can be difficult to maintain and debug and can lead "+
						"to security vulnerabilities.", step.DisplayName(), n), loc))
			}
		}
	}
	return out, nil
}
