package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// hardCodedSecret flags env keys and run commands that look like credentials.
// An env entry whose value is a ${{ secrets.NAME }} reference is safe.
type hardCodedSecret struct {
	cat *catalog.Catalog
}

func (d *hardCodedSecret) Name() string { return NameHardCodedSecret }

func (d *hardCodedSecret) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	var out []findings.Finding
	out = append(out, d.checkEnv(wf, wf.Env, "workflow", "", "")...)

	for _, job := range wf.Jobs {
		out = append(out, d.checkEnv(wf, job.Env, "job "+job.Name, job.Name, "")...)

		for _, svc := range job.Services {
			level := fmt.Sprintf("service %s in job %s", svc.Name, job.Name)
			out = append(out, d.checkEnv(wf, svc.Env, level, job.Name, "")...)
			out = append(out, d.checkEnv(wf, svc.Credentials, level, job.Name, "")...)
		}

		for _, step := range job.Steps {
			level := "step in job " + job.Name
			out = append(out, d.checkEnv(wf, step.Env, level, job.Name, step.DisplayName())...)
			if step.Run != "" && d.cat.MatchesSecret(step.Run) {
				out = append(out, findings.NewFrom(d.cat, findings.HardCodedSecret,
					fmt.Sprintf("Hard-coded secret in %s run command '%s'", level, step.Run),
					at(wf, job.Name, step.DisplayName(), step.Line)))
			}
		}
	}
	return out, nil
}

func (d *hardCodedSecret) checkEnv(wf *workflow.Workflow, env workflow.Env, level, job, step string) []findings.Finding {
	var out []findings.Finding
	for _, v := range env {
		if safeSecretRe.MatchString(strings.ToLower(v.Value)) {
			continue
		}
		if d.cat.MatchesSecret(v.Key) {
			out = append(out, findings.NewFrom(d.cat, findings.HardCodedSecret,
				fmt.Sprintf("Hard-coded secret in %s env '%s'", level, v.Key),
				at(wf, job, step, v.Line)))
		}
	}
	return out
}
