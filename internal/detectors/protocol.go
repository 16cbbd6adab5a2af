package detectors

import (
	"context"
	"fmt"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// unsecureProtocol flags plain http:// URLs in env values and run commands.
type unsecureProtocol struct {
	cat *catalog.Catalog
}

func (d *unsecureProtocol) Name() string { return NameUnsecureProtocol }

func (d *unsecureProtocol) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	out := d.checkEnv(wf, wf.Env, "workflow", "", "")
	for _, job := range wf.Jobs {
		out = append(out, d.checkEnv(wf, job.Env, "job "+job.Name, job.Name, "")...)
		for _, step := range job.Steps {
			level := "step in job " + job.Name
			out = append(out, d.checkEnv(wf, step.Env, level, job.Name, step.DisplayName())...)
			if step.Run != "" && httpRe.MatchString(step.Run) {
				out = append(out, findings.NewFrom(d.cat, findings.UnsecureProtocol,
					fmt.Sprintf("Unsecure protocol found in %s run command '%s'. Try use HTTPS instead of HTTP. "+
						"If you need to use HTTP, please provide certain level of security.", level, step.Run),
					at(wf, job.Name, step.DisplayName(), step.Line)))
			}
		}
	}
	return out, nil
}

func (d *unsecureProtocol) checkEnv(wf *workflow.Workflow, env workflow.Env, level, job, step string) []findings.Finding {
	var out []findings.Finding
	for _, v := range env {
		if !httpRe.MatchString(v.Value) {
			continue
		}
		out = append(out, findings.NewFrom(d.cat, findings.UnsecureProtocol,
			fmt.Sprintf("Unsecure protocol found in %s env '%s': %s. Try use HTTPS instead of HTTP. "+
				"If you need to use HTTP, please provide certain level of security.", level, v.Key, v.Value),
			at(wf, job, step, v.Line)))
	}
	return out
}
