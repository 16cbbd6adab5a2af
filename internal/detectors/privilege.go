package detectors

import (
	"context"
	"fmt"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// excessivePrivilege flags write and write-all token permissions at workflow and job level.
type excessivePrivilege struct {
	cat *catalog.Catalog
}

func (d *excessivePrivilege) Name() string { return NameExcessivePrivilege }

func (d *excessivePrivilege) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	out := d.check(wf, wf.Permissions, "workflow", "")
	for _, job := range wf.Jobs {
		out = append(out, d.check(wf, job.Permissions, "job "+job.Name, job.Name)...)
	}
	return out, nil
}

func (d *excessivePrivilege) check(wf *workflow.Workflow, perm workflow.Permissions, level, job string) []findings.Finding {
	if !perm.Declared {
		return nil
	}
	topLevel := job == ""

	if perm.IsScalar() {
		if !d.cat.IsElevated(perm.Scalar) {
			return nil
		}
		msg := fmt.Sprintf("Permissions found in %s: %s. Make sure to grant the right level for GitHub Token permissions.",
			level, perm.Scalar)
		if topLevel {
			msg = fmt.Sprintf("Permissions found in %s: %s, a top level may harm your pipeline. "+
				"Make sure to grant the right level for GitHub Token permissions.", level, perm.Scalar)
		}
		return []findings.Finding{findings.NewFrom(d.cat, findings.ExcessivePrivilege, msg, at(wf, job, "", perm.Line))}
	}

	var out []findings.Finding
	for _, scope := range perm.Scopes {
		if !d.cat.IsElevated(scope.Value) {
			continue
		}
		msg := fmt.Sprintf("Elevate permission found at %s: %s = %s. Review the permission and check if the user "+
			"is qualified for that. Use the least privilege principle.", level, scope.Key, scope.Value)
		if topLevel {
			msg += " A top level may harm your pipeline. Make sure to grant the right level for GitHub Token permissions."
		}
		out = append(out, findings.NewFrom(d.cat, findings.ExcessivePrivilege, msg, at(wf, job, "", scope.Line)))
	}
	return out
}
