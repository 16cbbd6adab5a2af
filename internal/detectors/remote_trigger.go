package detectors

import (
	"context"
	"fmt"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// remoteTrigger validates the workflow_dispatch, workflow_call and workflow_run blocks.
// Triggers that are not declared are skipped; a declared trigger with no body is a finding.
type remoteTrigger struct {
	cat *catalog.Catalog
}

func (d *remoteTrigger) Name() string { return NameRemoteTrigger }

func (d *remoteTrigger) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	var out []findings.Finding
	if t, ok := wf.Trigger(workflow.EventWorkflowDispatch); ok {
		out = append(out, d.dispatch(wf, t)...)
	}
	if t, ok := wf.Trigger(workflow.EventWorkflowCall); ok {
		out = append(out, d.call(wf, t)...)
	}
	if t, ok := wf.Trigger(workflow.EventWorkflowRun); ok {
		out = append(out, d.run(wf, t)...)
	}
	return out, nil
}

func (d *remoteTrigger) finding(wf *workflow.Workflow, line int, format string, args ...interface{}) findings.Finding {
	return findings.NewFrom(d.cat, findings.RemoteTriggerMisconfiguration, fmt.Sprintf(format, args...), at(wf, "", "", line))
}

// elevatedLevels returns the write levels granted at workflow scope.
func (d *remoteTrigger) elevatedLevels(wf *workflow.Workflow) []string {
	perm := wf.Permissions
	if !perm.Declared {
		return nil
	}
	if perm.IsScalar() {
		if d.cat.IsElevated(perm.Scalar) {
			return []string{perm.Scalar}
		}
		return nil
	}
	var out []string
	for _, s := range perm.Scopes {
		if d.cat.IsElevated(s.Value) {
			out = append(out, s.Value)
		}
	}
	return out
}

func (d *remoteTrigger) dispatch(wf *workflow.Workflow, t *workflow.Trigger) []findings.Finding {
	var out []findings.Finding
	if t.Empty {
		out = append(out, d.finding(wf, t.Line,
			"Workflow-dispatch is empty. This parameter is mainly responsible for manually trigger the workflow."+
				"Consider a secure configuration for it, the lack of it might bring critical issues for your pipeline."))
	}

	for _, level := range d.elevatedLevels(wf) {
		for _, branch := range wf.PushBranches() {
			if !workflow.IsCriticalBranch(branch) {
				continue
			}
			out = append(out, d.finding(wf, t.Line,
				"Workflow dispatch trigger is set on a critical branch: %s, with a higher permission: %s, set on the "+
					"workflow level. Consider adding the best security protocol for it. This trigger might harm your "+
					"pipeline if it is not configured correctly.", branch, level))
		}
	}

	if t.Empty {
		return out
	}
	if !t.HasInputs {
		out = append(out, d.finding(wf, t.Line,
			"No inputs defined for workflow dispatch. Consider add some inputs to better security and maintenance."))
		return out
	}
	if len(t.Inputs) > d.cat.Thresholds.MaxInputs {
		out = append(out, d.finding(wf, t.Line,
			"The trigger has too many inputs. Consider simplify it, the inputs overflow, can cause security and "+
				"maintenance issues."))
	}
	return append(out, d.inputs(wf, t.Inputs)...)
}

func (d *remoteTrigger) call(wf *workflow.Workflow, t *workflow.Trigger) []findings.Finding {
	var out []findings.Finding
	if t.Empty {
		out = append(out, d.finding(wf, t.Line,
			"Workflow-call is empty. This parameter is mainly responsible for reusing the workflow from other "+
				"workflows. Consider a secure configuration for it, the lack of it might bring critical issues for your pipeline."))
	}

	for range d.elevatedLevels(wf) {
		out = append(out, d.finding(wf, t.Line,
			"Workflow call trigger is set with a higher permission on a workflow level. Consider the add best "+
				"security protocol for it. This trigger might harm your pipeline if it is not configure correctly."))
	}

	if len(t.Secrets) > 0 {
		out = append(out, d.finding(wf, t.Line,
			"You should be careful when reference secrets in workflow call. Consider use Secrets Env to do so. "+
				"Ex: ${{ secrets.SECRET_NAME }}."))
	}

	if t.Empty {
		return out
	}
	if !t.HasInputs {
		out = append(out, d.finding(wf, t.Line,
			"You need to provide inputs for the workflow call trigger work correctly. The lack of inputs can cause "+
				"you critical issues on your pipeline."))
		return out
	}
	if len(t.Inputs) > d.cat.Thresholds.MaxInputs {
		out = append(out, d.finding(wf, t.Line,
			"The trigger has too many inputs. Consider revisit your original Action to see the need for all of the "+
				"inputs. The inputs overflow, might cause security and maintenance issues."))
	}
	return append(out, d.inputs(wf, t.Inputs)...)
}

func (d *remoteTrigger) inputs(wf *workflow.Workflow, inputs []workflow.Input) []findings.Finding {
	var out []findings.Finding
	for _, in := range inputs {
		if !in.HasDescription {
			out = append(out, d.finding(wf, in.Line,
				"Input '%s' lacks a description. Consider add a description for a better understanding and maintenance.", in.Name))
		}
		if !in.HasType {
			continue
		}
		switch {
		case in.Type == "":
			out = append(out, d.finding(wf, in.Line,
				"Input '%s' does not have a specified type defined. You need to define a type for it.", in.Name))
		case !d.cat.IsValidInputType(in.Type):
			out = append(out, d.finding(wf, in.Line, "Input '%s' has an invalid type '%s'.", in.Name, in.Type))
		}
		if in.Type == "choice" && !in.HasOptions {
			out = append(out, d.finding(wf, in.Line, "Input '%s' of type 'choice' lacks 'options' definition.", in.Name))
		}
		if in.Type == "boolean" && in.HasRequired {
			out = append(out, d.finding(wf, in.Line,
				"Input '%s' of type 'boolean' should not be required. Consider remove the parameter.", in.Name))
		}
		if in.IsRequired() && !in.HasDefault {
			out = append(out, d.finding(wf, in.Line, "Input '%s' is required but has no default value.", in.Name))
		}
	}
	return out
}

func (d *remoteTrigger) run(wf *workflow.Workflow, t *workflow.Trigger) []findings.Finding {
	if t.Empty {
		return []findings.Finding{d.finding(wf, t.Line,
			"Workflow-run is empty. This parameter is mainly responsible for trigger the workflow when another "+
				"workflow is completed. You need to provide some inputs for the trigger to run.")}
	}

	var out []findings.Finding
	if t.HasKey("branches") && t.HasKey("branches-ignore") {
		out = append(out, d.finding(wf, t.Line,
			"Workflow-run has both 'branches' and 'branches-ignore' defined. If you want to both include and "+
				"exclude branch patterns for a single event, use the branches filter along with the '!' character "+
				"to indicate which branches should be excluded. The misconfiguration of it might cause you issues "+
				"but not a directly security one."))
	}
	if !t.HasKey("description") {
		out = append(out, d.finding(wf, t.Line,
			"Workflow-run lacks a description. Consider add a description for a better understanding and maintenance."))
	}
	if !t.HasKey("types") {
		out = append(out, d.finding(wf, t.Line,
			"Workflow-run lacks a type. Consider add a type for a better understanding and maintenance."))
	}
	if !t.HasKey("workflows") && !t.HasKey("workflow") {
		out = append(out, d.finding(wf, t.Line,
			"Workflow_run lacks a workflow. You need to add a event to trigger the Run."))
	}
	return out
}
