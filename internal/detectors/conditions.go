package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// conditionComplexity inspects job and step if expressions line by line.
type conditionComplexity struct {
	cat *catalog.Catalog
}

func (d *conditionComplexity) Name() string { return NameConditionComplexity }

func (d *conditionComplexity) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	var out []findings.Finding
	for _, job := range wf.Jobs {
		out = append(out, d.check(job.If, at(wf, job.Name, "", job.Line))...)
		for _, step := range job.Steps {
			out = append(out, d.check(step.If, at(wf, job.Name, step.DisplayName(), step.Line))...)
		}
	}
	return out, nil
}

func (d *conditionComplexity) check(condition string, loc findings.Location) []findings.Finding {
	if condition == "" {
		return nil
	}
	var out []findings.Finding
	add := func(format string, args ...interface{}) {
		out = append(out, findings.NewFrom(d.cat, findings.ConditionComplexity, fmt.Sprintf(format, args...), loc))
	}

	lines := strings.Split(condition, "\n")
	for i, line := range lines {
		if strings.Contains(line, "&&") || strings.Contains(line, "||") {
			add("Complex logical operation in condition: %s", line)
		}
		if i > 0 && strings.Contains(line, "if") && strings.Contains(lines[i-1], "if") {
			add("Nested conditions found: %s -> %s", lines[i-1], line)
		}
		if strings.Contains(line, "true == true") || strings.Contains(line, "false == false") {
			add("Unnecessary condition that is always true: %s", line)
		}
		for _, m := range templateVarRe.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if d.cat.IsGenericName(name) {
				add("Generic variable name: %s in condition: %s", name, line)
			}
			if d.cat.IsSensitiveName(name) {
				add("Sensitive keyword in variable name: %s in condition: %s", name, line)
			}
		}
	}
	return out
}
