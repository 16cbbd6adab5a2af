package detectors

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

// codeReplica flags literal values repeated across job/step contexts and jobs whose
// steps are structurally identical.
type codeReplica struct {
	cat       *catalog.Catalog
	threshold int
}

func (d *codeReplica) Name() string { return NameCodeReplica }

func (d *codeReplica) Detect(_ context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	out := d.duplicateValues(wf)
	out = append(out, d.duplicateJobs(wf)...)
	return out, nil
}

type replicaContext struct {
	text string
	loc  findings.Location
}

func (d *codeReplica) duplicateValues(wf *workflow.Workflow) []findings.Finding {
	contexts := make(map[string][]replicaContext)
	var values []string
	add := func(value string, c replicaContext) {
		if _, ok := contexts[value]; !ok {
			values = append(values, value)
		}
		contexts[value] = append(contexts[value], c)
	}

	for _, job := range wf.Jobs {
		for _, v := range job.Env {
			add(v.Value, replicaContext{
				text: fmt.Sprintf("Job '%s' env variable '%s'", job.Name, v.Key),
				loc:  at(wf, job.Name, "", v.Line),
			})
		}
		for _, step := range job.Steps {
			name := step.DisplayName()
			for _, v := range step.Env {
				add(v.Value, replicaContext{
					text: fmt.Sprintf("Step '%s' env variable '%s' in job '%s' is replicated. "+
						"Consider use Global Env variables: Ex: Env: '%s': '%s'", name, v.Key, job.Name, v.Key, v.Value),
					loc: at(wf, job.Name, name, v.Line),
				})
			}
			for _, v := range step.With {
				add(v.Value, replicaContext{
					text: fmt.Sprintf("Step '%s' parameter '%s' in job '%s' is replicated. "+
						"Consider use Defaults params. Ex: Defaults: '%s': '%s'", name, v.Key, job.Name, v.Key, v.Value),
					loc: at(wf, job.Name, name, v.Line),
				})
			}
		}
	}

	var out []findings.Finding
	for _, value := range values {
		cs := contexts[value]
		if len(cs) < d.threshold {
			continue
		}
		texts := make([]string, 0, len(cs))
		for _, c := range cs {
			texts = append(texts, c.text)
		}
		out = append(out, findings.NewFrom(d.cat, findings.CodeReplica,
			fmt.Sprintf("Value '%s' is replicated in contexts: %s. If not an Env consider use Matrix to define "+
				"versions. Ex: 'strategy: matrix: {'python': ['3.6', '3.7', '3.8']}'", value, strings.Join(texts, ", ")),
			cs[0].loc).WithProperty("value", value).WithProperty("occurrences", strconv.Itoa(len(cs))))
	}
	return out
}

func (d *codeReplica) duplicateJobs(wf *workflow.Workflow) []findings.Finding {
	seen := make(map[string]string)
	var out []findings.Finding
	for _, job := range wf.Jobs {
		if len(job.Steps) == 0 {
			continue
		}
		sig := JobSignature(job)
		if first, ok := seen[sig]; ok {
			out = append(out, findings.NewFrom(d.cat, findings.CodeReplica,
				fmt.Sprintf("Job '%s' is replicated with job '%s'. Consider use reusable actions. You can find "+
					"examples in the documentation: https://docs.github.com/en/actions/using-workflows/reusing-workflows",
					job.Name, first),
				at(wf, job.Name, "", job.Line)))
			continue
		}
		seen[sig] = job.Name
	}
	return out
}

// JobSignature is the structural identity of a job: its steps joined in order, each as
// name-run-uses-sortedEnv sortedWith.
func JobSignature(job workflow.Job) string {
	parts := make([]string, 0, len(job.Steps))
	for _, step := range job.Steps {
		parts = append(parts, fmt.Sprintf("%s-%s-%s-%s%s",
			step.DisplayName(), step.Run, step.Uses, sortedPairs(step.Env), sortedPairs(step.With)))
	}
	return strings.Join(parts, "|")
}

func sortedPairs(env workflow.Env) string {
	pairs := make([]string, 0, len(env))
	for _, v := range env {
		pairs = append(pairs, fmt.Sprintf("(%q, %q)", v.Key, v.Value))
	}
	sort.Strings(pairs)
	return "[" + strings.Join(pairs, ", ") + "]"
}
