package detectors

import (
	"regexp"

	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

var (
	safeSecretRe  = regexp.MustCompile(`\$\{\{\s*secrets\.\w+\s*\}\}`)
	httpRe        = regexp.MustCompile(`(?i)\bhttp://\S+`)
	usesRe        = regexp.MustCompile(`^([^/]+)/([^@]+)@(.+)`)
	fuzzyRe       = regexp.MustCompile(`@v?\d+\.(?:x|\*|\d+\.x|\d+\.\*|latest|\d+\.\d+\.\*)|@latest\b`)
	parenRe       = regexp.MustCompile(`\(([^)]+)\)`)
	logicalOpRe   = regexp.MustCompile(`(\|\||&&)`)
	expressionRe  = regexp.MustCompile(`^\$\{\{.*\}\}`)
	templateVarRe = regexp.MustCompile(`\$\{\{\s*([^}\s]+)\s*\}\}`)
)

func at(wf *workflow.Workflow, job, step string, line int) findings.Location {
	return findings.Location{File: wf.Source, Job: job, Step: step, Line: line}
}

func firstLine(lines ...int) int {
	for _, l := range lines {
		if l > 0 {
			return l
		}
	}
	return 0
}
