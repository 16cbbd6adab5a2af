package sarif

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/pkg/shared/files"
)

const (
	ToolName       = "gash"
	InformationURI = "https://github.com/gash-io/gash"
)

// Report is a SARIF report with a single gash run.
type Report struct {
	*sarif.Report
	run    *sarif.Run
	logger hclog.Logger
}

// NewReport starts a report whose run is identified by runID.
func NewReport(logger hclog.Logger, version, runID string) (*Report, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(ToolName, InformationURI)
	if version != "" {
		run.Tool.Driver.Version = &version
	}
	if runID != "" {
		id := runID
		run.AutomationDetails = &sarif.RunAutomationDetails{ID: &id}
	}
	report.AddRun(run)

	return &Report{Report: report, run: run, logger: logger}, nil
}

// AddFindings adds one result per finding of source. Rules are keyed by category.
func (r *Report) AddFindings(source string, groups []findings.Group) {
	for _, g := range groups {
		if g.Error != "" {
			r.logger.Warn("detector failed, no results recorded", "detector", g.Detector, "source", source, "error", g.Error)
			continue
		}
		for _, f := range g.Findings {
			r.addFinding(source, g.Detector, f)
		}
	}
}

func (r *Report) addFinding(source, detector string, f findings.Finding) {
	level := ToLevel(f.Severity)
	ruleID := string(f.Category)
	rule := r.run.AddRule(ruleID).
		WithDescription(description(f)).
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})
	rule.WithShortDescription(sarif.NewMultiformatMessageString(ruleID))

	uri := filepath.ToSlash(source)
	r.run.AddDistinctArtifact(uri)

	region := sarif.NewRegion()
	if f.Location.Line > 0 {
		region = region.WithStartLine(f.Location.Line)
	}
	location := sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
			WithRegion(region),
	)

	result := sarif.NewRuleResult(rule.ID).
		WithMessage(sarif.NewTextMessage(f.Message)).
		WithLevel(level).
		WithLocations([]*sarif.Location{location})
	result.Properties = map[string]interface{}{
		"detector":    detector,
		"severity":    string(f.Severity),
		"fingerprint": fingerprint(uri, f),
	}
	if f.Location.Job != "" {
		result.Properties["job"] = f.Location.Job
	}
	if f.Location.Step != "" {
		result.Properties["step"] = f.Location.Step
	}
	for _, p := range f.Properties {
		result.Properties[p.Name] = p.Value
	}
	r.run.AddResult(result)
}

func description(f findings.Finding) string {
	if f.Justification != "" {
		return f.Justification
	}
	if cat, ok := catalog.Default().Category(string(f.Category)); ok {
		return cat.Justification
	}
	return string(f.Category)
}

// ToLevel maps a severity onto a SARIF level.
func ToLevel(s findings.Severity) string {
	switch s {
	case findings.SeverityCritical, findings.SeverityHigh:
		return "error"
	case findings.SeverityMedium:
		return "warning"
	case findings.SeverityLow:
		return "note"
	default:
		return "none"
	}
}

// CollectSeverityInfo counts results per level, plus a total.
func (r *Report) CollectSeverityInfo() map[string]int {
	info := map[string]int{"error": 0, "warning": 0, "note": 0, "total": 0}
	for _, run := range r.Runs {
		for _, result := range run.Results {
			level := "none"
			if result.Level != nil {
				level = *result.Level
			}
			info[level]++
			info["total"]++
		}
	}
	return info
}

// SortResultsByLevel orders results error, warning, note, none. Equal levels keep their order.
func (r *Report) SortResultsByLevel() {
	levelOrder := map[string]int{
		"error":   0,
		"warning": 1,
		"note":    2,
		"none":    3,
	}
	rank := func(res *sarif.Result) int {
		if res.Level == nil {
			return len(levelOrder)
		}
		if v, ok := levelOrder[*res.Level]; ok {
			return v
		}
		return len(levelOrder)
	}
	for _, run := range r.Runs {
		results := run.Results
		sort.SliceStable(results, func(i, j int) bool {
			return rank(results[i]) < rank(results[j])
		})
	}
}

// Write pretty prints the report.
func (r *Report) Write(w io.Writer) error {
	return r.PrettyWrite(w)
}

// WriteFile pretty prints the report to path, creating parent folders.
func (r *Report) WriteFile(path string) error {
	if err := files.CreateFolderIfNotExists(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error writing SARIF report: %w", err)
	}
	defer f.Close()
	return r.Write(f)
}

// fingerprint identifies a finding independently of its message wording.
func fingerprint(uri string, f findings.Finding) string {
	return calculateMD5Hash(fmt.Sprintf("%s|%s|%s|%s|%d", uri, f.Category, f.Location.Job, f.Location.Step, f.Location.Line))
}

func calculateMD5Hash(text string) string {
	hash := md5.New()
	io.WriteString(hash, text)
	return hex.EncodeToString(hash.Sum(nil))
}
