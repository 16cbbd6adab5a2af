package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/cmd/version"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/sarif"
	"github.com/gash-io/gash/internal/workflow"
	"github.com/gash-io/gash/pkg/shared"
	"github.com/gash-io/gash/pkg/shared/files"
)

// battery runs the configured detectors over one workflow.
type battery interface {
	Run(ctx context.Context, wf *workflow.Workflow) []findings.Group
}

// fileReport is the analysis outcome of one workflow file.
type fileReport struct {
	Source string           `json:"source"`
	Groups []findings.Group `json:"groups,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type analyzer struct {
	runner battery
	logger hclog.Logger
}

// analyzeFile parses path and runs every detector over it. Parse errors are returned.
func (a *analyzer) analyzeFile(ctx context.Context, path string) (fileReport, error) {
	wf, err := workflow.ParseFile(path)
	if err != nil {
		return fileReport{Source: path}, err
	}
	return fileReport{Source: path, Groups: a.runner.Run(ctx, wf)}, nil
}

// analyzeDir analyzes every workflow file below root. A failing file is logged and kept in
// the result with its error; it never stops the rest of the batch.
func (a *analyzer) analyzeDir(ctx context.Context, root string, threads int) ([]fileReport, error) {
	paths, err := files.FindWorkflowFiles(root)
	if err != nil {
		return nil, err
	}
	a.logger.Info("analyzing workflow files", "dir", root, "files", len(paths), "threads", threads)

	reports := make([]fileReport, len(paths))
	var mu sync.Mutex
	failed := 0
	shared.ForEveryStringWithBoundedGoroutines(threads, paths, func(i int, path string) {
		report, err := a.analyzeFile(ctx, path)
		if err != nil {
			a.logger.Warn("skipping file", "file", path, "error", err)
			report.Error = err.Error()
			mu.Lock()
			failed++
			mu.Unlock()
		}
		reports[i] = report
	})

	a.logger.Info("directory analyzed", "dir", root, "succeeded", len(paths)-failed, "failed", failed)
	return reports, nil
}

// writeReports renders reports in the requested format to the output file or to w.
func writeReports(w io.Writer, options *RunOptionsAnalyze, reports []fileReport, logger hclog.Logger) error {
	path := ""
	if options.Output != "" {
		var err error
		path, _, err = files.DetermineFileFullPath(options.Output, reportFileName(options.Format))
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	switch options.Format {
	case FormatJSON:
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	case FormatSARIF:
		report, err := sarif.NewReport(logger, version.CoreVersion, uuid.New().String())
		if err != nil {
			return err
		}
		for _, r := range reports {
			if r.Error != "" {
				continue
			}
			report.AddFindings(r.Source, r.Groups)
		}
		report.SortResultsByLevel()
		logger.Debug("sarif severities", "levels", report.CollectSeverityInfo())
		if path != "" {
			if err := report.WriteFile(path); err != nil {
				return err
			}
			logger.Info("report written", "path", path, "format", options.Format)
			return nil
		}
		if err := report.Write(&buf); err != nil {
			return err
		}
	default:
		for _, r := range reports {
			if r.Error != "" {
				fmt.Fprintf(&buf, "%s: error: %s\n", r.Source, r.Error)
				continue
			}
			if err := findings.WriteText(&buf, r.Source, r.Groups); err != nil {
				return err
			}
		}
	}

	if path != "" {
		if err := files.WriteFile(path, buf.Bytes()); err != nil {
			return err
		}
		logger.Info("report written", "path", path, "format", options.Format)
		return nil
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// reportFileName is used when --output names a folder.
func reportFileName(format string) string {
	ext := format
	if format == FormatText {
		ext = "txt"
	}
	return "gash_report." + ext
}
