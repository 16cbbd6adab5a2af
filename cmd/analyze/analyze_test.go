package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/workflow"
)

const validWorkflow = `name: ci
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - run: make
`

type fakeBattery struct{}

func (fakeBattery) Run(_ context.Context, wf *workflow.Workflow) []findings.Group {
	return []findings.Group{{
		Detector: "HardCodedSecret",
		Findings: []findings.Finding{findings.New(findings.Category("HardCodedSecret"), "secret in "+wf.Name, findings.Location{Line: 3})},
	}}
}

func TestValidateAnalyzeArgs(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "ci.yml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(validWorkflow), 0644))

	tests := []struct {
		name    string
		options RunOptionsAnalyze
		args    []string
		wantErr string
	}{
		{
			name:    "Valid file",
			options: RunOptionsAnalyze{File: tmpFile, Threads: 1, Format: FormatText},
		},
		{
			name:    "Valid dir with sarif",
			options: RunOptionsAnalyze{Dir: tmpDir, Threads: 4, Format: FormatSARIF},
		},
		{
			name:    "Valid detector subset",
			options: RunOptionsAnalyze{File: tmpFile, Threads: 1, Format: FormatJSON, Detectors: []string{"HardCodedSecret"}},
		},
		{
			name:    "Positional argument",
			options: RunOptionsAnalyze{File: tmpFile, Threads: 1, Format: FormatText},
			args:    []string{"extra"},
			wantErr: "positional arguments are not supported",
		},
		{
			name:    "Neither file nor dir",
			options: RunOptionsAnalyze{Threads: 1, Format: FormatText},
			wantErr: "either 'file' or 'dir' flag must be specified",
		},
		{
			name:    "Both file and dir",
			options: RunOptionsAnalyze{File: tmpFile, Dir: tmpDir, Threads: 1, Format: FormatText},
			wantErr: "you cannot use 'file' and 'dir' flags together",
		},
		{
			name:    "File is a directory",
			options: RunOptionsAnalyze{File: tmpDir, Threads: 1, Format: FormatText},
			wantErr: "is a directory",
		},
		{
			name:    "Dir is a file",
			options: RunOptionsAnalyze{Dir: tmpFile, Threads: 1, Format: FormatText},
			wantErr: "is not a directory",
		},
		{
			name:    "Missing file",
			options: RunOptionsAnalyze{File: filepath.Join(tmpDir, "absent.yml"), Threads: 1, Format: FormatText},
			wantErr: "failed to validate path",
		},
		{
			name:    "Zero threads",
			options: RunOptionsAnalyze{Dir: tmpDir, Threads: 0, Format: FormatText},
			wantErr: "the 'threads' flag must be a positive integer",
		},
		{
			name:    "Unknown format",
			options: RunOptionsAnalyze{File: tmpFile, Threads: 1, Format: "xml"},
			wantErr: "unknown format: xml",
		},
		{
			name:    "Unknown detector",
			options: RunOptionsAnalyze{File: tmpFile, Threads: 1, Format: FormatText, Detectors: []string{"Nope"}},
			wantErr: "unknown detector: Nope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := tt.options
			err := validateAnalyzeArgs(&options, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestAnalyzeFileSurfacesParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("on: [push\n"), 0644))

	a := &analyzer{runner: fakeBattery{}, logger: hclog.NewNullLogger()}
	_, err := a.analyzeFile(context.Background(), path)
	assert.True(t, workflow.IsParseError(err))
}

func TestAnalyzeDirContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	wfDir := filepath.Join(root, ".github", "workflows")
	require.NoError(t, os.MkdirAll(wfDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(wfDir, "a.yml"), []byte(validWorkflow), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(wfDir, "b.yaml"), []byte("on: [push\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(wfDir, "c.yml"), []byte(validWorkflow), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# readme"), 0644))

	a := &analyzer{runner: fakeBattery{}, logger: hclog.NewNullLogger()}
	reports, err := a.analyzeDir(context.Background(), root, 2)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, filepath.Join(wfDir, "a.yml"), reports[0].Source)
	assert.Empty(t, reports[0].Error)
	assert.Equal(t, 1, findings.Count(reports[0].Groups))
	assert.NotEmpty(t, reports[1].Error)
	assert.Empty(t, reports[1].Groups)
	assert.Empty(t, reports[2].Error)
}

func TestWriteReports(t *testing.T) {
	reports := []fileReport{
		{Source: "ci.yml", Groups: fakeBattery{}.Run(context.Background(), &workflow.Workflow{Name: "ci"})},
		{Source: "broken.yml", Error: "parse failed"},
	}

	t.Run("json to writer", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReports(&buf, &RunOptionsAnalyze{Format: FormatJSON}, reports, hclog.NewNullLogger()))
		var decoded []fileReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, "secret in ci", decoded[0].Groups[0].Findings[0].Message)
		assert.Equal(t, "parse failed", decoded[1].Error)
	})

	t.Run("text to writer", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReports(&buf, &RunOptionsAnalyze{Format: FormatText}, reports, hclog.NewNullLogger()))
		assert.Contains(t, buf.String(), "secret in ci")
		assert.Contains(t, buf.String(), "broken.yml: error: parse failed")
	})

	t.Run("sarif to file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "reports", "gash.sarif")
		var buf bytes.Buffer
		require.NoError(t, writeReports(&buf, &RunOptionsAnalyze{Format: FormatSARIF, Output: out}, reports, hclog.NewNullLogger()))
		assert.Empty(t, buf.String())

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &doc))
		runs := doc["runs"].([]interface{})
		require.Len(t, runs, 1)
		results := runs[0].(map[string]interface{})["results"].([]interface{})
		assert.Len(t, results, 1)
	})

	t.Run("json into existing folder", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeReports(&bytes.Buffer{}, &RunOptionsAnalyze{Format: FormatJSON, Output: dir}, reports, hclog.NewNullLogger()))
		assert.FileExists(t, filepath.Join(dir, "gash_report.json"))
	})

	t.Run("text into new folder without extension", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		require.NoError(t, writeReports(&bytes.Buffer{}, &RunOptionsAnalyze{Format: FormatText, Output: dir}, reports, hclog.NewNullLogger()))
		data, err := os.ReadFile(filepath.Join(dir, "gash_report.txt"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "secret in ci")
	})
}
