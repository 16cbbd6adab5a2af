package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullWorkflow = `name: CI
on:
  push:
    branches: [main, develop]
    tags:
      - v*
  workflow_dispatch:
    inputs:
      env:
        description: Target environment
        type: choice
        required: true
      dry:
        type: boolean
  workflow_run:
env:
  MODE: on
  RELEASE_DATE: 2024-01-01
  DEBUG: yes
permissions: write-all
concurrency:
  group: ci-${{ github.ref }}
  cancel-in-progress: true
defaults:
  run:
    shell: bash
jobs:
  build:
    runs-on: [self-hosted, linux]
    timeout-minutes: 15
    continue-on-error: ${{ matrix.experimental }}
    environment:
      name: prod
    permissions:
      contents: read
      packages: write
    strategy:
      fail-fast: false
      matrix:
        go: ['1.21', '1.22']
    services:
      db:
        image: postgres
        env:
          POSTGRES_PASSWORD: hunter2
        credentials:
          username: admin
    secrets: inherit
    needs: [lint]
    steps:
      - uses: actions/checkout@v4
      - name: Test
        id: test
        run: |
          go test ./...
          go vet ./...
        env:
          GOFLAGS: -mod=mod
        if: github.event_name == 'push' && matrix.go == '1.22'
        timeout-minutes: ${{ inputs.timeout }}
        with:
          cache: true
  lint:
    steps:
      - run: make lint
`

func TestParseFullWorkflow(t *testing.T) {
	wf, err := Parse("ci.yml", []byte(fullWorkflow))
	require.NoError(t, err)

	assert.Equal(t, "CI", wf.Name)
	assert.True(t, wf.HasName)
	assert.True(t, wf.HasOn)
	assert.True(t, wf.HasDefaults)
	assert.Equal(t, fullWorkflow, wf.Raw)
	assert.Equal(t, []string{"push", "workflow_dispatch", "workflow_run"}, wf.TriggerNames())

	push, ok := wf.Trigger(EventPush)
	require.True(t, ok)
	assert.Equal(t, []string{"main", "develop"}, push.Branches)
	assert.Equal(t, []string{"v*"}, push.Tags)

	dispatch, ok := wf.Trigger(EventWorkflowDispatch)
	require.True(t, ok)
	assert.False(t, dispatch.Empty)
	require.Len(t, dispatch.Inputs, 2)
	assert.Equal(t, "env", dispatch.Inputs[0].Name)
	assert.True(t, dispatch.Inputs[0].HasDescription)
	assert.Equal(t, "choice", dispatch.Inputs[0].Type)
	assert.True(t, dispatch.Inputs[0].IsRequired())
	assert.False(t, dispatch.Inputs[1].HasRequired)

	run, ok := wf.Trigger(EventWorkflowRun)
	require.True(t, ok)
	assert.True(t, run.Empty)

	// implicit typing is disabled
	assert.Equal(t, Env{
		{Key: "MODE", Value: "on", Line: 17},
		{Key: "RELEASE_DATE", Value: "2024-01-01", Line: 18},
		{Key: "DEBUG", Value: "yes", Line: 19},
	}, wf.Env)

	assert.True(t, wf.Permissions.IsScalar())
	assert.Equal(t, "write-all", wf.Permissions.Scalar)
	assert.Equal(t, "ci-${{ github.ref }}", wf.Concurrency.Group)
	assert.True(t, wf.Concurrency.GroupIsString)
	assert.Equal(t, "true", wf.Concurrency.CancelInProgress)

	branch, ok := wf.CriticalBranch()
	assert.True(t, ok)
	assert.Equal(t, "main", branch)

	require.Len(t, wf.Jobs, 2)
	build, ok := wf.Job("build")
	require.True(t, ok)
	assert.Equal(t, []string{"self-hosted", "linux"}, build.RunsOn.Labels)
	assert.True(t, build.RunsOn.Declared)
	assert.Equal(t, Timeout{Set: true, Raw: "15", Minutes: 15, Numeric: true}, build.Timeout)
	assert.Equal(t, "${{ matrix.experimental }}", build.ContinueOnError)
	assert.Equal(t, "prod", build.Environment)
	assert.False(t, build.Permissions.IsScalar())
	assert.Equal(t, "write", build.Permissions.Scopes[1].Value)
	assert.Equal(t, "false", build.Strategy.FailFast)
	assert.Equal(t, []string{"1.21", "1.22"}, build.Strategy.Matrix["go"])
	require.Len(t, build.Services, 1)
	assert.Equal(t, "postgres", build.Services[0].Image)
	assert.Equal(t, "hunter2", build.Services[0].Env[0].Value)
	assert.Equal(t, "admin", build.Services[0].Credentials[0].Value)
	assert.True(t, build.InheritSecrets)
	assert.Equal(t, []string{"lint"}, build.Needs)

	require.Len(t, build.Steps, 2)
	assert.Equal(t, UnnamedStep, build.Steps[0].DisplayName())
	assert.Equal(t, "actions/checkout@v4", build.Steps[0].Uses)
	test := build.Steps[1]
	assert.Equal(t, "Test", test.DisplayName())
	assert.Equal(t, "test", test.ID)
	assert.Equal(t, "go test ./...\ngo vet ./...\n", test.Run)
	assert.Equal(t, "github.event_name == 'push' && matrix.go == '1.22'", test.If)
	assert.True(t, test.Timeout.Set)
	assert.False(t, test.Timeout.Numeric)
	assert.Equal(t, "true", test.With[0].Value)

	lint, ok := wf.Job("lint")
	require.True(t, ok)
	assert.False(t, lint.RunsOn.Declared)
	assert.Equal(t, []string{DefaultRunner}, lint.RunsOn.Labels)
	assert.False(t, lint.Timeout.Set)
	assert.False(t, lint.HasEnvironment)
}

func TestParseTriggerForms(t *testing.T) {
	tests := []struct {
		name   string
		on     string
		events []string
		empty  []bool
	}{
		{name: "scalar", on: "on: push", events: []string{"push"}, empty: []bool{true}},
		{name: "list", on: "on: [push, pull_request]", events: []string{"push", "pull_request"}, empty: []bool{true, true}},
		{name: "map", on: "on:\n  workflow_call:\n  push:\n    branches: [main]", events: []string{"workflow_call", "push"}, empty: []bool{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := Parse("t.yml", []byte(tt.on+"\njobs: {}\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.events, wf.TriggerNames())
			for i, tr := range wf.Triggers {
				assert.Equal(t, tt.empty[i], tr.Empty, tr.Event)
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	wf, err := Parse("t.yml", []byte("jobs:\n  a:\n    steps:\n      - run: echo\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultName, wf.Name)
	assert.False(t, wf.HasName)
	assert.False(t, wf.HasOn)
	assert.False(t, wf.HasDefaults)
	assert.Empty(t, wf.Env)
	assert.False(t, wf.Permissions.Declared)
	assert.False(t, wf.Concurrency.Declared)
	assert.Empty(t, wf.Jobs[0].If)
	assert.Empty(t, wf.Jobs[0].Steps[0].Env)
}

func TestParseNullRun(t *testing.T) {
	wf, err := Parse("t.yml", []byte("jobs:\n  a:\n    steps:\n      - name: empty\n        run:\n      - run: ~\n      - run: \"\"\n"))
	require.NoError(t, err)
	steps := wf.Jobs[0].Steps
	require.Len(t, steps, 3)
	assert.False(t, steps[0].HasRun)
	assert.False(t, steps[1].HasRun)
	assert.True(t, steps[2].HasRun)
	assert.Empty(t, steps[2].Run)
}

func TestParseConcurrencyScalar(t *testing.T) {
	wf, err := Parse("t.yml", []byte("concurrency: deploy\njobs: {}\n"))
	require.NoError(t, err)
	assert.True(t, wf.Concurrency.HasGroup)
	assert.Equal(t, "deploy", wf.Concurrency.Group)
	assert.False(t, wf.Concurrency.HasCancel)

	wf, err = Parse("t.yml", []byte("concurrency:\n  group: 42\njobs: {}\n"))
	require.NoError(t, err)
	assert.False(t, wf.Concurrency.GroupIsString)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine int
		contains string
	}{
		{name: "empty", content: "", contains: "empty document"},
		{name: "syntax", content: "name: a\n  bad: [\n", contains: "parse bad.yml"},
		{name: "not a mapping", content: "- a\n- b\n", wantLine: 1, contains: "top level must be a mapping"},
		{name: "duplicate env", content: "env:\n  A: 1\n  A: 2\n", wantLine: 3, contains: `duplicate key "A"`},
		{name: "scalar job", content: "jobs:\n  build: nope\n", wantLine: 2, contains: `job "build" must be a mapping`},
		{name: "steps not a list", content: "jobs:\n  build:\n    steps: x\n", wantLine: 3, contains: "steps must be a sequence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yml", []byte(tt.content))
			require.Error(t, err)
			assert.True(t, IsParseError(err))
			assert.ErrorContains(t, err, tt.contains)
			if tt.wantLine > 0 {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.wantLine, pe.Line)
			}
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	a, err := Parse("ci.yml", []byte(fullWorkflow))
	require.NoError(t, err)
	b, err := Parse("ci.yml", []byte(fullWorkflow))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ci.yml")
	require.NoError(t, os.WriteFile(path, []byte(fullWorkflow), 0644))

	wf, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ci.yml", wf.FileName())

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
	assert.False(t, IsParseError(err))
}
