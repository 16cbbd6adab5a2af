package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gash-io/gash/internal/replay"
	"github.com/gash-io/gash/internal/retry"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
)

type fakeReplayer struct {
	errs  map[string]error
	calls map[string]int
}

func (f *fakeReplayer) ReplayURL(_ context.Context, rawURL string) (replay.Summary, error) {
	f.calls[rawURL]++
	if err, ok := f.errs[rawURL]; ok {
		return replay.Summary{}, err
	}
	return replay.Summary{Commits: 1, Analyzed: 1}, nil
}

func TestValidateBatchArgs(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "repos.csv")
	require.NoError(t, os.WriteFile(tmpFile, []byte("Owner;Repo;URL\n"), 0644))

	tests := []struct {
		name    string
		options RunOptionsBatch
		args    []string
		wantErr string
	}{
		{name: "Valid", options: RunOptionsBatch{File: tmpFile, Column: 2, Delimiter: ";"}},
		{name: "Valid comma", options: RunOptionsBatch{File: tmpFile, Column: 0, Delimiter: ","}},
		{name: "Positional", options: RunOptionsBatch{File: tmpFile, Column: 2, Delimiter: ";"}, args: []string{"x"}, wantErr: "positional arguments are not supported"},
		{name: "No file", options: RunOptionsBatch{Column: 2, Delimiter: ";"}, wantErr: "the 'file' flag must be specified"},
		{name: "Missing file", options: RunOptionsBatch{File: tmpFile + ".absent", Column: 2, Delimiter: ";"}, wantErr: "failed to validate path"},
		{name: "No column", options: RunOptionsBatch{File: tmpFile, Column: -1, Delimiter: ";"}, wantErr: "the 'column' flag must be specified"},
		{name: "Long delimiter", options: RunOptionsBatch{File: tmpFile, Column: 1, Delimiter: ";;"}, wantErr: "single character"},
		{name: "Empty delimiter", options: RunOptionsBatch{File: tmpFile, Column: 1}, wantErr: "single character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := tt.options
			err := validateBatchArgs(&options, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReplayAllContinuesPastFailures(t *testing.T) {
	r := &fakeReplayer{
		errs: map[string]error{
			"https://github.com/a/flaky":  gasherrors.NewTransientError("clone", errors.New("502")),
			"https://github.com/a/broken": errors.New("no such repository"),
		},
		calls: map[string]int{},
	}
	urls := []string{"https://github.com/a/one", "https://github.com/a/flaky", "https://github.com/a/broken", "https://github.com/a/two"}

	result, err := replayAll(context.Background(), r, urls, retry.Default(hclog.NewNullLogger()).NoWait(), hclog.NewNullLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://github.com/a/one", "https://github.com/a/two"}, result.Succeeded)
	assert.Equal(t, []string{"https://github.com/a/flaky", "https://github.com/a/broken"}, result.Failed)
	assert.Equal(t, retry.DefaultMaxAttempts, r.calls["https://github.com/a/flaky"])
	assert.Equal(t, 1, r.calls["https://github.com/a/broken"])
}

func TestReplayAllStopsOnFatalAuth(t *testing.T) {
	r := &fakeReplayer{
		errs:  map[string]error{"https://github.com/a/one": gasherrors.NewFatalAuthError("rate limit exhausted", nil)},
		calls: map[string]int{},
	}
	urls := []string{"https://github.com/a/one", "https://github.com/a/two"}

	result, err := replayAll(context.Background(), r, urls, retry.Default(hclog.NewNullLogger()).NoWait(), hclog.NewNullLogger())
	assert.True(t, gasherrors.IsFatal(err))
	assert.Empty(t, result.Succeeded)
	assert.Zero(t, r.calls["https://github.com/a/two"])
}
