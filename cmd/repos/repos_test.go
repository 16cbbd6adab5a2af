package repos

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/gash-io/gash/internal/mining"
	"github.com/gash-io/gash/pkg/shared/config"
)

func TestValidateReposArgs(t *testing.T) {
	tests := []struct {
		name    string
		options RunOptionsRepos
		args    []string
		wantErr string
	}{
		{name: "Defaults", options: RunOptionsRepos{Age: mining.DefaultAgeYears, Stars: mining.DefaultStars}},
		{name: "Zero filters", options: RunOptionsRepos{}},
		{name: "Positional", options: RunOptionsRepos{Age: 5}, args: []string{"x"}, wantErr: "positional arguments are not supported"},
		{name: "Negative age", options: RunOptionsRepos{Age: -1}, wantErr: "the 'age' flag must not be negative"},
		{name: "Negative stars", options: RunOptionsRepos{Stars: -5}, wantErr: "the 'stars' flag must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := tt.options
			err := validateReposArgs(&options, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMinerOptions(t *testing.T) {
	opts := minerOptions(&config.Config{}, hclog.NewNullLogger())
	assert.Equal(t, mining.DefaultWorkers, opts.Workers)
	assert.Equal(t, mining.DefaultMaxPages, opts.MaxPages)
	assert.Equal(t, mining.DefaultPerPage, opts.PerPage)

	opts = minerOptions(&config.Config{Mining: config.Mining{Workers: 4, MaxPages: 2, PerPage: 50}}, hclog.NewNullLogger())
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, 2, opts.MaxPages)
	assert.Equal(t, 50, opts.PerPage)
	assert.Equal(t, 3, opts.Retry.MaxAttempts)
}
