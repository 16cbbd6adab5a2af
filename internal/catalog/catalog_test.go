package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.NotNil(t, c)
	assert.Same(t, c, Default())
	assert.Equal(t, 1, c.Version)

	for _, name := range []string{
		"HardCodedSecret", "ExcessivePrivilege", "UnsecureProtocol", "UntrustedDependency",
		"VulnerableDependency", "RemoteTriggerMisconfiguration", "Misconfiguration", "FuzzyVersion",
		"UnnecessaryComplexity", "CodeReplica", "ContinueOnError", "ErrorHandling", "LongBlock",
		"GlobalVariable", "ConditionComplexity",
	} {
		cat, ok := c.Category(name)
		assert.True(t, ok, name)
		assert.NotEmpty(t, cat.Abbreviation, name)
		assert.NotEmpty(t, cat.Justification, name)
	}

	assert.Equal(t, Thresholds{
		Replica: 2, MaxGlobalVars: 10, MaxInputs: 15, MaxJobs: 10, MaxSteps: 10,
		MaxRunLines: 20, MaxAndClauses: 2, ShortTimeout: 1, LongTimeout: 10,
	}, c.Thresholds)
}

func TestMatchesSecret(t *testing.T) {
	c := Default()
	tests := []struct {
		text string
		want bool
	}{
		{"API_KEY", true},
		{"db_password", true},
		{"echo 'my_secret_key'", true},
		{"my token here", true},
		{"NODE_VERSION", false},
		{"go build ./...", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.MatchesSecret(tt.text))
		})
	}
}

func TestSensitiveAndGenericNames(t *testing.T) {
	c := Default()
	assert.True(t, c.ContainsSensitive("postgres://admin@db"))
	assert.False(t, c.ContainsSensitive("hello"))
	assert.True(t, c.IsSensitiveName("MY_TOKEN"))
	assert.False(t, c.IsSensitiveName("secrets.MY_TOKEN"))
	assert.True(t, c.IsSensitiveName("password"))
	assert.False(t, c.IsSensitiveName("github.ref"))
	assert.True(t, c.IsGenericName("Value"))
	assert.False(t, c.IsGenericName("release"))
	assert.True(t, c.IsElevated("write-all"))
	assert.False(t, c.IsElevated("read"))
	assert.True(t, c.IsValidInputType("choice"))
	assert.False(t, c.IsValidInputType("list"))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "no version", data: "categories:\n  A:\n    severity: Low\n    abbreviation: A\n", wantErr: "version must be set"},
		{name: "no categories", data: "version: 1\n", wantErr: "no categories"},
		{name: "missing abbreviation", data: "version: 1\ncategories:\n  A:\n    severity: Low\n", wantErr: "needs a severity and an abbreviation"},
		{name: "bad regex", data: "version: 1\ncategories:\n  A:\n    severity: Low\n    abbreviation: A\nregex_patterns: ['(']\n", wantErr: "invalid catalog pattern"},
		{name: "unknown key", data: "version: 1\nbogus: true\n", wantErr: "failed to decode catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
