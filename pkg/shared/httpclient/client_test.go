package httpclient

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/gash-io/gash/pkg/shared/config"
)

func TestApplyHTTPClientConfig(t *testing.T) {
	verify := false
	tests := []struct {
		name      string
		input     *config.HTTPClient
		wantRetry int
		wantProxy string
		insecure  bool
		timeout   time.Duration
	}{
		{name: "nil uses defaults", input: nil, wantRetry: 5, timeout: 30 * time.Second},
		{name: "empty uses defaults", input: &config.HTTPClient{}, wantRetry: 5, timeout: 30 * time.Second},
		{
			name:      "overrides",
			input:     &config.HTTPClient{RetryCount: 2, Timeout: 3 * time.Second, Proxy: config.Proxy{Host: "http://proxy", Port: 8080}},
			wantRetry: 2,
			wantProxy: "http://proxy:8080",
			timeout:   3 * time.Second,
		},
		{
			name:      "tls verification disabled",
			input:     &config.HTTPClient{TLSClientConfig: config.TLSClientConfig{Verify: &verify}},
			wantRetry: 5,
			insecure:  true,
			timeout:   30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyHTTPClientConfig(tt.input)
			assert.Equal(t, tt.wantRetry, got.RetryCount)
			assert.Equal(t, tt.wantProxy, got.Proxy)
			assert.Equal(t, tt.timeout, got.Timeout)
			assert.Equal(t, tt.insecure, got.TLSClientConfig.InsecureSkipVerify)
		})
	}
}

func TestApplyHTTPClientConfigDoesNotShareDefaults(t *testing.T) {
	a := ApplyHTTPClientConfig(nil)
	a.TLSClientConfig.InsecureSkipVerify = true
	b := ApplyHTTPClientConfig(nil)
	assert.False(t, b.TLSClientConfig.InsecureSkipVerify)
}

func TestNewRetryableClient(t *testing.T) {
	cfg := &config.Config{HTTPClient: config.HTTPClient{RetryCount: 1, RetryWaitTime: 10 * time.Millisecond}}
	client := NewRetryableClient(hclog.NewNullLogger(), cfg)

	assert.Equal(t, 1, client.RetryMax)
	assert.Equal(t, 10*time.Millisecond, client.RetryWaitMin)
	assert.Equal(t, 5*time.Second, client.RetryWaitMax)
	assert.Equal(t, 30*time.Second, client.HTTPClient.Timeout)
}

func TestInitializeRestyClient(t *testing.T) {
	client := InitializeRestyClient(hclog.NewNullLogger(), &config.Config{})
	assert.Equal(t, 5, client.RetryCount)
}
