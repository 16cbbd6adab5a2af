package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/gash-io/gash/pkg/shared/config"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
	"github.com/gash-io/gash/pkg/shared/httpclient"
)

// Client talks to the GitHub REST API. Calls are paced by a token bucket and
// verification/advisory lookups are memoized for the cache TTL.
type Client struct {
	gh      *github.Client
	logger  hclog.Logger
	limiter *rate.Limiter
	cache   *cache.Cache
	token   string
}

// New builds a client from the global config. An empty token gives anonymous access.
func New(ctx context.Context, logger hclog.Logger, cfg *config.Config, token string) (*Client, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	rc := httpclient.NewRetryableClient(logger.Named("http"), cfg)
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		rc.HTTPClient.Transport = &oauth2.Transport{Source: ts, Base: rc.HTTPClient.Transport}
	}

	gh := github.NewClient(rc.StandardClient())
	if cfg.GitHub.APIURL != "" {
		base, err := url.Parse(cfg.GitHub.APIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url %q: %w", cfg.GitHub.APIURL, err)
		}
		gh.BaseURL = base
	}

	rps := config.SetThen(cfg.GitHub.RequestsPerSecond, config.DefaultRequestsPerSecond)
	ttl := config.SetThen(cfg.GitHub.CacheTTL, config.DefaultCacheTTL)

	return &Client{
		gh:      gh,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cache:   cache.New(ttl, 2*ttl),
		token:   token,
	}, nil
}

// RateStatus is the core API quota of the current token.
type RateStatus struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimit returns the core quota.
func (c *Client) RateLimit(ctx context.Context) (RateStatus, error) {
	if err := c.wait(ctx); err != nil {
		return RateStatus{}, err
	}
	limits, resp, err := c.gh.RateLimits(ctx)
	if err != nil {
		return RateStatus{}, classify("rate limit", resp, err)
	}
	core := limits.GetCore()
	if core == nil {
		return RateStatus{}, fmt.Errorf("rate limit: response has no core quota")
	}
	return RateStatus{Limit: core.Limit, Remaining: core.Remaining, Reset: core.Reset.Time}, nil
}

// ValidateToken checks the token before a session starts. A missing or rejected token and
// an exhausted quota are all fatal.
func (c *Client) ValidateToken(ctx context.Context) (RateStatus, error) {
	if c.token == "" {
		return RateStatus{}, gasherrors.NewFatalAuthError("no GitHub token provided", nil)
	}
	status, err := c.RateLimit(ctx)
	if err != nil {
		var notFound *gasherrors.NotFoundError
		if errors.As(err, &notFound) {
			return status, gasherrors.NewFatalAuthError("rate limit endpoint unavailable", err)
		}
		return status, err
	}
	if status.Remaining == 0 {
		return status, gasherrors.NewFatalAuthError(
			fmt.Sprintf("API rate limit exhausted, resets at %s", status.Reset.Format(time.RFC3339)), nil)
	}
	c.logger.Info("GitHub token validated", "limit", status.Limit, "remaining", status.Remaining)
	return status, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// get issues a raw GET for endpoints the typed client does not cover.
func (c *Client) get(ctx context.Context, op, path string, v interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req, err := c.gh.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.gh.Do(ctx, req, v)
	return classify(op, resp, err)
}

// classify maps a go-github failure onto the shared error taxonomy.
func classify(op string, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return gasherrors.NewFatalAuthError("API rate limit exhausted", err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return gasherrors.NewTransientError(op, err)
	}

	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	switch {
	case status == http.StatusUnauthorized:
		return gasherrors.NewFatalAuthError("token rejected", err)
	case status == http.StatusNotFound:
		return gasherrors.NewNotFoundError(op)
	case status == 0, status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return gasherrors.NewTransientError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
