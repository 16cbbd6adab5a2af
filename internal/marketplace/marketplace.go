package marketplace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/patrickmn/go-cache"
	"golang.org/x/net/html"

	"github.com/gash-io/gash/pkg/shared/config"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
	"github.com/gash-io/gash/pkg/shared/httpclient"
)

// DefaultBaseURL is the listing root of GitHub Marketplace actions.
const DefaultBaseURL = "https://github.com/marketplace/actions/"

const verifiedClass = "octicon-verified"

// Checker scrapes marketplace listing pages for the verified-creator badge.
type Checker struct {
	client  *resty.Client
	baseURL string
	logger  hclog.Logger
	cache   *cache.Cache
}

// New builds a checker using the shared resty settings.
func New(logger hclog.Logger, cfg *config.Config) *Checker {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ttl := config.DefaultCacheTTL
	if cfg != nil {
		ttl = config.SetThen(cfg.GitHub.CacheTTL, ttl)
	}
	return &Checker{
		client:  httpclient.InitializeRestyClient(logger, cfg),
		baseURL: DefaultBaseURL,
		logger:  logger,
		cache:   cache.New(ttl, 2*ttl),
	}
}

// WithBaseURL points the checker at another listing root.
func (c *Checker) WithBaseURL(base string) *Checker {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c.baseURL = base
	return c
}

// HasVerifiedBadge reports whether the listing page of action carries the badge.
// A missing page means the action is not verified. Answers are cached, failures are not.
func (c *Checker) HasVerifiedBadge(ctx context.Context, action string) (bool, error) {
	key := c.baseURL + action
	if v, ok := c.cache.Get(key); ok {
		return v.(bool), nil
	}
	found, err := c.lookup(ctx, action)
	if err != nil {
		return false, err
	}
	c.cache.Set(key, found, cache.DefaultExpiration)
	return found, nil
}

func (c *Checker) lookup(ctx context.Context, action string) (bool, error) {
	op := "marketplace listing " + action
	resp, err := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(c.baseURL + url.PathEscape(action))
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, gasherrors.NewTransientError(op, err)
	}
	body := resp.RawBody()
	defer body.Close()

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		c.logger.Debug("marketplace page not found", "action", action)
		return false, nil
	case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return false, gasherrors.NewTransientError(op, fmt.Errorf("unexpected status %d", code))
	case code >= http.StatusBadRequest:
		return false, fmt.Errorf("%s: unexpected status %d", op, code)
	}

	found, err := hasVerifiedIcon(body)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return found, nil
}

// hasVerifiedIcon looks for an <svg> element whose class list contains the badge class.
func hasVerifiedIcon(r io.Reader) (bool, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return false, nil
			}
			return false, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "svg" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "class" {
					for _, class := range strings.Fields(string(val)) {
						if class == verifiedClass {
							return true, nil
						}
					}
				}
				if !more {
					break
				}
			}
		}
	}
}
