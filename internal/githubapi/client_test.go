package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gash-io/gash/internal/detectors"
	"github.com/gash-io/gash/pkg/shared/config"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
)

var _ detectors.Verifier = (*Client)(nil)

func newTestClient(t *testing.T, mux *http.ServeMux, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		HTTPClient: config.HTTPClient{RetryCount: 1, RetryWaitTime: time.Millisecond, RetryMaxWaitTime: time.Millisecond},
		GitHub:     config.GitHub{APIURL: srv.URL + "/", RequestsPerSecond: 1000},
	}
	c, err := New(context.Background(), hclog.NewNullLogger(), cfg, token)
	require.NoError(t, err)
	return c
}

func rateLimitHandler(remaining int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"resources":{"core":{"limit":5000,"remaining":%d,"reset":1700000000}}}`, remaining)
	}
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		handler   http.HandlerFunc
		wantFatal bool
	}{
		{name: "valid", token: "t", handler: rateLimitHandler(4999)},
		{name: "missing token", token: "", handler: rateLimitHandler(4999), wantFatal: true},
		{name: "exhausted", token: "t", handler: rateLimitHandler(0), wantFatal: true},
		{
			name:  "rejected",
			token: "bad",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"message":"Bad credentials"}`)
			},
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/rate_limit", tt.handler)
			c := newTestClient(t, mux, tt.token)

			status, err := c.ValidateToken(context.Background())
			if tt.wantFatal {
				require.Error(t, err)
				assert.True(t, gasherrors.IsFatal(err), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 5000, status.Limit)
			assert.Equal(t, 4999, status.Remaining)
		})
	}
}

func TestValidateTokenSendsBearer(t *testing.T) {
	var auth string
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		rateLimitHandler(10)(w, r)
	})
	c := newTestClient(t, mux, "secret-token")

	_, err := c.ValidateToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", auth)
}

func TestOwnerVerified(t *testing.T) {
	var orgCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/actions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&orgCalls, 1)
		fmt.Fprint(w, `{"login":"actions","is_verified":true}`)
	})
	mux.HandleFunc("/orgs/octocat", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"octocat","type":"User"}`)
	})
	mux.HandleFunc("/orgs/ghost", http.NotFound)
	mux.HandleFunc("/users/ghost", http.NotFound)
	c := newTestClient(t, mux, "t")

	ok, err := c.OwnerVerified(context.Background(), "actions")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.OwnerVerified(context.Background(), "actions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&orgCalls))

	ok, err = c.OwnerVerified(context.Background(), "octocat")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.OwnerVerified(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnerVerifiedServerErrorIsRetryable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/flaky", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux, "t")

	_, err := c.OwnerVerified(context.Background(), "flaky")
	require.Error(t, err)
	assert.True(t, gasherrors.IsRetryable(err), err.Error())
}

func TestAdvisories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tool/security-advisories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"ghsa_id":"GHSA-aaaa","severity":"high","summary":"token leak"}]`)
	})
	mux.HandleFunc("/repos/acme/clean/security-advisories", http.NotFound)
	c := newTestClient(t, mux, "t")

	got, err := c.Advisories(context.Background(), "acme", "tool")
	require.NoError(t, err)
	assert.Equal(t, []string{"GHSA-aaaa (high): token leak"}, got)

	got, err = c.Advisories(context.Background(), "acme", "clean")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCommitAndIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/app/commits/abc123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"abc123","author":{"login":"dev","type":"User"},"committer":{"login":"web-flow","type":"Bot"},
			"commit":{"tree":{"sha":"tree1"}},"files":[{"filename":".github/workflows/ci.yml"},{"filename":"README.md"}]}`)
	})
	mux.HandleFunc("/repos/acme/app/issues/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number":42,"title":"Fix CI","state":"closed","body":"details",
			"user":{"login":"dev","type":"User"},"author_association":"MEMBER",
			"created_at":"2024-01-02T03:04:05Z","closed_at":"2024-01-03T00:00:00Z",
			"closed_by":{"login":"lead","type":"User"},
			"labels":[{"name":"ci"},{"name":"bug"}],
			"assignees":[{"login":"rev","type":"User"}],
			"pull_request":{"url":"https://api.github.com/repos/acme/app/pulls/42"},
			"milestone":{"title":"v1"}}`)
	})
	mux.HandleFunc("/repos/acme/app/issues/404", http.NotFound)
	c := newTestClient(t, mux, "t")

	commit, err := c.Commit(context.Background(), "acme", "app", "abc123")
	require.NoError(t, err)
	assert.Equal(t, CommitInfo{
		SHA:           "abc123",
		AuthorType:    "User",
		CommitterType: "Bot",
		Tree:          "tree1",
		Files:         []string{".github/workflows/ci.yml", "README.md"},
	}, commit)

	issue, err := c.Issue(context.Background(), "acme", "app", 42)
	require.NoError(t, err)
	assert.Equal(t, "Fix CI", issue.Title)
	assert.Equal(t, "MEMBER", issue.CreatorAssociation)
	assert.Equal(t, "2024-01-02T03:04:05Z", issue.CreatedAt)
	assert.Equal(t, "lead", issue.Closer)
	assert.Equal(t, []string{"ci", "bug"}, issue.Labels)
	assert.Equal(t, []string{"rev"}, issue.Assignees)
	assert.True(t, issue.IsPullRequest)
	assert.Equal(t, "v1", issue.Milestone)

	_, err = c.Issue(context.Background(), "acme", "app", 404)
	assert.True(t, gasherrors.IsNotFound(err))
}

func TestSearchRepositoriesAndWorkflowFiles(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		fmt.Fprint(w, `{"total_count":1,"items":[{"full_name":"acme/app","name":"app","html_url":"https://github.com/acme/app",
			"owner":{"login":"acme","type":"Organization"},"stargazers_count":1200,"open_issues_count":3,"size":42,
			"has_downloads":true,"language":"Go","created_at":"2020-01-01T00:00:00Z"}]}`)
	})
	mux.HandleFunc("/repos/acme/app/contents/.github/workflows", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name":"ci.yml","type":"file"},{"name":"README.md","type":"file"},{"name":"release.YAML","type":"file"},{"name":"sub","type":"dir"}]`)
	})
	mux.HandleFunc("/repos/acme/empty/contents/.github/workflows", http.NotFound)
	c := newTestClient(t, mux, "t")

	repos, err := c.SearchRepositories(context.Background(), "is:public stars:>1000", 2, 100)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "acme", repos[0].Owner)
	assert.Equal(t, "Organization", repos[0].OwnerType)
	assert.Equal(t, 1200, repos[0].Stars)
	assert.Equal(t, 2020, repos[0].CreatedAt.Year())
	assert.Contains(t, query, "sort=stars")
	assert.Contains(t, query, "order=desc")
	assert.Contains(t, query, "page=2")
	assert.Contains(t, query, "per_page=100")

	names, err := c.WorkflowFiles(context.Background(), "acme", "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"ci.yml", "release.YAML"}, names)

	names, err = c.WorkflowFiles(context.Background(), "acme", "empty")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestJoinOrNone(t *testing.T) {
	assert.Equal(t, "None", JoinOrNone(nil))
	assert.Equal(t, "a, b", JoinOrNone([]string{"a", "b"}))
}
