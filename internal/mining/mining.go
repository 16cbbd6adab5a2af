// Package mining discovers repositories worth replaying and reads batch inputs.
package mining

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/internal/githubapi"
	"github.com/gash-io/gash/internal/retry"
	"github.com/gash-io/gash/pkg/shared/config"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
	"github.com/gash-io/gash/pkg/shared/files"
)

const (
	DefaultWorkers  = config.DefaultMiningWorkers
	DefaultMaxPages = config.DefaultMiningMaxPages
	DefaultPerPage  = config.DefaultMiningPerPage
	DefaultAgeYears = 5
	DefaultStars    = 3000
)

// Searcher is the platform API used for discovery.
type Searcher interface {
	SearchRepositories(ctx context.Context, query string, page, perPage int) ([]githubapi.Repository, error)
	WorkflowFiles(ctx context.Context, owner, repo string) ([]string, error)
}

// Candidate is a repository that carries workflow files.
type Candidate struct {
	githubapi.Repository
	WorkflowFiles []string
}

// Options tune discovery. Zero values use the defaults.
type Options struct {
	Workers  int
	MaxPages int
	PerPage  int
	Retry    retry.Policy
	Logger   hclog.Logger
}

// Miner fans search pages out over a worker pool.
type Miner struct {
	searcher Searcher
	opts     Options
}

// New returns a Miner over s.
func New(s Searcher, opts Options) *Miner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Default(opts.Logger)
	}
	return &Miner{searcher: s, opts: opts}
}

// Query builds the search query for public repositories older than ageYears with more
// than minStars stars.
func Query(now time.Time, ageYears, minStars int) string {
	cutoff := now.AddDate(0, 0, -365*ageYears).Format("2006-01-02")
	return fmt.Sprintf("is:public created:<%s stars:>%d", cutoff, minStars)
}

type pageResult struct {
	candidates []Candidate
	err        error
}

// Discover searches every page concurrently and keeps the repositories that have workflow
// files. Pages that keep failing are skipped; a fatal error aborts discovery. Results keep
// the search order within a page and are merged in page order.
func (m *Miner) Discover(ctx context.Context, query string) ([]Candidate, error) {
	logger := m.opts.Logger
	results := make([]pageResult, m.opts.MaxPages)

	wp := workerpool.New(m.opts.Workers)
	var mu sync.Mutex
	fatal := false
	for page := 1; page <= m.opts.MaxPages; page++ {
		page := page
		wp.Submit(func() {
			mu.Lock()
			stop := fatal
			mu.Unlock()
			if stop || ctx.Err() != nil {
				return
			}
			res := m.page(ctx, query, page)
			if gasherrors.IsFatal(res.err) {
				mu.Lock()
				fatal = true
				mu.Unlock()
			}
			results[page-1] = res
		})
	}
	wp.StopWait()

	var out []Candidate
	for i, res := range results {
		if res.err != nil {
			if gasherrors.IsFatal(res.err) {
				return nil, res.err
			}
			logger.Error("skipping search page", "page", i+1, "error", res.err)
			continue
		}
		out = append(out, res.candidates...)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	logger.Info("repository discovery finished", "query", query, "repositories", len(out))
	return out, nil
}

func (m *Miner) page(ctx context.Context, query string, page int) pageResult {
	logger := m.opts.Logger.With("page", page)
	repos, err := retry.Value(ctx, m.opts.Retry, fmt.Sprintf("search page %d", page), func(ctx context.Context) ([]githubapi.Repository, error) {
		return m.searcher.SearchRepositories(ctx, query, page, m.opts.PerPage)
	})
	if err != nil {
		return pageResult{err: err}
	}

	var res pageResult
	for _, repo := range repos {
		names, err := retry.Value(ctx, m.opts.Retry, "workflow files "+repo.FullName, func(ctx context.Context) ([]string, error) {
			return m.searcher.WorkflowFiles(ctx, repo.Owner, repo.Name)
		})
		if err != nil {
			if gasherrors.IsFatal(err) {
				return pageResult{err: err}
			}
			logger.Warn("failed to list workflow files", "repository", repo.FullName, "error", err)
			continue
		}

		var workflows []string
		for _, n := range names {
			if files.HasWorkflowExtension(n) {
				workflows = append(workflows, n)
			}
		}
		logger.Debug("verified repository", "repository", repo.FullName, "workflows", len(workflows))
		if len(workflows) == 0 {
			continue
		}
		res.candidates = append(res.candidates, Candidate{Repository: repo, WorkflowFiles: workflows})
	}
	return res
}
