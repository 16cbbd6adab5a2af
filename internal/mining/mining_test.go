package mining

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gash-io/gash/internal/githubapi"
	"github.com/gash-io/gash/internal/retry"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
)

type fakeSearcher struct {
	mu        sync.Mutex
	pages     map[int][]githubapi.Repository
	workflows map[string][]string
	pageErr   map[int]error
	calls     map[int]int
}

func (f *fakeSearcher) SearchRepositories(_ context.Context, query string, page, perPage int) ([]githubapi.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[int]int{}
	}
	f.calls[page]++
	if err := f.pageErr[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeSearcher) WorkflowFiles(_ context.Context, owner, repo string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workflows[owner+"/"+repo], nil
}

func repo(owner, name string) githubapi.Repository {
	return githubapi.Repository{Owner: owner, Name: name, FullName: owner + "/" + name, URL: "https://github.com/" + owner + "/" + name}
}

func newMiner(s Searcher, pages int) *Miner {
	return New(s, Options{
		Workers:  4,
		MaxPages: pages,
		Retry:    retry.Default(nil).NoWait(),
		Logger:   hclog.NewNullLogger(),
	})
}

func TestQuery(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "is:public created:<2019-06-17 stars:>3000", Query(now, 5, 3000))
	assert.Equal(t, "is:public created:<2024-06-15 stars:>0", Query(now, 0, 0))
}

func TestDiscoverKeepsPageOrderAndFilters(t *testing.T) {
	s := &fakeSearcher{
		pages: map[int][]githubapi.Repository{
			1: {repo("a", "one"), repo("a", "two"), repo("a", "three")},
			2: {repo("b", "one")},
			3: {repo("c", "one"), repo("c", "two")},
		},
		workflows: map[string][]string{
			"a/one":   {"ci.yml"},
			"a/three": {"build.yaml", "notes.md"},
			"b/one":   {"release.yml"},
			"c/two":   {"x.yml"},
		},
	}

	got, err := newMiner(s, 3).Discover(context.Background(), "q")
	require.NoError(t, err)

	var names []string
	for _, c := range got {
		names = append(names, c.FullName)
	}
	assert.Equal(t, []string{"a/one", "a/three", "b/one", "c/two"}, names)
	assert.Equal(t, []string{"build.yaml"}, got[1].WorkflowFiles)
}

func TestDiscoverSkipsFailingPage(t *testing.T) {
	s := &fakeSearcher{
		pages:     map[int][]githubapi.Repository{2: {repo("b", "one")}},
		workflows: map[string][]string{"b/one": {"ci.yml"}},
		pageErr:   map[int]error{1: gasherrors.NewTransientError("search", assert.AnError)},
	}

	got, err := newMiner(s, 2).Discover(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b/one", got[0].FullName)
	assert.Equal(t, retry.DefaultMaxAttempts, s.calls[1])
}

func TestDiscoverAbortsOnFatal(t *testing.T) {
	s := &fakeSearcher{
		pageErr: map[int]error{1: gasherrors.NewFatalAuthError("token rejected", nil)},
	}
	_, err := newMiner(s, 1).Discover(context.Background(), "q")
	assert.True(t, gasherrors.IsFatal(err))
}

func TestWriteDataset(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2015, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Candidate{
		Repository: githubapi.Repository{
			Owner: "acme", Name: "app", FullName: "acme/app", Description: "An app, with comma",
			URL: "https://github.com/acme/app", Stars: 4000, OpenIssues: 7, Size: 100,
			HasDownloads: true, CreatedAt: created,
		},
		WorkflowFiles: []string{"ci.yml", "release.yml"},
	}
	require.NoError(t, WriteDataset(&buf, []Candidate{c}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(DatasetColumns, ","), lines[0])
	assert.Equal(t,
		`acme,acme/app,"An app, with comma",https://github.com/acme/app,Unknown,4000,7,2015-01-02T03:04:05Z,,100,true,2,ci.yml; release.yml`,
		lines[1])
}

func TestReadURLs(t *testing.T) {
	input := "name;url\nfirst;https://github.com/a/one\nsecond; \nthird;https://github.com/a/three\n"
	urls, err := ReadURLs(strings.NewReader(input), 1, ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/a/one", "https://github.com/a/three"}, urls)

	_, err = ReadURLs(strings.NewReader(input), 5, ';')
	assert.ErrorContains(t, err, "column 5 requested")

	_, err = ReadURLs(strings.NewReader(input), -1, ';')
	assert.Error(t, err)

	urls, err = ReadURLs(strings.NewReader(""), 0, ';')
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestSaveDatasetAndReadBack(t *testing.T) {
	path := DatasetPath(t.TempDir())
	assert.Equal(t, "repos_dataset.csv", filepath.Base(path))

	var cands []Candidate
	for i := 0; i < 3; i++ {
		cands = append(cands, Candidate{Repository: repo("o", fmt.Sprintf("r%d", i)), WorkflowFiles: []string{"ci.yml"}})
	}
	require.NoError(t, SaveDataset(path, cands))

	urls, err := ReadURLsFile(path, URLColumn, ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/o/r0", "https://github.com/o/r1", "https://github.com/o/r2"}, urls)
}
