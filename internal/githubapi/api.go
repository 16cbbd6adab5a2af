package githubapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v47/github"
	"github.com/patrickmn/go-cache"

	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
	"github.com/gash-io/gash/pkg/shared/files"
)

// WorkflowsDir is where GitHub looks for workflow definitions.
const WorkflowsDir = ".github/workflows"

// CommitInfo is the platform-side view of a commit.
type CommitInfo struct {
	SHA           string
	AuthorType    string
	CommitterType string
	Tree          string
	Files         []string
}

// IssueInfo holds the issue or pull request metadata recorded per revision.
type IssueInfo struct {
	Number             int
	Title              string
	Creator            string
	CreatorType        string
	CreatorAssociation string
	CreatedAt          string
	ClosedAt           string
	State              string
	Body               string
	Closer             string
	CloserType         string
	Labels             []string
	Assignees          []string
	AssigneeTypes      []string
	IsPullRequest      bool
	Milestone          string
}

// Repository is one search hit.
type Repository struct {
	Owner        string
	OwnerType    string
	FullName     string
	Name         string
	Description  string
	URL          string
	Language     string
	Stars        int
	OpenIssues   int
	Size         int
	HasDownloads bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Commit fetches commit metadata by hash.
func (c *Client) Commit(ctx context.Context, owner, repo, sha string) (CommitInfo, error) {
	key := fmt.Sprintf("commit:%s/%s@%s", owner, repo, sha)
	if v, ok := c.cache.Get(key); ok {
		return v.(CommitInfo), nil
	}
	if err := c.wait(ctx); err != nil {
		return CommitInfo{}, err
	}

	rc, resp, err := c.gh.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return CommitInfo{}, classify("commit "+sha, resp, err)
	}

	info := CommitInfo{
		SHA:           rc.GetSHA(),
		AuthorType:    rc.GetAuthor().GetType(),
		CommitterType: rc.GetCommitter().GetType(),
		Tree:          rc.GetCommit().GetTree().GetSHA(),
	}
	for _, f := range rc.Files {
		info.Files = append(info.Files, f.GetFilename())
	}
	c.cache.Set(key, info, cache.DefaultExpiration)
	return info, nil
}

// Issue fetches an issue or pull request by number.
func (c *Client) Issue(ctx context.Context, owner, repo string, number int) (IssueInfo, error) {
	key := fmt.Sprintf("issue:%s/%s#%d", owner, repo, number)
	if v, ok := c.cache.Get(key); ok {
		return v.(IssueInfo), nil
	}
	if err := c.wait(ctx); err != nil {
		return IssueInfo{}, err
	}

	iss, resp, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return IssueInfo{}, classify(fmt.Sprintf("issue #%d", number), resp, err)
	}

	info := IssueInfo{
		Number:             iss.GetNumber(),
		Title:              iss.GetTitle(),
		Creator:            iss.GetUser().GetLogin(),
		CreatorType:        iss.GetUser().GetType(),
		CreatorAssociation: iss.GetAuthorAssociation(),
		CreatedAt:          formatTime(iss.CreatedAt),
		ClosedAt:           formatTime(iss.ClosedAt),
		State:              iss.GetState(),
		Body:               iss.GetBody(),
		Closer:             iss.GetClosedBy().GetLogin(),
		CloserType:         iss.GetClosedBy().GetType(),
		IsPullRequest:      iss.IsPullRequest(),
		Milestone:          iss.GetMilestone().GetTitle(),
	}
	for _, l := range iss.Labels {
		info.Labels = append(info.Labels, l.GetName())
	}
	for _, a := range iss.Assignees {
		info.Assignees = append(info.Assignees, a.GetLogin())
		info.AssigneeTypes = append(info.AssigneeTypes, a.GetType())
	}
	c.cache.Set(key, info, cache.DefaultExpiration)
	return info, nil
}

type account struct {
	IsVerified bool `json:"is_verified"`
}

// OwnerVerified reports whether owner is a verified organization. Owners that are not
// organizations are looked up as users.
func (c *Client) OwnerVerified(ctx context.Context, owner string) (bool, error) {
	key := "verified:" + owner
	if v, ok := c.cache.Get(key); ok {
		return v.(bool), nil
	}

	var acc account
	err := c.get(ctx, "organization "+owner, "orgs/"+owner, &acc)
	var notFound *gasherrors.NotFoundError
	if errors.As(err, &notFound) {
		acc = account{}
		err = c.get(ctx, "user "+owner, "users/"+owner, &acc)
		if errors.As(err, &notFound) {
			c.cache.Set(key, false, cache.DefaultExpiration)
			return false, nil
		}
	}
	if err != nil {
		return false, err
	}
	c.cache.Set(key, acc.IsVerified, cache.DefaultExpiration)
	return acc.IsVerified, nil
}

type advisory struct {
	GHSAID   string `json:"ghsa_id"`
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
}

// Advisories lists the published security advisories of a repository, one
// "ID (severity): summary" line each. A repository without advisories gives an empty list.
func (c *Client) Advisories(ctx context.Context, owner, repo string) ([]string, error) {
	key := fmt.Sprintf("advisories:%s/%s", owner, repo)
	if v, ok := c.cache.Get(key); ok {
		return v.([]string), nil
	}

	var list []advisory
	err := c.get(ctx, "advisories "+owner+"/"+repo, fmt.Sprintf("repos/%s/%s/security-advisories", owner, repo), &list)
	var notFound *gasherrors.NotFoundError
	if errors.As(err, &notFound) {
		list, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, fmt.Sprintf("%s (%s): %s", a.GHSAID, a.Severity, a.Summary))
	}
	c.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

// SearchRepositories returns one page of repositories matching query, sorted by stars.
func (c *Client) SearchRepositories(ctx context.Context, query string, page, perPage int) ([]Repository, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	opts := &github.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}
	result, resp, err := c.gh.Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, classify(fmt.Sprintf("search page %d", page), resp, err)
	}

	out := make([]Repository, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		if r == nil {
			continue
		}
		out = append(out, Repository{
			Owner:        r.GetOwner().GetLogin(),
			OwnerType:    r.GetOwner().GetType(),
			FullName:     r.GetFullName(),
			Name:         r.GetName(),
			Description:  r.GetDescription(),
			URL:          r.GetHTMLURL(),
			Language:     r.GetLanguage(),
			Stars:        r.GetStargazersCount(),
			OpenIssues:   r.GetOpenIssuesCount(),
			Size:         r.GetSize(),
			HasDownloads: r.GetHasDownloads(),
			CreatedAt:    r.GetCreatedAt().Time,
			UpdatedAt:    r.GetUpdatedAt().Time,
		})
	}
	return out, nil
}

// WorkflowFiles lists the workflow definitions of a repository by file name.
// A repository without the workflows directory gives an empty list.
func (c *Client) WorkflowFiles(ctx context.Context, owner, repo string) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	_, dir, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, WorkflowsDir, nil)
	if err != nil {
		err = classify("workflows of "+owner+"/"+repo, resp, err)
		var notFound *gasherrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, entry := range dir {
		if entry.GetType() == "file" && files.HasWorkflowExtension(entry.GetName()) {
			out = append(out, entry.GetName())
		}
	}
	return out, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// JoinOrNone joins values with ", " and gives "None" for an empty list.
func JoinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
