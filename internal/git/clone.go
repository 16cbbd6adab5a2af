package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
)

// CloneRepository clones the full history of loc into targetFolder. An existing clone of
// the same repository is fetched instead.
func (c *Client) CloneRepository(ctx context.Context, loc Locator, targetFolder string) (*git.Repository, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("starting repository fetch", "repository", loc.FullName(), "cloneURL", loc.CloneURL, "targetFolder", targetFolder)
	repo, err := git.PlainCloneContext(ctx, targetFolder, false, &git.CloneOptions{
		Auth: c.auth,
		URL:  loc.CloneURL,
		Tags: git.NoTags,
	})
	if err == nil {
		c.logger.Info("repository cloned", "repository", loc.FullName(), "targetFolder", targetFolder)
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryAlreadyExists) {
		c.logger.Error("error occurred during clone", "error", err, "targetFolder", targetFolder)
		return nil, fmt.Errorf("error occurred during clone: %w", err)
	}

	c.logger.Info("repository already exists, updating...", "targetFolder", targetFolder)
	repo, err = git.PlainOpen(targetFolder)
	if err != nil {
		c.logger.Error("cannot open existing repository", "error", err, "targetFolder", targetFolder)
		return nil, fmt.Errorf("cannot open existing repository: %w", err)
	}
	if err := sameOrigin(repo, loc); err != nil {
		return nil, err
	}
	if err := c.updateRepository(ctx, repo, targetFolder); err != nil {
		return nil, err
	}
	return repo, nil
}

// updateRepository fetches the remote and fast-forwards the worktree.
func (c *Client) updateRepository(ctx context.Context, repo *git.Repository, targetFolder string) error {
	c.logger.Debug("update repo by using fetch", "targetFolder", targetFolder)
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       c.auth,
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		c.logger.Error("error occurred during fetch", "error", err, "targetFolder", targetFolder)
		return fmt.Errorf("error occurred during fetch: %w", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("error accessing worktree: %w", err)
	}
	err = w.PullContext(ctx, &git.PullOptions{RemoteName: "origin", Auth: c.auth, Force: true})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		c.logger.Error("error occurred during pull", "error", err)
		return fmt.Errorf("error occurred during pull: %w", err)
	}
	return nil
}

func sameOrigin(repo *git.Repository, loc Locator) error {
	remote, err := repo.Remote("origin")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoOrigin, err)
	}
	for _, u := range remote.Config().URLs {
		if strings.EqualFold(strings.TrimSuffix(u, ".git"), strings.TrimSuffix(loc.CloneURL, ".git")) {
			return nil
		}
	}
	return fmt.Errorf("%w: expected %s", ErrDifferentRepo, loc.CloneURL)
}
