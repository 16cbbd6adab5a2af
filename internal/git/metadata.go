package git

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// RepositoryMetadata describes a local checkout.
type RepositoryMetadata struct {
	RootFolder string
	Branch     string
	Head       string
	Locator    *Locator
}

// OpenLocal opens the repository containing sourceFolder and collects its metadata.
// Locator is nil when the origin remote is missing or not a GitHub URL.
func OpenLocal(sourceFolder string) (*git.Repository, *RepositoryMetadata, error) {
	if sourceFolder == "" {
		return nil, nil, fmt.Errorf("source folder is not set")
	}
	if abs, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = abs
	}

	repo, err := git.PlainOpenWithOptions(sourceFolder, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, nil, fmt.Errorf("source folder is not a git repository: %w", err)
	}

	md := &RepositoryMetadata{RootFolder: filepath.Clean(sourceFolder)}
	if wt, err := repo.Worktree(); err == nil {
		md.RootFolder = filepath.Clean(wt.Filesystem.Root())
	}
	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			md.Branch = head.Name().Short()
		}
		md.Head = head.Hash().String()
	}
	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			if loc, err := ParseLocator(strings.TrimSuffix(cfg.URLs[0], ".git")); err == nil {
				md.Locator = &loc
			}
		}
	}
	return repo, md, nil
}
