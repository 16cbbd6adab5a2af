package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/hashicorp/go-hclog"
	"github.com/sourcegraph/go-diff/diff"

	"github.com/gash-io/gash/internal/history"
)

// Provider streams the history of a go-git repository oldest first. Only changes
// under dir are reported; an empty dir reports every change.
type Provider struct {
	repo   *git.Repository
	dir    string
	logger hclog.Logger
}

var _ history.Provider = (*Provider)(nil)

// NewProvider wraps an opened repository.
func NewProvider(repo *git.Repository, dir string, logger hclog.Logger) *Provider {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Provider{repo: repo, dir: dir, logger: logger}
}

// Walk calls fn for every commit reachable from HEAD, parents before children.
func (p *Provider) Walk(ctx context.Context, fn func(history.Commit) error) error {
	head, err := p.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return ErrEmptyRepo
		}
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	iter, err := p.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	var commits []*object.Commit
	if err := iter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c)
		return nil
	}); err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	for _, c := range topoOrder(commits) {
		if err := ctx.Err(); err != nil {
			return err
		}
		commit, err := p.convert(ctx, c)
		if err != nil {
			return fmt.Errorf("commit %s: %w", c.Hash, err)
		}
		if err := fn(commit); err != nil {
			return err
		}
	}
	return nil
}

// topoOrder sorts commits so that every parent precedes its children. Ties are broken by
// committer time, then hash.
func topoOrder(commits []*object.Commit) []*object.Commit {
	known := make(map[plumbing.Hash]bool, len(commits))
	for _, c := range commits {
		known[c.Hash] = true
	}
	pending := make(map[plumbing.Hash]int, len(commits))
	children := make(map[plumbing.Hash][]*object.Commit)
	var ready []*object.Commit
	for _, c := range commits {
		for _, ph := range c.ParentHashes {
			if known[ph] {
				pending[c.Hash]++
				children[ph] = append(children[ph], c)
			}
		}
		if pending[c.Hash] == 0 {
			ready = append(ready, c)
		}
	}

	older := func(a, b *object.Commit) bool {
		if !a.Committer.When.Equal(b.Committer.When) {
			return a.Committer.When.Before(b.Committer.When)
		}
		return a.Hash.String() < b.Hash.String()
	}

	out := make([]*object.Commit, 0, len(commits))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return older(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		out = append(out, next)
		for _, child := range children[next.Hash] {
			pending[child.Hash]--
			if pending[child.Hash] == 0 {
				ready = append(ready, child)
			}
		}
	}
	return out
}

func (p *Provider) convert(ctx context.Context, c *object.Commit) (history.Commit, error) {
	out := history.Commit{
		Hash:      c.Hash.String(),
		Message:   c.Message,
		Author:    identity(c.Author),
		Committer: identity(c.Committer),
	}
	for _, ph := range c.ParentHashes {
		out.Parents = append(out.Parents, ph.String())
	}
	// Merges repeat changes already reported on the merged branches.
	if c.NumParents() > 1 {
		return out, nil
	}

	tree, err := c.Tree()
	if err != nil {
		return out, fmt.Errorf("load tree: %w", err)
	}
	parentTree := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return out, fmt.Errorf("load parent: %w", err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return out, fmt.Errorf("load parent tree: %w", err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return out, fmt.Errorf("diff tree: %w", err)
	}
	out.FilesChanged = len(changes)
	for _, ch := range changes {
		if !p.relevant(ch) {
			continue
		}
		mod, err := p.modification(ctx, ch)
		if err != nil {
			return out, err
		}
		out.Modifications = append(out.Modifications, mod)
	}
	return out, nil
}

func (p *Provider) relevant(ch *object.Change) bool {
	if p.dir == "" {
		return true
	}
	return (ch.From.Name != "" && history.UnderDir(ch.From.Name, p.dir)) ||
		(ch.To.Name != "" && history.UnderDir(ch.To.Name, p.dir))
}

func (p *Provider) modification(ctx context.Context, ch *object.Change) (history.Modification, error) {
	mod := history.Modification{OldPath: ch.From.Name, NewPath: ch.To.Name}

	action, err := ch.Action()
	if err != nil {
		return mod, fmt.Errorf("classify change: %w", err)
	}
	switch action {
	case merkletrie.Insert:
		mod.Type = history.ChangeAdd
	case merkletrie.Delete:
		mod.Type = history.ChangeDelete
	default:
		mod.Type = history.ChangeModify
		if ch.From.Name != ch.To.Name {
			mod.Type = history.ChangeRename
		}
	}

	from, to, err := ch.Files()
	if err != nil {
		return mod, fmt.Errorf("load blobs of %s: %w", mod.Path(), err)
	}
	if from != nil {
		if mod.Before, err = from.Contents(); err != nil {
			return mod, fmt.Errorf("read %s: %w", from.Name, err)
		}
	}
	if to != nil {
		if mod.After, err = to.Contents(); err != nil {
			return mod, fmt.Errorf("read %s: %w", to.Name, err)
		}
	}

	patch, err := ch.PatchContext(ctx)
	if err != nil {
		return mod, fmt.Errorf("patch %s: %w", mod.Path(), err)
	}
	mod.Diff = patch.String()
	mod.AddedLines, mod.DeletedLines, err = diffStats(mod.Diff)
	if err != nil {
		p.logger.Debug("falling back to patch stats", "path", mod.Path(), "error", err)
		mod.AddedLines, mod.DeletedLines = 0, 0
		for _, s := range patch.Stats() {
			mod.AddedLines += s.Addition
			mod.DeletedLines += s.Deletion
		}
	}
	return mod, nil
}

// diffStats counts added and deleted lines of a unified diff.
func diffStats(patch string) (int, int, error) {
	if strings.TrimSpace(patch) == "" {
		return 0, 0, nil
	}
	parsed, err := diff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse diff: %w", err)
	}

	var added, deleted int
	for _, fd := range parsed {
		if fd == nil {
			continue
		}
		for _, h := range fd.Hunks {
			if h == nil {
				continue
			}
			for _, line := range bytes.Split(h.Body, []byte("\n")) {
				if len(line) == 0 {
					continue
				}
				switch line[0] {
				case '+':
					added++
				case '-':
					deleted++
				}
			}
		}
	}
	return added, deleted, nil
}

func identity(s object.Signature) history.Identity {
	return history.Identity{Name: s.Name, Email: s.Email, When: s.When}
}
