package history

import (
	"context"
	"path"
	"strings"
	"time"
)

// ChangeType classifies a file modification within a commit.
type ChangeType string

const (
	ChangeAdd    ChangeType = "ADD"
	ChangeModify ChangeType = "MODIFY"
	ChangeDelete ChangeType = "DELETE"
	ChangeRename ChangeType = "RENAME"
)

// Identity is an author or committer.
type Identity struct {
	Name  string
	Email string
	When  time.Time
}

// Modification is one file change of a commit.
type Modification struct {
	Type         ChangeType
	OldPath      string
	NewPath      string
	Before       string
	After        string
	AddedLines   int
	DeletedLines int
	Diff         string
}

// Path is the current path of the file, or the old path for deletions.
func (m Modification) Path() string {
	if m.NewPath != "" {
		return m.NewPath
	}
	return m.OldPath
}

// FileName is the base name of Path.
func (m Modification) FileName() string {
	return path.Base(m.Path())
}

// Commit is one revision yielded by a Provider.
type Commit struct {
	Hash          string
	Message       string
	Author        Identity
	Committer     Identity
	Parents       []string
	Modifications []Modification
	// FilesChanged counts every file the commit touched, including those
	// filtered out of Modifications.
	FilesChanged int
}

// ShortHash is the first seven characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Provider streams the history of one repository, oldest commit first.
// fn is called once per commit; returning an error stops the walk.
type Provider interface {
	Walk(ctx context.Context, fn func(Commit) error) error
}

// UnderDir reports whether p lies within dir, both slash separated.
func UnderDir(p, dir string) bool {
	dir = strings.TrimSuffix(dir, "/") + "/"
	return strings.HasPrefix(p, dir)
}
