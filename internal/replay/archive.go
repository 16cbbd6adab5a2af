package replay

import (
	"fmt"
	"path/filepath"

	"github.com/gash-io/gash/internal/history"
	"github.com/gash-io/gash/pkg/shared/files"
)

// Archive folder names below <output>/scripts/<repo>.
const (
	BeforeDir  = "files_src_before"
	AfterDir   = "files_src_after"
	CurrentDir = "current_code"
)

// Archive stores the texts of every replayed revision.
type Archive struct {
	root string
}

// ArchivePaths are the files written for one modification. Current is empty for deletions.
type ArchivePaths struct {
	Current string
	Before  string
	After   string
}

// NewArchive returns an archive rooted at <outputFolder>/scripts/<project>.
func NewArchive(outputFolder, project string) *Archive {
	return &Archive{root: filepath.Join(outputFolder, "scripts", project)}
}

// Root is the archive folder of the project.
func (a *Archive) Root() string {
	return a.root
}

// Save writes the before and after texts of mod, and the current text unless the file was deleted.
func (a *Archive) Save(shortHash string, mod history.Modification) (ArchivePaths, error) {
	name := fmt.Sprintf("%s_%s", shortHash, mod.FileName())
	var paths ArchivePaths
	var err error
	if paths.Before, err = a.path(BeforeDir, name); err != nil {
		return paths, err
	}
	if paths.After, err = a.path(AfterDir, name); err != nil {
		return paths, err
	}

	if err := files.WriteFile(paths.Before, []byte(mod.Before)); err != nil {
		return paths, fmt.Errorf("archive before text: %w", err)
	}
	if err := files.WriteFile(paths.After, []byte(mod.After)); err != nil {
		return paths, fmt.Errorf("archive after text: %w", err)
	}
	if mod.Type == history.ChangeDelete {
		return paths, nil
	}

	if paths.Current, err = a.path(CurrentDir, name); err != nil {
		return paths, err
	}
	if err := files.WriteFile(paths.Current, []byte(mod.After)); err != nil {
		return paths, fmt.Errorf("archive current text: %w", err)
	}
	return paths, nil
}

// path joins dir and name below the archive root, refusing names that climb out of it.
func (a *Archive) path(dir, name string) (string, error) {
	folder := filepath.Join(a.root, dir)
	p, err := files.EnsureWithinRoot(folder, filepath.Join(folder, name))
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", dir, err)
	}
	return p, nil
}
