package git

import (
	"fmt"
	"strings"

	"github.com/gitsight/go-vcsurl"
)

// Locator identifies a hosted repository.
type Locator struct {
	Host     string
	Owner    string
	Name     string
	CloneURL string
}

// FullName is owner/name.
func (l Locator) FullName() string {
	return l.Owner + "/" + l.Name
}

// FolderName is a file-system safe project name, owner_name.
func (l Locator) FolderName() string {
	return l.Owner + "_" + l.Name
}

// ParseLocator accepts HTTPS, SSH and owner/name forms of a GitHub repository.
func ParseLocator(raw string) (Locator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Locator{}, fmt.Errorf("empty repository locator")
	}
	if !strings.Contains(raw, ":") && strings.Count(raw, "/") == 1 {
		raw = "https://github.com/" + raw
	}

	info, err := vcsurl.Parse(raw)
	if err != nil {
		return Locator{}, fmt.Errorf("failed to parse VCS URL %q: %w", raw, err)
	}
	if info.Host != vcsurl.GitHub {
		return Locator{}, fmt.Errorf("%w: %s", ErrUnsupportedHost, info.Host)
	}

	cloneURL, err := info.Remote(vcsurl.HTTPS)
	if err != nil {
		return Locator{}, fmt.Errorf("failed to build clone URL for %q: %w", raw, err)
	}
	return Locator{
		Host:     string(info.Host),
		Owner:    info.Username,
		Name:     info.Name,
		CloneURL: cloneURL,
	}, nil
}
