package git

import "errors"

// Repo errors
var (
	ErrDifferentRepo = errors.New("target folder contains a different repo")
	ErrEmptyRepo     = errors.New("repository has no commits")
)

// Locator errors
var (
	ErrUnsupportedHost = errors.New("only github.com repositories are supported")
	ErrNoOrigin        = errors.New("repository has no origin remote")
)
