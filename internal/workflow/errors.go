package workflow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrEmptyDocument is returned for sources with no YAML content.
var ErrEmptyDocument = errors.New("empty document")

// ParseError reports malformed pipeline text.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func newParseError(source string, line int, err error) *ParseError {
	if line == 0 && err != nil {
		if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
	}
	return &ParseError{Source: source, Line: line, Err: err}
}
