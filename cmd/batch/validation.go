package batch

import (
	"fmt"
	"unicode/utf8"

	"github.com/gash-io/gash/pkg/shared/files"
)

// validateBatchArgs validates the arguments provided to the batch command.
func validateBatchArgs(options *RunOptionsBatch, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("positional arguments are not supported, use --file")
	}

	if options.File == "" {
		return fmt.Errorf("the 'file' flag must be specified")
	}

	path, err := files.ExpandPath(options.File)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", options.File, err)
	}
	if err := files.ValidatePath(path); err != nil {
		return fmt.Errorf("failed to validate path %q: %w", path, err)
	}
	options.File = path

	if options.Column < 0 {
		return fmt.Errorf("the 'column' flag must be specified as a non-negative index")
	}

	if utf8.RuneCountInString(options.Delimiter) != 1 {
		return fmt.Errorf("the 'delimiter' flag must be a single character")
	}

	return nil
}
