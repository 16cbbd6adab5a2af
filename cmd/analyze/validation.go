package analyze

import (
	"fmt"

	"github.com/gash-io/gash/internal/detectors"
	"github.com/gash-io/gash/pkg/shared/files"
)

// Report formats.
const (
	FormatText  = "text"
	FormatSARIF = "sarif"
	FormatJSON  = "json"
)

// validateAnalyzeArgs validates the arguments provided to the analyze command.
func validateAnalyzeArgs(options *RunOptionsAnalyze, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("positional arguments are not supported, use --file or --dir")
	}

	if options.File == "" && options.Dir == "" {
		return fmt.Errorf("either 'file' or 'dir' flag must be specified")
	}

	if options.File != "" && options.Dir != "" {
		return fmt.Errorf("you cannot use 'file' and 'dir' flags together")
	}

	if options.File != "" {
		path, err := files.ExpandPath(options.File)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", options.File, err)
		}
		if err := files.ValidatePath(path); err != nil {
			return fmt.Errorf("failed to validate path %q: %w", path, err)
		}
		options.File = path
	}

	if options.Dir != "" {
		path, err := files.ExpandPath(options.Dir)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", options.Dir, err)
		}
		if err := files.ValidateDir(path); err != nil {
			return fmt.Errorf("failed to validate path %q: %w", path, err)
		}
		options.Dir = path
	}

	if options.Threads <= 0 {
		return fmt.Errorf("the 'threads' flag must be a positive integer")
	}

	switch options.Format {
	case FormatText, FormatSARIF, FormatJSON:
	default:
		return fmt.Errorf("unknown format: %v", options.Format)
	}

	known := detectors.Names()
	for _, name := range options.Detectors {
		if !contains(known, name) {
			return fmt.Errorf("unknown detector: %v", name)
		}
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
