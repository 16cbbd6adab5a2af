package repos

import "fmt"

// validateReposArgs validates the arguments provided to the repos command.
func validateReposArgs(options *RunOptionsRepos, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("positional arguments are not supported")
	}
	if options.Age < 0 {
		return fmt.Errorf("the 'age' flag must not be negative")
	}
	if options.Stars < 0 {
		return fmt.Errorf("the 'stars' flag must not be negative")
	}
	return nil
}
