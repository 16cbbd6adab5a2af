package shared

import (
	"sync"

	"github.com/spf13/pflag"
)

// ForEveryStringWithBoundedGoroutines calls f for every value with at most limit calls in flight.
func ForEveryStringWithBoundedGoroutines(limit int, values []string, f func(i int, value string)) {
	if limit < 1 {
		limit = 1
	}
	guard := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, value := range values {
		guard <- struct{}{} // would block if guard channel is already filled
		wg.Add(1)
		go func(i int, value string) {
			defer wg.Done()
			f(i, value)
			<-guard
		}(i, value)
	}
	wg.Wait()
}

// HasFlags reports whether any flag in the set was explicitly changed by the user.
func HasFlags(flags *pflag.FlagSet) bool {
	hasFlags := false
	flags.Visit(func(f *pflag.Flag) {
		hasFlags = true
	})
	return hasFlags
}
