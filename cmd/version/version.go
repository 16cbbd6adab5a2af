package version

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/detectors"
	"github.com/gash-io/gash/pkg/shared/config"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = runtime.Version()
	BuildTime     = "unknown"
)

// Versions holds version information of the binary and its embedded catalog.
type Versions struct {
	Version        string   `json:"version"`
	GolangVersion  string   `json:"golang_version"`
	BuildTime      string   `json:"build_time"`
	CatalogVersion int      `json:"catalog_version"`
	Detectors      []string `json:"detectors"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and its detector catalog",
		Run: func(cmd *cobra.Command, args []string) {
			printVersionInfo(os.Stdout, Current())
		},
	}
}

// Current collects the version information of this build.
func Current() Versions {
	return Versions{
		Version:        CoreVersion,
		GolangVersion:  GolangVersion,
		BuildTime:      BuildTime,
		CatalogVersion: catalog.Default().Version,
		Detectors:      detectors.Names(),
	}
}

// printVersionInfo prints the version information for the core application and catalog.
func printVersionInfo(w io.Writer, v Versions) {
	fmt.Fprintf(w, "Core Version: v%s\n", v.Version)
	fmt.Fprintf(w, "Catalog Version: %d\n", v.CatalogVersion)
	fmt.Fprintln(w, "Detectors:")
	for _, d := range v.Detectors {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintf(w, "Go Version: %s\n", v.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", v.BuildTime)
}
