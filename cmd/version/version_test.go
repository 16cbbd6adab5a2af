package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintVersionInfo(t *testing.T) {
	var buf bytes.Buffer
	printVersionInfo(&buf, Versions{
		Version:        "1.0.0",
		GolangVersion:  "go1.21.0",
		BuildTime:      "today",
		CatalogVersion: 1,
		Detectors:      []string{"HardCodedSecret", "LongBlocks"},
	})
	assert.Equal(t, "Core Version: v1.0.0\nCatalog Version: 1\nDetectors:\n  HardCodedSecret\n  LongBlocks\nGo Version: go1.21.0\nBuild Time: today\n", buf.String())
}

func TestCurrent(t *testing.T) {
	v := Current()
	assert.Equal(t, CoreVersion, v.Version)
	assert.NotEmpty(t, v.Detectors)
	assert.Positive(t, v.CatalogVersion)
}
