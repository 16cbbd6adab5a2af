// Package catalog holds the versioned detector data: the severity table, keyword lists and
// thresholds. The data is embedded, loaded once and must be treated as read-only.
package catalog

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v2"
)

//go:embed catalog.yaml
var embedded []byte

// Category is one entry of the severity table.
type Category struct {
	Severity      string `yaml:"severity"`
	Abbreviation  string `yaml:"abbreviation"`
	Justification string `yaml:"justification"`
}

// Thresholds are the numeric limits used by detectors.
type Thresholds struct {
	Replica       int `yaml:"replica"`
	MaxGlobalVars int `yaml:"max_global_vars"`
	MaxInputs     int `yaml:"max_inputs"`
	MaxJobs       int `yaml:"max_jobs"`
	MaxSteps      int `yaml:"max_steps"`
	MaxRunLines   int `yaml:"max_run_lines"`
	MaxAndClauses int `yaml:"max_and_clauses"`
	ShortTimeout  int `yaml:"short_timeout"`
	LongTimeout   int `yaml:"long_timeout"`
}

// Catalog is the loaded detector data.
type Catalog struct {
	Version             int                 `yaml:"version"`
	Categories          map[string]Category `yaml:"categories"`
	Keywords            []string            `yaml:"keywords"`
	RegexPatterns       []string            `yaml:"regex_patterns"`
	GenericNames        []string            `yaml:"generic_names"`
	SensitiveKeywords   []string            `yaml:"sensitive_keywords"`
	ElevatedPermissions []string            `yaml:"elevated_permissions"`
	CriticalBranches    []string            `yaml:"critical_branches"`
	InputTypes          []string            `yaml:"input_types"`
	Thresholds          Thresholds          `yaml:"thresholds"`

	secretPatterns    []*regexp.Regexp
	sensitiveSearch   []*regexp.Regexp
	sensitiveFull     []*regexp.Regexp
	lowerKeywords     []string
	genericNameLookup map[string]bool
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It panics if the embedded data is invalid,
// which can only happen with a broken build.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(embedded)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load decodes and validates catalog data.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if c.Version < 1 {
		return nil, fmt.Errorf("catalog version must be set")
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}
	for name, cat := range c.Categories {
		if cat.Severity == "" || cat.Abbreviation == "" {
			return nil, fmt.Errorf("category %q needs a severity and an abbreviation", name)
		}
	}

	var err error
	if c.secretPatterns, err = compileAll(c.RegexPatterns, "(?i)%s"); err != nil {
		return nil, err
	}
	if c.sensitiveSearch, err = compileAll(c.SensitiveKeywords, "(?i)%s"); err != nil {
		return nil, err
	}
	if c.sensitiveFull, err = compileAll(c.SensitiveKeywords, "(?i)^(?:%s)$"); err != nil {
		return nil, err
	}
	for _, k := range c.Keywords {
		c.lowerKeywords = append(c.lowerKeywords, strings.ToLower(k))
	}
	c.genericNameLookup = make(map[string]bool, len(c.GenericNames))
	for _, n := range c.GenericNames {
		c.genericNameLookup[strings.ToLower(n)] = true
	}
	return &c, nil
}

func compileAll(patterns []string, wrap string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(fmt.Sprintf(wrap, p))
		if err != nil {
			return nil, fmt.Errorf("invalid catalog pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Category returns the severity table entry for name.
func (c *Catalog) Category(name string) (Category, bool) {
	cat, ok := c.Categories[name]
	return cat, ok
}

// MatchesSecret reports whether text hits a secret regex pattern or contains a secret keyword.
func (c *Catalog) MatchesSecret(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range c.secretPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	for _, k := range c.lowerKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ContainsSensitive reports whether text contains any sensitive keyword pattern.
func (c *Catalog) ContainsSensitive(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range c.sensitiveSearch {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsSensitiveName reports whether name is entirely matched by a sensitive keyword pattern.
func (c *Catalog) IsSensitiveName(name string) bool {
	for _, re := range c.sensitiveFull {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsGenericName reports whether name is in the generic-name list.
func (c *Catalog) IsGenericName(name string) bool {
	return c.genericNameLookup[strings.ToLower(name)]
}

// IsElevated reports whether a permission level grants write access.
func (c *Catalog) IsElevated(level string) bool {
	return contains(c.ElevatedPermissions, level)
}

// IsValidInputType reports whether t is an accepted trigger input type.
func (c *Catalog) IsValidInputType(t string) bool {
	return contains(c.InputTypes, t)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
