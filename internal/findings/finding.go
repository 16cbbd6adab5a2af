package findings

import (
	"fmt"

	"github.com/gash-io/gash/internal/catalog"
)

// Category is a smell family in the severity table.
type Category string

const (
	HardCodedSecret               Category = "HardCodedSecret"
	ExcessivePrivilege            Category = "ExcessivePrivilege"
	UnsecureProtocol              Category = "UnsecureProtocol"
	UntrustedDependency           Category = "UntrustedDependency"
	VulnerableDependency          Category = "VulnerableDependency"
	RemoteTriggerMisconfiguration Category = "RemoteTriggerMisconfiguration"
	Misconfiguration              Category = "Misconfiguration"
	FuzzyVersion                  Category = "FuzzyVersion"
	UnnecessaryComplexity         Category = "UnnecessaryComplexity"
	CodeReplica                   Category = "CodeReplica"
	ContinueOnError               Category = "ContinueOnError"
	ErrorHandling                 Category = "ErrorHandling"
	LongBlock                     Category = "LongBlock"
	GlobalVariable                Category = "GlobalVariable"
	ConditionComplexity           Category = "ConditionComplexity"
)

// Severity is the fixed severity of a category.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Property is a simple name/value pair used for tags or custom metadata.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Location points at the job, step and source line a finding was produced from.
// Job and Step are empty for workflow-level findings.
type Location struct {
	File string `json:"file,omitempty"`
	Job  string `json:"job,omitempty"`
	Step string `json:"step,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Finding is one detected smell.
type Finding struct {
	Category      Category   `json:"category"`
	Message       string     `json:"message"`
	Location      Location   `json:"location"`
	Severity      Severity   `json:"severity"`
	Justification string     `json:"justification"`
	Properties    []Property `json:"properties,omitempty"`
}

// New builds a finding with the severity and justification of its category in the
// embedded catalog.
func New(category Category, message string, loc Location) Finding {
	return NewFrom(catalog.Default(), category, message, loc)
}

// NewFrom builds a finding with the severity and justification of its category in c.
// Categories missing from c default to Medium.
func NewFrom(c *catalog.Catalog, category Category, message string, loc Location) Finding {
	if c == nil {
		c = catalog.Default()
	}
	f := Finding{Category: category, Message: message, Location: loc, Severity: SeverityMedium}
	if cat, ok := c.Category(string(category)); ok {
		f.Severity = Severity(cat.Severity)
		f.Justification = cat.Justification
	}
	return f
}

// WithProperty returns a copy of f with an extra property.
func (f Finding) WithProperty(name, value string) Finding {
	props := make([]Property, 0, len(f.Properties)+1)
	props = append(props, f.Properties...)
	f.Properties = append(props, Property{Name: name, Value: value})
	return f
}

// Abbreviation returns the short code of the finding's category.
func (f Finding) Abbreviation() string {
	if cat, ok := catalog.Default().Category(string(f.Category)); ok {
		return cat.Abbreviation
	}
	return string(f.Category)
}

// ID returns the dataset identifier {shortHash}{abbreviation}L{line}.
func (f Finding) ID(shortHash string) string {
	return fmt.Sprintf("%s%sL%d", shortHash, f.Abbreviation(), f.Location.Line)
}
