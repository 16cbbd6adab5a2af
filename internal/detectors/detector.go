// Package detectors implements the smell families and the registry that runs them
// against a parsed workflow.
package detectors

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/retry"
	"github.com/gash-io/gash/internal/workflow"
)

// Detector names accepted by the registry.
const (
	NameHardCodedSecret     = "HardCodedSecret"
	NameExcessivePrivilege  = "ExcessivePrivilege"
	NameUnsecureProtocol    = "UnsecureProtocol"
	NameUntrustedDependency = "UntrustedDependency"
	NameRemoteTrigger       = "RemoteTrigger"
	NameMisconfiguration    = "Misconfiguration"
	NameCodeReplica         = "CodeReplica"
	NameErrorHandling       = "ErrorHandling"
	NameLongBlocks          = "LongBlocks"
	NameGlobalVariables     = "GlobalVariables"
	NameConditionComplexity = "ConditionComplexity"
)

// Detector checks one smell family. Implementations must not mutate the workflow.
type Detector interface {
	Name() string
	Detect(ctx context.Context, wf *workflow.Workflow) ([]findings.Finding, error)
}

// Verifier answers owner-verification and advisory questions about an action repository.
type Verifier interface {
	OwnerVerified(ctx context.Context, owner string) (bool, error)
	Advisories(ctx context.Context, owner, repo string) ([]string, error)
}

// BadgeChecker reports whether an action carries a marketplace verification badge.
type BadgeChecker interface {
	HasVerifiedBadge(ctx context.Context, action string) (bool, error)
}

// Options configure detector construction. Zero values fall back to the catalog.
type Options struct {
	Catalog          *catalog.Catalog
	ReplicaThreshold int
	MaxGlobalVars    int
	Verifier         Verifier
	Badges           BadgeChecker
	Retry            retry.Policy
	Logger           hclog.Logger
}

func (o Options) withDefaults() Options {
	if o.Catalog == nil {
		o.Catalog = catalog.Default()
	}
	if o.ReplicaThreshold <= 0 {
		o.ReplicaThreshold = o.Catalog.Thresholds.Replica
	}
	if o.MaxGlobalVars <= 0 {
		o.MaxGlobalVars = o.Catalog.Thresholds.MaxGlobalVars
	}
	if o.Logger == nil {
		o.Logger = hclog.NewNullLogger()
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = retry.Default(o.Logger)
	}
	return o
}

// Factory builds a detector from options.
type Factory func(opts Options) Detector

var factories = map[string]Factory{
	NameHardCodedSecret:     func(o Options) Detector { return &hardCodedSecret{cat: o.Catalog} },
	NameExcessivePrivilege:  func(o Options) Detector { return &excessivePrivilege{cat: o.Catalog} },
	NameUnsecureProtocol:    func(o Options) Detector { return &unsecureProtocol{cat: o.Catalog} },
	NameUntrustedDependency: newUntrustedDependency,
	NameRemoteTrigger:       func(o Options) Detector { return &remoteTrigger{cat: o.Catalog} },
	NameMisconfiguration:    func(o Options) Detector { return &misconfiguration{cat: o.Catalog} },
	NameCodeReplica:         func(o Options) Detector { return &codeReplica{cat: o.Catalog, threshold: o.ReplicaThreshold} },
	NameErrorHandling:       func(o Options) Detector { return &errorHandling{cat: o.Catalog} },
	NameLongBlocks:          func(o Options) Detector { return &longBlocks{cat: o.Catalog} },
	NameGlobalVariables:     func(o Options) Detector { return &globalVariables{cat: o.Catalog, max: o.MaxGlobalVars} },
	NameConditionComplexity: func(o Options) Detector { return &conditionComplexity{cat: o.Catalog} },
}

// order is the battery order used for reports and dataset columns.
var order = []string{
	NameHardCodedSecret,
	NameExcessivePrivilege,
	NameUnsecureProtocol,
	NameUntrustedDependency,
	NameRemoteTrigger,
	NameMisconfiguration,
	NameCodeReplica,
	NameErrorHandling,
	NameLongBlocks,
	NameGlobalVariables,
	NameConditionComplexity,
}

// Names returns every registered detector in battery order.
func Names() []string {
	return append([]string(nil), order...)
}

// New resolves a detector by name.
func New(name string, opts Options) (Detector, error) {
	f, ok := factories[name]
	if !ok {
		known := Names()
		sort.Strings(known)
		return nil, fmt.Errorf("unknown detector %q, available: %v", name, known)
	}
	return f(opts.withDefaults()), nil
}

// NewSet resolves the named detectors, or the full battery when names is empty.
func NewSet(names []string, opts Options) ([]Detector, error) {
	if len(names) == 0 {
		names = order
	}
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		d, err := New(name, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
