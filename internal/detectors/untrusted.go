package detectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/internal/catalog"
	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/retry"
	"github.com/gash-io/gash/internal/workflow"
)

// untrustedDependency looks up every owner/repo@ref reference. Lookups go through the
// retry policy; an exhausted lookup counts as "not verified".
type untrustedDependency struct {
	cat      *catalog.Catalog
	verifier Verifier
	badges   BadgeChecker
	retry    retry.Policy
	logger   hclog.Logger
}

func newUntrustedDependency(o Options) Detector {
	return &untrustedDependency{
		cat:      o.Catalog,
		verifier: o.Verifier,
		badges:   o.Badges,
		retry:    o.Retry,
		logger:   o.Logger.Named("untrusted-dependency"),
	}
}

func (d *untrustedDependency) Name() string { return NameUntrustedDependency }

// Enabled reports whether any lookup service is configured.
func (d *untrustedDependency) Enabled() bool {
	return d.verifier != nil || d.badges != nil
}

func (d *untrustedDependency) Detect(ctx context.Context, wf *workflow.Workflow) ([]findings.Finding, error) {
	if !d.Enabled() {
		d.logger.Debug("no lookup services configured, skipping", "source", wf.Source)
		return nil, nil
	}

	var out []findings.Finding
	for _, job := range wf.Jobs {
		out = append(out, d.check(ctx, wf, job.Uses, "job "+job.Name, job.Name, "", job.Line)...)
		for _, step := range job.Steps {
			out = append(out, d.check(ctx, wf, step.Uses, "step in job "+job.Name, job.Name, step.DisplayName(), step.Line)...)
		}
	}
	return out, ctx.Err()
}

func (d *untrustedDependency) check(ctx context.Context, wf *workflow.Workflow, uses, level, job, step string, line int) []findings.Finding {
	if uses == "" {
		return nil
	}
	m := usesRe.FindStringSubmatch(uses)
	if m == nil {
		return nil
	}
	owner, repo := m[1], m[2]

	var out []findings.Finding
	if !d.trusted(ctx, owner, repo) {
		out = append(out, findings.NewFrom(d.cat, findings.UntrustedDependency,
			fmt.Sprintf("Untrusted dependency found in %s: %s. Consider using actions from verified creators.", level, uses),
			at(wf, job, step, line)).WithProperty("action", uses))
	}

	if d.verifier != nil {
		advisories, err := retry.Value(ctx, d.retry, "advisories "+owner+"/"+repo, func(ctx context.Context) ([]string, error) {
			return d.verifier.Advisories(ctx, owner, repo)
		})
		if err != nil {
			d.logger.Warn("advisory lookup failed", "action", uses, "error", err)
		} else if len(advisories) > 0 {
			out = append(out, findings.NewFrom(d.cat, findings.VulnerableDependency,
				fmt.Sprintf("Vulnerabilities found in %s: %s. Details: %s", level, uses, strings.Join(advisories, "; ")),
				at(wf, job, step, line)).WithProperty("action", uses))
		}
	}
	return out
}

func (d *untrustedDependency) trusted(ctx context.Context, owner, repo string) bool {
	if d.verifier != nil {
		verified, err := retry.Value(ctx, d.retry, "verify owner "+owner, func(ctx context.Context) (bool, error) {
			return d.verifier.OwnerVerified(ctx, owner)
		})
		if err != nil {
			d.logger.Warn("owner verification failed, treating as unverified", "owner", owner, "error", err)
		} else if verified {
			return true
		}
	}
	if d.badges != nil {
		badge, err := retry.Value(ctx, d.retry, "marketplace badge "+repo, func(ctx context.Context) (bool, error) {
			return d.badges.HasVerifiedBadge(ctx, repo)
		})
		if err != nil {
			d.logger.Warn("badge lookup failed, treating as unverified", "action", repo, "error", err)
			return false
		}
		return badge
	}
	return false
}
