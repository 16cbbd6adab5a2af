// Package replay runs the detector battery over every historical revision of the
// workflow files of one repository.
package replay

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/internal/findings"
	"github.com/gash-io/gash/internal/githubapi"
	"github.com/gash-io/gash/internal/history"
	"github.com/gash-io/gash/internal/retry"
	"github.com/gash-io/gash/internal/workflow"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
	"github.com/gash-io/gash/pkg/shared/files"
)

var issueRefRe = regexp.MustCompile(`\(#(\d+)\)`)

// MetadataSource supplies platform metadata of commits and issues.
type MetadataSource interface {
	Commit(ctx context.Context, owner, repo, sha string) (githubapi.CommitInfo, error)
	Issue(ctx context.Context, owner, repo string, number int) (githubapi.IssueInfo, error)
}

// Battery runs a set of detectors over one workflow.
type Battery interface {
	Run(ctx context.Context, wf *workflow.Workflow) []findings.Group
}

// Sink receives one record per replayed (commit, file) pair.
type Sink interface {
	Write(r Record) error
}

// Record is one replayed revision of a workflow file.
type Record struct {
	Project      string
	Commit       history.Commit
	CommitInfo   githubapi.CommitInfo
	Modification history.Modification
	IssueNumbers []string
	Issue        githubapi.IssueInfo
	Paths        ArchivePaths
	// Analyzed is false for deletions, which are archived without running detectors.
	Analyzed       bool
	Groups         []findings.Group
	CriticalBranch string
}

// FindingIDs returns the dataset identifiers of every finding of the record.
func (r Record) FindingIDs() []string {
	var ids []string
	for _, f := range findings.Flatten(r.Groups) {
		ids = append(ids, f.ID(r.Commit.ShortHash()))
	}
	return ids
}

// Summary counts the outcome of a replay session.
type Summary struct {
	SessionID string
	Commits   int
	Analyzed  int
	Archived  int
	Skipped   int
}

// Config wires an Engine. Metadata may be nil, in which case platform columns stay blank.
type Config struct {
	Project  string
	Owner    string
	Repo     string
	Dir      string
	Provider history.Provider
	Battery  Battery
	Metadata MetadataSource
	Archive  *Archive
	Sink     Sink
	Retry    retry.Policy
	Logger   hclog.Logger
}

// Engine replays one repository.
type Engine struct {
	cfg    Config
	logger hclog.Logger
}

// NewEngine validates cfg and fills its defaults.
func NewEngine(cfg Config) (*Engine, error) {
	switch {
	case cfg.Provider == nil:
		return nil, errors.New("replay: history provider is required")
	case cfg.Battery == nil:
		return nil, errors.New("replay: detector battery is required")
	case cfg.Archive == nil:
		return nil, errors.New("replay: archive is required")
	case cfg.Sink == nil:
		return nil, errors.New("replay: sink is required")
	}
	if cfg.Dir == "" {
		cfg.Dir = githubapi.WorkflowsDir
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default(cfg.Logger)
	}
	return &Engine{cfg: cfg, logger: cfg.Logger}, nil
}

// Run walks the history oldest first and emits a record for every workflow change.
// A fatal authentication error from the metadata source stops the session.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	summary := Summary{SessionID: uuid.NewString()}
	logger := e.logger.With("session", summary.SessionID, "project", e.cfg.Project)
	logger.Info("starting replay session")

	err := e.cfg.Provider.Walk(ctx, func(c history.Commit) error {
		summary.Commits++
		var mods []history.Modification
		for _, mod := range c.Modifications {
			if e.relevant(mod) {
				mods = append(mods, mod)
			}
		}
		if len(mods) == 0 {
			return nil
		}

		info, err := e.commitInfo(ctx, logger, c)
		if err != nil {
			return err
		}
		numbers := IssueNumbers(c.Message)
		issue, err := e.issueInfo(ctx, logger, numbers)
		if err != nil {
			return err
		}

		for _, mod := range mods {
			rec := Record{
				Project:      e.cfg.Project,
				Commit:       c,
				CommitInfo:   info,
				Modification: mod,
				IssueNumbers: numbers,
				Issue:        issue,
			}
			if err := e.replay(ctx, logger, &summary, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("replay session aborted", "error", err)
		return summary, err
	}

	logger.Info("replay session finished",
		"commits", summary.Commits, "analyzed", summary.Analyzed,
		"archived", summary.Archived, "skipped", summary.Skipped)
	return summary, nil
}

func (e *Engine) replay(ctx context.Context, logger hclog.Logger, summary *Summary, rec Record) error {
	mod := rec.Modification
	paths, err := e.cfg.Archive.Save(rec.Commit.ShortHash(), mod)
	if err != nil {
		return err
	}
	rec.Paths = paths

	if mod.Type == history.ChangeDelete {
		logger.Debug("archived deleted workflow", "commit", rec.Commit.ShortHash(), "path", mod.Path())
		summary.Archived++
		return e.write(rec)
	}

	wf, err := workflow.Parse(mod.Path(), []byte(mod.After))
	if err != nil {
		logger.Warn("skipping unparsable revision", "commit", rec.Commit.ShortHash(), "path", mod.Path(), "error", err)
		summary.Skipped++
		return nil
	}

	rec.Analyzed = true
	rec.Groups = e.cfg.Battery.Run(ctx, wf)
	rec.CriticalBranch, _ = wf.CriticalBranch()
	summary.Analyzed++
	logger.Debug("analyzed revision", "commit", rec.Commit.ShortHash(), "path", mod.Path(),
		"type", mod.Type, "findings", findings.Count(rec.Groups))
	return e.write(rec)
}

func (e *Engine) write(rec Record) error {
	if err := e.cfg.Sink.Write(rec); err != nil {
		return fmt.Errorf("write record for %s: %w", rec.Commit.ShortHash(), err)
	}
	return nil
}

func (e *Engine) relevant(mod history.Modification) bool {
	p := mod.Path()
	return history.UnderDir(p, e.cfg.Dir) && files.HasWorkflowExtension(p)
}

// commitInfo fetches platform metadata of c. Failures other than fatal ones leave it blank.
func (e *Engine) commitInfo(ctx context.Context, logger hclog.Logger, c history.Commit) (githubapi.CommitInfo, error) {
	if e.cfg.Metadata == nil {
		return githubapi.CommitInfo{}, nil
	}
	info, err := retry.Value(ctx, e.cfg.Retry, "fetch commit "+c.ShortHash(), func(ctx context.Context) (githubapi.CommitInfo, error) {
		return e.cfg.Metadata.Commit(ctx, e.cfg.Owner, e.cfg.Repo, c.Hash)
	})
	if err != nil {
		if gasherrors.IsFatal(err) || ctx.Err() != nil {
			return info, err
		}
		logger.Warn("commit metadata unavailable", "commit", c.ShortHash(), "error", err)
		return githubapi.CommitInfo{}, nil
	}
	return info, nil
}

// issueInfo fetches the first referenced issue. Failures other than fatal ones leave it blank.
func (e *Engine) issueInfo(ctx context.Context, logger hclog.Logger, numbers []string) (githubapi.IssueInfo, error) {
	if e.cfg.Metadata == nil || len(numbers) == 0 {
		return githubapi.IssueInfo{}, nil
	}
	number, err := strconv.Atoi(numbers[0])
	if err != nil {
		return githubapi.IssueInfo{}, nil
	}
	info, err := retry.Value(ctx, e.cfg.Retry, fmt.Sprintf("fetch issue #%d", number), func(ctx context.Context) (githubapi.IssueInfo, error) {
		return e.cfg.Metadata.Issue(ctx, e.cfg.Owner, e.cfg.Repo, number)
	})
	if err != nil {
		if gasherrors.IsFatal(err) || ctx.Err() != nil {
			return info, err
		}
		logger.Warn("issue metadata unavailable", "issue", number, "error", err)
		return githubapi.IssueInfo{}, nil
	}
	return info, nil
}

// IssueNumbers returns every (#N) reference of a commit message, in order.
func IssueNumbers(message string) []string {
	var out []string
	for _, m := range issueRefRe.FindAllStringSubmatch(message, -1) {
		out = append(out, m[1])
	}
	return out
}
