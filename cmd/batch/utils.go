package batch

import (
	"context"
	"errors"

	"github.com/hashicorp/go-hclog"

	"github.com/gash-io/gash/internal/replay"
	"github.com/gash-io/gash/internal/retry"
	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
)

// replayer replays the workflow history of one repository.
type replayer interface {
	ReplayURL(ctx context.Context, rawURL string) (replay.Summary, error)
}

// batchResult lists the repositories that were replayed and the ones that were skipped.
type batchResult struct {
	Succeeded []string
	Failed    []string
}

// replayAll replays every URL in turn. A repository that still fails after the retry
// budget is skipped. Credential failures and cancellation stop the whole batch.
func replayAll(ctx context.Context, r replayer, urls []string, policy retry.Policy, logger hclog.Logger) (batchResult, error) {
	var result batchResult
	for i, u := range urls {
		var summary replay.Summary
		err := policy.Do(ctx, "replay "+u, func(ctx context.Context) error {
			var err error
			summary, err = r.ReplayURL(ctx, u)
			return err
		})
		if err != nil {
			if gasherrors.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			logger.Warn("skipping repository", "url", u, "error", err)
			result.Failed = append(result.Failed, u)
			continue
		}
		logger.Info("repository replayed", "url", u, "progress", i+1, "total", len(urls),
			"commits", summary.Commits, "analyzed", summary.Analyzed, "archived", summary.Archived)
		result.Succeeded = append(result.Succeeded, u)
	}
	return result, nil
}
