package github

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/speclabs/spec-test-bot/internal/core"
)

// CheckRunName is the fixed display name of the check run on GitHub.
const CheckRunName = "Test check"

// concludeTimeout bounds the terminal update once it has been detached from
// the caller's context.
const concludeTimeout = 30 * time.Second

// Conclusions a check run can be resolved to.
const (
	ConclusionSuccess        = "success"
	ConclusionFailure        = "failure"
	ConclusionNeutral        = "neutral"
	ConclusionActionRequired = "action_required"
)

// Verdict is the outcome of evaluating a commit, rendered into the check
// run's terminal update.
type Verdict struct {
	Conclusion string
	Title      string
	Summary    string
	Text       string
}

// ConclusionPolicy computes a verdict from externally observable evidence.
// The two-step state machine around it is fixed; the policy is the part
// expected to evolve.
type ConclusionPolicy interface {
	Evaluate(ctx context.Context, client Client, p core.CreateCheckParams) (Verdict, error)
}

// CheckRunner drives a check run from in_progress to a terminal conclusion.
// Once the create call has succeeded, the conclude call always follows,
// whatever the policy does: a check run stuck in_progress blocks merge
// gating indefinitely, so evaluation failures fail closed to a terminal
// fallback conclusion instead.
type CheckRunner struct {
	detailsBaseURL string
	concludeDelay  time.Duration
	policy         ConclusionPolicy
	logger         *slog.Logger
}

// NewCheckRunner creates a lifecycle runner with the given conclusion policy.
func NewCheckRunner(detailsBaseURL string, concludeDelay time.Duration, policy ConclusionPolicy, logger *slog.Logger) *CheckRunner {
	return &CheckRunner{
		detailsBaseURL: detailsBaseURL,
		concludeDelay:  concludeDelay,
		policy:         policy,
		logger:         logger,
	}
}

// Run creates the check run, evaluates the conclusion policy, and concludes
// the run. Exactly one create call and one update call per invocation.
func (r *CheckRunner) Run(ctx context.Context, client Client, p core.CreateCheckParams) error {
	startedAt := time.Now()

	created, err := client.CreateCheckRun(ctx, p.Owner, p.Repo, github.CreateCheckRunOptions{
		Name:       CheckRunName,
		HeadSHA:    p.HeadSHA,
		Status:     github.Ptr("in_progress"),
		StartedAt:  &github.Timestamp{Time: startedAt},
		DetailsURL: github.Ptr(r.detailsURL(p)),
	})
	if err != nil {
		return fmt.Errorf("create check run for %s/%s@%s: %w", p.Owner, p.Repo, p.HeadSHA, err)
	}
	checkRunID := created.GetID()

	r.logger.Info("check run started",
		"owner", p.Owner,
		"repo", p.Repo,
		"head_sha", p.HeadSHA,
		"check_run_id", checkRunID,
	)

	verdict, err := r.policy.Evaluate(ctx, client, p)
	if err != nil {
		// Fail closed to a terminal state, never open to limbo.
		r.logger.Warn("conclusion policy failed, falling back",
			"check_run_id", checkRunID,
			"error", err,
		)
		verdict = fallbackVerdict(err)
	}

	if r.concludeDelay > 0 {
		select {
		case <-time.After(r.concludeDelay):
		case <-ctx.Done():
			// Cut the delay short, conclude immediately.
		}
	}

	// The run exists on GitHub, so cancellation of the caller must not
	// strand it in_progress: conclude on a context that survives ctx.
	concludeCtx, cancelConclude := context.WithTimeout(context.WithoutCancel(ctx), concludeTimeout)
	defer cancelConclude()

	_, err = client.UpdateCheckRun(concludeCtx, p.Owner, p.Repo, checkRunID, github.UpdateCheckRunOptions{
		Name:        CheckRunName,
		Status:      github.Ptr("completed"),
		Conclusion:  github.Ptr(verdict.Conclusion),
		CompletedAt: &github.Timestamp{Time: time.Now()},
		Output: &github.CheckRunOutput{
			Title:   github.Ptr(verdict.Title),
			Summary: github.Ptr(verdict.Summary),
			Text:    github.Ptr(verdict.Text),
		},
	})
	if err != nil {
		return fmt.Errorf("conclude check run %d: %w", checkRunID, err)
	}

	r.logger.Info("check run concluded",
		"check_run_id", checkRunID,
		"conclusion", verdict.Conclusion,
	)
	return nil
}

func (r *CheckRunner) detailsURL(p core.CreateCheckParams) string {
	return fmt.Sprintf("%s/runs/%s/%s/%s", r.detailsBaseURL, p.Owner, p.Repo, p.HeadSHA)
}

func fallbackVerdict(err error) Verdict {
	return Verdict{
		Conclusion: ConclusionActionRequired,
		Title:      "Check could not be evaluated",
		Summary:    "The commit could not be inspected, so no verdict was reached.",
		Text:       fmt.Sprintf("Evaluation failed: %v\n\nRe-run the check suite to try again.", err),
	}
}

// resultsLinkPattern recognizes a linked test-report URL in a commit message.
var resultsLinkPattern = regexp.MustCompile(`https://wpt\.fyi/results/\S+`)

// ResultsLinkPolicy concludes a check run by fetching the head commit and
// searching its message for a test-report link.
type ResultsLinkPolicy struct{}

// Evaluate returns success when the commit message links a test report,
// neutral when it does not. Fetch failures propagate so the runner can fall
// back to its terminal default.
func (ResultsLinkPolicy) Evaluate(ctx context.Context, client Client, p core.CreateCheckParams) (Verdict, error) {
	commit, err := client.GetCommit(ctx, p.Owner, p.Repo, p.HeadSHA)
	if err != nil {
		return Verdict{}, fmt.Errorf("fetch commit %s: %w", p.HeadSHA, err)
	}

	message := commit.GetCommit().GetMessage()
	if link := resultsLinkPattern.FindString(message); link != "" {
		return Verdict{
			Conclusion: ConclusionSuccess,
			Title:      "Test report found",
			Summary:    "The commit message links a test report.",
			Text:       fmt.Sprintf("Results: [%s](%s)", link, link),
		}, nil
	}

	return Verdict{
		Conclusion: ConclusionNeutral,
		Title:      "No test report",
		Summary:    "The commit message does not link a test report.",
		Text:       "Nothing to evaluate for this commit.",
	}, nil
}
