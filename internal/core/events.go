package core

import (
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// DecisionKind is the closed set of outcomes the classifier can produce.
type DecisionKind int

const (
	// DecisionIgnored marks an event that is irrelevant to this service.
	DecisionIgnored DecisionKind = iota
	// DecisionUnsupported marks an event we recognize as actionable but have
	// no implementation for. Logged distinctly from ignored so that feature
	// gaps stay visible.
	DecisionUnsupported
	// DecisionDispatched marks an event that produced a task.
	DecisionDispatched
)

// Decision is the classifier's verdict on a single inbound event.
type Decision struct {
	Kind   DecisionKind
	Reason string
	Task   *Task
}

func ignored(reason string) Decision {
	return Decision{Kind: DecisionIgnored, Reason: reason}
}

func unsupported(reason string) Decision {
	return Decision{Kind: DecisionUnsupported, Reason: reason}
}

func dispatched(task Task) Decision {
	return Decision{Kind: DecisionDispatched, Task: &task}
}

// Classifier turns raw webhook deliveries into decisions. It is stateless;
// the mention token is the only configuration it carries.
type Classifier struct {
	mention string
}

// NewClassifier creates a classifier that recognizes mentions of the given
// bot handle in comment bodies.
func NewClassifier(mention string) *Classifier {
	return &Classifier{mention: mention}
}

// actionableEvents is the closed set of event types the classifier inspects.
// Everything else is ignored without being parsed.
var actionableEvents = map[string]bool{
	"check_suite":                 true,
	"check_run":                   true,
	"commit_comment":              true,
	"issue_comment":               true,
	"pull_request_review_comment": true,
}

// Classify inspects the event's declared type and payload action and decides
// whether it is actionable. A non-nil error means the payload was malformed
// for its declared type; callers log it and still acknowledge the webhook,
// since a permanently unparseable payload would otherwise retry forever.
func (c *Classifier) Classify(eventType string, payload []byte) (Decision, error) {
	if !actionableEvents[eventType] {
		return ignored("unrecognized event type"), nil
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return Decision{}, fmt.Errorf("parse %s payload: %w", eventType, err)
	}

	switch e := event.(type) {
	case *github.CheckSuiteEvent:
		return c.classifyCheckSuite(e)
	case *github.CheckRunEvent:
		return classifyCheckRun(e), nil
	case *github.CommitCommentEvent:
		return c.classifyComment("commit_comment", e.GetAction(), e.GetComment().GetUser(), e.GetComment().GetBody(), 0, e.GetRepo(), e.GetInstallation())
	case *github.IssueCommentEvent:
		return c.classifyComment("issue_comment", e.GetAction(), e.GetComment().GetUser(), e.GetComment().GetBody(), e.GetComment().GetID(), e.GetRepo(), e.GetInstallation())
	case *github.PullRequestReviewCommentEvent:
		return c.classifyComment("pull_request_review_comment", e.GetAction(), e.GetComment().GetUser(), e.GetComment().GetBody(), 0, e.GetRepo(), e.GetInstallation())
	default:
		return ignored("unrecognized event type"), nil
	}
}

func (c *Classifier) classifyCheckSuite(e *github.CheckSuiteEvent) (Decision, error) {
	action := e.GetAction()
	if action != "requested" && action != "rerequested" {
		return ignored(fmt.Sprintf("check_suite action %q", action)), nil
	}

	repo := e.GetRepo()
	if repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return Decision{}, fmt.Errorf("check_suite event is missing repository information")
	}
	if e.GetInstallation().GetID() == 0 {
		return Decision{}, fmt.Errorf("check_suite event is missing the installation id")
	}
	suite := e.GetCheckSuite()
	if suite.GetHeadSHA() == "" {
		return Decision{}, fmt.Errorf("check_suite event is missing the head sha")
	}

	task, err := NewCreateCheckTask(CreateCheckParams{
		InstallationID: e.GetInstallation().GetID(),
		Owner:          repo.GetOwner().GetLogin(),
		Repo:           repo.GetName(),
		HeadBranch:     suite.GetHeadBranch(),
		HeadSHA:        suite.GetHeadSHA(),
	})
	if err != nil {
		return Decision{}, err
	}
	return dispatched(task), nil
}

func classifyCheckRun(e *github.CheckRunEvent) Decision {
	switch e.GetAction() {
	case "rerequested":
		return unsupported("restarting check runs not implemented")
	case "requested_action":
		return unsupported("handling user actions not implemented")
	default:
		return ignored(fmt.Sprintf("check_run action %q", e.GetAction()))
	}
}

func (c *Classifier) classifyComment(eventType, action string, author *github.User, body string, commentID int64, repo *github.Repository, installation *github.Installation) (Decision, error) {
	if action != "created" && action != "edited" {
		return ignored(fmt.Sprintf("%s action %q", eventType, action)), nil
	}

	// Never react to bot comments, importantly including our own reactions
	// and comments, or a mishap turns into a feedback loop.
	if author.GetType() == "Bot" {
		return ignored(fmt.Sprintf("bot comment from %s", author.GetLogin())), nil
	}

	// Plain substring match. A handle that merely prefix-matches ours will
	// false-positive; kept for compatibility with the original behavior.
	if !strings.Contains(body, c.mention) {
		return ignored("comment does not mention the bot"), nil
	}

	if eventType != "issue_comment" {
		return unsupported(eventType + " reactions not implemented"), nil
	}

	if repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return Decision{}, fmt.Errorf("issue_comment event is missing repository information")
	}
	if installation.GetID() == 0 {
		return Decision{}, fmt.Errorf("issue_comment event is missing the installation id")
	}
	if commentID == 0 {
		return Decision{}, fmt.Errorf("issue_comment event is missing the comment id")
	}

	task, err := NewReactToCommentTask(ReactToCommentParams{
		InstallationID: installation.GetID(),
		Owner:          repo.GetOwner().GetLogin(),
		Repo:           repo.GetName(),
		CommentID:      commentID,
	})
	if err != nil {
		return Decision{}, err
	}
	return dispatched(task), nil
}
