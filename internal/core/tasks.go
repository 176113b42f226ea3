// Package core defines the essential interfaces and data structures that form
// the backbone of the application: named tasks, classification decisions, and
// the contracts between the webhook side and the execution side.
package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// TaskName identifies a unit of deferred work. The set of names is closed;
// the executor treats anything else as a poison pill and drops it.
type TaskName string

const (
	// TaskCreateCheck drives a check run from in_progress to completed.
	TaskCreateCheck TaskName = "create_check"
	// TaskReactToComment adds a reaction to an issue comment.
	TaskReactToComment TaskName = "react_to_comment"
)

// CreateCheckParams carries everything the check-run lifecycle needs. All
// context travels inside the task because the executing process may not be
// the one that enqueued it.
type CreateCheckParams struct {
	InstallationID int64  `json:"installation_id"`
	Owner          string `json:"owner"`
	Repo           string `json:"repo"`
	HeadBranch     string `json:"head_branch"`
	HeadSHA        string `json:"head_sha"`
}

// ReactToCommentParams identifies the comment to react to.
type ReactToCommentParams struct {
	InstallationID int64  `json:"installation_id"`
	Owner          string `json:"owner"`
	Repo           string `json:"repo"`
	CommentID      int64  `json:"comment_id"`
}

// Task is the unit handed to the queue: a name plus its serialized parameter
// record. It is immutable once created; the dispatcher owns it until the
// queue acknowledges acceptance.
type Task struct {
	Name       TaskName        `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// NewCreateCheckTask builds a create_check task from typed parameters.
func NewCreateCheckTask(p CreateCheckParams) (Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Task{}, fmt.Errorf("marshal create_check parameters: %w", err)
	}
	return Task{Name: TaskCreateCheck, Parameters: raw}, nil
}

// NewReactToCommentTask builds a react_to_comment task from typed parameters.
func NewReactToCommentTask(p ReactToCommentParams) (Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Task{}, fmt.Errorf("marshal react_to_comment parameters: %w", err)
	}
	return Task{Name: TaskReactToComment, Parameters: raw}, nil
}

// TaskQueue accepts tasks for durable, asynchronous delivery back to this
// same service. Enqueue returns once the broker has acknowledged the task,
// not once the task has executed; the webhook path must stay fast.
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error
}

// Executor runs a previously dispatched task after its envelope has been
// re-verified with the internal secret.
type Executor interface {
	Execute(ctx context.Context, task Task) error
}
