package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclabs/spec-test-bot/internal/core"
	"github.com/speclabs/spec-test-bot/internal/signature"
)

type fakeExecutor struct {
	executed []core.Task
	err      error
}

func (e *fakeExecutor) Execute(_ context.Context, task core.Task) error {
	e.executed = append(e.executed, task)
	return e.err
}

func taskEnvelope(t *testing.T) []byte {
	t.Helper()
	task, err := core.NewCreateCheckTask(core.CreateCheckParams{
		InstallationID: 42, Owner: "octo", Repo: "hello-world", HeadBranch: "main", HeadSHA: "deadbeef",
	})
	require.NoError(t, err)
	body, err := json.Marshal(task)
	require.NoError(t, err)
	return body
}

func postTask(h *TaskHandler, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/task", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(signature.TaskHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestTask_ValidEnvelopeExecutes(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTaskHandler("task-secret", exec, testLogger())

	body := taskEnvelope(t)
	rec := postTask(h, body, signature.Sign(body, "task-secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, exec.executed, 1)
	assert.Equal(t, core.TaskCreateCheck, exec.executed[0].Name)
}

func TestTask_BadSignatureRejectedBeforeExecution(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTaskHandler("task-secret", exec, testLogger())

	body := taskEnvelope(t)
	rec := postTask(h, body, "sha1=wrong")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "signature mismatch")
	assert.Empty(t, exec.executed, "nothing may execute on signature failure")
}

func TestTask_MissingSignature(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTaskHandler("task-secret", exec, testLogger())

	body := taskEnvelope(t)
	rec := postTask(h, body, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "no x-self-signature header")
	assert.Empty(t, exec.executed)
}

func TestTask_WebhookSecretDoesNotOpenTaskEndpoint(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTaskHandler("task-secret", exec, testLogger())

	// An envelope signed with the *webhook* secret must not verify here;
	// the two boundaries use independent secrets.
	body := taskEnvelope(t)
	rec := postTask(h, body, signature.Sign(body, "hook-secret"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, exec.executed)
}

func TestTask_ExecutionFailureIs5xx(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("github unavailable")}
	h := NewTaskHandler("task-secret", exec, testLogger())

	body := taskEnvelope(t)
	rec := postTask(h, body, signature.Sign(body, "task-secret"))

	// Non-2xx so the queue broker retries the task.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTask_RedeliveredEnvelopeExecutesAgain(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTaskHandler("task-secret", exec, testLogger())

	body := taskEnvelope(t)
	sig := signature.Sign(body, "task-secret")

	// At-least-once delivery: the executor performs no local dedup; each
	// delivery runs the operation again.
	assert.Equal(t, http.StatusOK, postTask(h, body, sig).Code)
	assert.Equal(t, http.StatusOK, postTask(h, body, sig).Code)
	assert.Len(t, exec.executed, 2)
}

func TestTask_UndecodableEnvelopeDropped(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTaskHandler("task-secret", exec, testLogger())

	body := []byte(`not json`)
	rec := postTask(h, body, signature.Sign(body, "task-secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, exec.executed)
}
