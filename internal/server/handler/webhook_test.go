package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclabs/spec-test-bot/internal/core"
	"github.com/speclabs/spec-test-bot/internal/signature"
)

type fakeQueue struct {
	tasks []core.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task core.Task) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newWebhookHandler(secret string, queue *fakeQueue) *WebhookHandler {
	return NewWebhookHandler(secret, core.NewClassifier("@spec-test-bot"), queue, testLogger())
}

func postWebhook(h *WebhookHandler, event string, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	if sig != "" {
		req.Header.Set(signature.WebhookHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhook_DummyEventWithValidSignature(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	body := []byte(`{}`)
	rec := postWebhook(h, "dummy", body, signature.Sign(body, "mock_secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, queue.tasks, "unrecognized events must not dispatch")
}

func TestWebhook_WrongSignature(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	rec := postWebhook(h, "dummy", []byte(`{}`), "sha1=wrong")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "signature mismatch")
	assert.Empty(t, queue.tasks)
}

func TestWebhook_NoSignature(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	rec := postWebhook(h, "dummy", []byte(`{}`), "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "no x-hub-signature header")
}

func TestWebhook_NoSecretSkipsVerification(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("", queue)

	rec := postWebhook(h, "dummy", []byte(`{}`), "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_CheckSuiteRequestedDispatches(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	body := []byte(`{
		"action": "requested",
		"check_suite": {"head_branch": "main", "head_sha": "deadbeef"},
		"repository": {"name": "hello-world", "owner": {"login": "octo"}},
		"installation": {"id": 42}
	}`)
	rec := postWebhook(h, "check_suite", body, signature.Sign(body, "mock_secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, core.TaskCreateCheck, queue.tasks[0].Name)

	var params core.CreateCheckParams
	require.NoError(t, json.Unmarshal(queue.tasks[0].Parameters, &params))
	assert.Equal(t, core.CreateCheckParams{
		InstallationID: 42,
		Owner:          "octo",
		Repo:           "hello-world",
		HeadBranch:     "main",
		HeadSHA:        "deadbeef",
	}, params)
}

func TestWebhook_IssueCommentMentionDispatches(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	body := []byte(`{
		"action": "created",
		"comment": {"id": 777, "body": "please @spec-test-bot", "user": {"login": "alice", "type": "User"}},
		"repository": {"name": "hello-world", "owner": {"login": "octo"}},
		"installation": {"id": 42}
	}`)
	rec := postWebhook(h, "issue_comment", body, signature.Sign(body, "mock_secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, core.TaskReactToComment, queue.tasks[0].Name)

	var params core.ReactToCommentParams
	require.NoError(t, json.Unmarshal(queue.tasks[0].Parameters, &params))
	assert.Equal(t, int64(777), params.CommentID)
}

func TestWebhook_LargePayloadAccepted(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	// Deliveries for busy repositories run well past 1 MB; GitHub allows
	// up to 25 MB and redelivers anything we reject.
	padding := strings.Repeat("x", 2<<20)
	body := []byte(`{
		"action": "requested",
		"check_suite": {"head_branch": "main", "head_sha": "deadbeef"},
		"repository": {"name": "hello-world", "owner": {"login": "octo"}, "description": "` + padding + `"},
		"installation": {"id": 42}
	}`)
	rec := postWebhook(h, "check_suite", body, signature.Sign(body, "mock_secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, core.TaskCreateCheck, queue.tasks[0].Name)
}

func TestWebhook_IgnoredEventsStillAcknowledged(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	body := []byte(`{"action": "completed", "check_suite": {"head_sha": "deadbeef"},
		"repository": {"name": "r", "owner": {"login": "o"}}, "installation": {"id": 1}}`)
	rec := postWebhook(h, "check_suite", body, signature.Sign(body, "mock_secret"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, queue.tasks)
}

func TestWebhook_MalformedPayloadAcknowledged(t *testing.T) {
	queue := &fakeQueue{}
	h := newWebhookHandler("mock_secret", queue)

	body := []byte(`{"action": `)
	rec := postWebhook(h, "check_suite", body, signature.Sign(body, "mock_secret"))

	// 200 on purpose: GitHub retrying a permanently broken payload helps no one.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, queue.tasks)
}

func TestWebhook_QueueUnavailableIs5xx(t *testing.T) {
	queue := &fakeQueue{err: errors.New("broker down")}
	h := newWebhookHandler("mock_secret", queue)

	body := []byte(`{
		"action": "requested",
		"check_suite": {"head_branch": "main", "head_sha": "deadbeef"},
		"repository": {"name": "hello-world", "owner": {"login": "octo"}},
		"installation": {"id": 42}
	}`)
	rec := postWebhook(h, "check_suite", body, signature.Sign(body, "mock_secret"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
