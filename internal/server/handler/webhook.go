// Package handler provides the HTTP handlers for the webhook and task
// endpoints.
package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/speclabs/spec-test-bot/internal/core"
	"github.com/speclabs/spec-test-bot/internal/signature"
)

// maxWebhookBodySize matches GitHub's documented payload cap; a delivery the
// provider is willing to send must not be rejected for size here, or it will
// be redelivered forever.
const maxWebhookBodySize = 25 << 20

// maxTaskBodySize caps task envelopes, which we produce ourselves and keep
// small.
const maxTaskBodySize = 1 << 20

// WebhookHandler processes incoming webhooks from GitHub: verify the
// delivery signature, classify the event, and enqueue a task. The slow work
// happens later, behind the queue; this path must answer within GitHub's
// delivery timeout.
type WebhookHandler struct {
	secret     string
	classifier *core.Classifier
	queue      core.TaskQueue
	logger     *slog.Logger
}

// NewWebhookHandler creates a webhook handler. An empty secret disables
// signature verification; that condition is logged on every delivery so it
// cannot go unnoticed in a deployed environment.
func NewWebhookHandler(secret string, classifier *core.Classifier, queue core.TaskQueue, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:     secret,
		classifier: classifier,
		queue:      queue,
		logger:     logger,
	}
}

// Handle implements POST /api/webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	if h.secret == "" {
		h.logger.Warn("webhook signature verification is DISABLED; set GITHUB_WEBHOOK_SECRET outside local development")
	}
	if err := signature.Verify(body, r.Header.Get(signature.WebhookHeader), h.secret); err != nil {
		writeSignatureError(w, err, "x-hub-signature")
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	logger := h.logger.With("event", eventType, "delivery_id", r.Header.Get("X-GitHub-Delivery"))

	decision, err := h.classifier.Classify(eventType, body)
	if err != nil {
		// A permanently unparseable payload must not be retried by GitHub,
		// so it is acknowledged despite the error.
		logger.Error("malformed webhook payload", "error", err)
		_, _ = fmt.Fprint(w, "payload not understood")
		return
	}

	switch decision.Kind {
	case core.DecisionIgnored:
		logger.Info("webhook ignored", "reason", decision.Reason)
		_, _ = fmt.Fprint(w, "event ignored")

	case core.DecisionUnsupported:
		logger.Warn("webhook recognized but not implemented", "reason", decision.Reason)
		_, _ = fmt.Fprint(w, "event not implemented")

	case core.DecisionDispatched:
		if err := h.queue.Enqueue(r.Context(), *decision.Task); err != nil {
			// 5xx makes GitHub retry the whole webhook; there is no
			// separate local retry for dispatch failures.
			logger.Error("failed to enqueue task", "task", string(decision.Task.Name), "error", err)
			http.Error(w, "failed to enqueue task", http.StatusInternalServerError)
			return
		}
		logger.Info("task dispatched", "task", string(decision.Task.Name))
		_, _ = fmt.Fprint(w, "task dispatched")
	}
}

// writeSignatureError maps verification failures to the 403 responses the
// sender observes. The body names the missing header so misconfigured
// senders can diagnose themselves.
func writeSignatureError(w http.ResponseWriter, err error, headerName string) {
	switch {
	case errors.Is(err, signature.ErrMissingSignature):
		http.Error(w, fmt.Sprintf("no %s header", headerName), http.StatusForbidden)
	default:
		http.Error(w, "signature mismatch", http.StatusForbidden)
	}
}
