package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/speclabs/spec-test-bot/internal/core"
	"github.com/speclabs/spec-test-bot/internal/signature"
)

// TaskHandler executes envelopes delivered back by the task queue. The
// envelope is re-verified with the internal secret before anything runs;
// queue brokers are not trusted transitively.
type TaskHandler struct {
	secret   string
	executor core.Executor
	logger   *slog.Logger
}

// NewTaskHandler creates a task handler.
func NewTaskHandler(secret string, executor core.Executor, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{secret: secret, executor: executor, logger: logger}
}

// Handle implements POST /api/task. Signature failures are 403 and final;
// execution failures are 5xx so the broker retries the task.
func (h *TaskHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTaskBodySize))
	if err != nil {
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	if err := h.Deliver(r.Context(), body, r.Header.Get(signature.TaskHeader)); err != nil {
		if errors.Is(err, signature.ErrMissingSignature) || errors.Is(err, signature.ErrSignatureMismatch) {
			writeSignatureError(w, err, "x-self-signature")
			return
		}
		h.logger.Error("task execution failed", "error", err)
		http.Error(w, "task execution failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Deliver verifies and executes one envelope. It is the single entry point
// for both delivery mechanisms: the HTTP endpoint above and the in-process
// queue runner.
func (h *TaskHandler) Deliver(ctx context.Context, body []byte, sig string) error {
	if h.secret == "" {
		h.logger.Warn("task signature verification is DISABLED; set TASK_QUEUE_SECRET outside local development")
	}
	if err := signature.Verify(body, sig, h.secret); err != nil {
		return err
	}

	var task core.Task
	if err := json.Unmarshal(body, &task); err != nil {
		// A correctly signed but undecodable envelope can never succeed;
		// dropping it beats an endless redelivery loop.
		h.logger.Warn("dropping undecodable task envelope", "error", err)
		return nil
	}

	return h.executor.Execute(ctx, task)
}
