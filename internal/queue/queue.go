// Package queue hands signed task envelopes to a durable broker for later,
// possibly different-process, delivery back to this same service's task
// endpoint. The webhook path only waits for the broker's acknowledgment,
// never for task execution.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	wmhttp "github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/speclabs/spec-test-bot/internal/core"
	"github.com/speclabs/spec-test-bot/internal/signature"
)

// ErrQueueUnavailable reports that the broker rejected a task submission.
// The webhook handler surfaces this as a server error so that GitHub retries
// the whole webhook; there is no separate local retry for dispatch failures.
var ErrQueueUnavailable = errors.New("task queue unavailable")

// signatureKey is the metadata key carrying the envelope signature between
// the dispatcher and the driver-specific delivery mechanism.
const signatureKey = "self-signature"

// Config selects and addresses the queue driver.
type Config struct {
	Driver    string
	Topic     string
	TargetURL string
}

// TaskQueue implements core.TaskQueue on top of a watermill publisher.
type TaskQueue struct {
	publisher message.Publisher
	secret    string
	topic     string
	logger    *slog.Logger
}

var _ core.TaskQueue = (*TaskQueue)(nil)

// Enqueue serializes the task, signs the serialized bytes with the internal
// secret, and publishes the envelope. The signature covers the exact bytes
// that travel, never a re-serialization.
func (q *TaskQueue) Enqueue(ctx context.Context, task core.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(signatureKey, signature.Sign(body, q.secret))
	msg.SetContext(ctx)

	if err := q.publisher.Publish(q.topic, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	q.logger.Info("task enqueued", "task", string(task.Name), "message_id", msg.UUID)
	return nil
}

// Close releases the underlying publisher.
func (q *TaskQueue) Close() error {
	return q.publisher.Close()
}

// NewHTTPQueue builds a push-style queue that POSTs signed envelopes at the
// configured task endpoint. The broker in front of that endpoint owns the
// retry/backoff policy on non-2xx responses.
func NewHTTPQueue(cfg Config, secret string, logger *slog.Logger) (*TaskQueue, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	pub, err := wmhttp.NewPublisher(wmhttp.PublisherConfig{
		MarshalMessageFunc: func(_ string, msg *message.Message) (*http.Request, error) {
			req, err := http.NewRequest(http.MethodPost, cfg.TargetURL, bytes.NewReader(msg.Payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(signature.TaskHeader, msg.Metadata.Get(signatureKey))
			return req, nil
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create http task publisher: %w", err)
	}

	return &TaskQueue{
		publisher: pub,
		secret:    secret,
		topic:     cfg.Topic,
		logger:    logger,
	}, nil
}

// NewLocalQueue builds an in-process queue for local development, together
// with the runner that re-delivers envelopes to the given delivery function.
// Delivery goes through the same signature verification as the HTTP path.
func NewLocalQueue(cfg Config, secret string, deliver Delivery, logger *slog.Logger) (*TaskQueue, *Runner) {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64, Persistent: false},
		watermill.NewStdLogger(false, false),
	)

	q := &TaskQueue{
		publisher: pubsub,
		secret:    secret,
		topic:     cfg.Topic,
		logger:    logger,
	}
	runner := &Runner{
		subscriber: pubsub,
		topic:      cfg.Topic,
		deliver:    deliver,
		logger:     logger,
	}
	return q, runner
}
