package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Delivery receives a previously enqueued envelope: the exact body bytes and
// the signature computed over them. A non-nil return nacks the message so
// the broker can redeliver it.
type Delivery func(ctx context.Context, body []byte, sig string) error

// Runner subscribes to the task topic and drives envelopes through a
// Delivery function. It is only used with the in-process driver; with the
// HTTP driver an external broker performs the delivery instead.
type Runner struct {
	subscriber message.Subscriber
	topic      string
	deliver    Delivery
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// Start begins consuming. It returns once the subscription is established;
// consumption stops when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	msgs, err := r.subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.topic, err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for msg := range msgs {
			r.handle(msg)
		}
	}()
	return nil
}

func (r *Runner) handle(msg *message.Message) {
	err := r.deliver(msg.Context(), msg.Payload, msg.Metadata.Get(signatureKey))
	if err != nil {
		r.logger.Error("task delivery failed, nacking for redelivery",
			"message_id", msg.UUID,
			"error", err,
		)
		msg.Nack()
		return
	}
	msg.Ack()
}

// Wait blocks until the consumer goroutine has drained after cancellation.
func (r *Runner) Wait() {
	r.wg.Wait()
}
