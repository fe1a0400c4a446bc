package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer runs a consumer group and hands every message to a MessageHandler.
// A message is marked only after the handler accepts it; a message that fails for a
// transient reason is retried in place so no later offset of its partition is marked
// before it.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger

	// Backoff is the wait between retries of a failing message; the last entry repeats.
	Backoff []time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = NewConfig("venuecal")
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Warn("kafka consumer error", "error", err)
		}
	}()
	for {
		err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger, backoff: c.Backoff})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err != nil {
			c.logger.Warn("kafka consume failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

var defaultRetryBackoff = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
	backoff []time.Duration
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for message := range claim.Messages() {
		if err := h.deliver(ctx, message); err != nil {
			// Session ended with the message unhandled; it stays unmarked and is redelivered.
			return nil
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// deliver hands msg to the handler until it is applied or rejected as poison.
// It returns an error only when ctx ends first.
func (h consumerGroupHandler) deliver(ctx context.Context, msg *sarama.ConsumerMessage) error {
	for attempt := 0; ; attempt++ {
		err := h.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrPoisonMessage) {
			h.logger.Warn("kafka message rejected",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			return nil
		}
		wait := h.retryAfter(attempt)
		h.logger.Warn("kafka message failed, retrying",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
			"attempt", attempt+1, "retry_in", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (h consumerGroupHandler) retryAfter(attempt int) time.Duration {
	backoff := h.backoff
	if len(backoff) == 0 {
		backoff = defaultRetryBackoff
	}
	if attempt >= len(backoff) {
		return backoff[len(backoff)-1]
	}
	return backoff[attempt]
}
