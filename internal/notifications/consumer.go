package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"courtside/internal/shared/config"
	"courtside/pkg/logger"

	"github.com/IBM/sarama"
)

// EventHandler processes one booking event. Returning an error leaves the
// message unmarked so it is redelivered.
type EventHandler func(ctx context.Context, event *BookingEvent) error

// Consumer reads booking events from Kafka with a consumer group. The server
// runs one to drive player notifications; it is optional and independent of
// the settlement path.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler EventHandler
	log     *logger.Logger
	cancel  context.CancelFunc
}

func NewConsumer(cfg *config.Config, handler EventHandler) (*Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		group:   group,
		topics:  []string{cfg.Kafka.BookingTopic},
		handler: handler,
		log:     logger.GetDefault(),
	}, nil
}

// Start launches the consume loop in the background until Stop or ctx
// cancellation.
func (c *Consumer) Start(ctx context.Context) {
	if c == nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		for err := range c.group.Errors() {
			c.log.Error("consumer group error", slog.Any("error", err))
		}
	}()

	go func() {
		handler := &groupHandler{handler: c.handler, log: c.log}
		for {
			if err := c.group.Consume(ctx, c.topics, handler); err != nil {
				c.log.Error("consume loop error", slog.Any("error", err))
				time.Sleep(time.Second)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

func (c *Consumer) Stop() error {
	if c == nil {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	return c.group.Close()
}

type groupHandler struct {
	handler EventHandler
	log     *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			var event BookingEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				h.log.Warn("skipping malformed booking event",
					slog.Int64("offset", message.Offset),
					slog.Any("error", err),
				)
				session.MarkMessage(message, "")
				continue
			}

			if err := h.handler(session.Context(), &event); err != nil {
				h.log.Error("failed to process booking event",
					slog.String("type", event.Type),
					slog.Any("error", err),
				)
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// LogHandler is the default event handler: it records each booking event.
// A real notification channel (email, push) plugs in by replacing it.
func LogHandler(log *logger.Logger) EventHandler {
	return func(_ context.Context, event *BookingEvent) error {
		log.Info("booking event received",
			slog.String("type", event.Type),
			slog.Any("payload", event.Payload),
		)
		return nil
	}
}
