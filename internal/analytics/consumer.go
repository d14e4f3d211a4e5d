package analytics

import (
	"context"
	"encoding/json"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/pkg/enums"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/outbox"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/idempotency"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/registry"
)

const analyticsRollupConsumer = "seller-analytics"

type rollupApplier interface {
	Apply(ctx context.Context, event payloads.OrderCreatedEvent) (int, error)
}

// Consumer folds order-created events into the analytics rollup.
type Consumer struct {
	rollup       rollupApplier
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the analytics rollup consumer.
func NewConsumer(rollup rollupApplier, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if rollup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rollup applier required")
	}
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders subscription required")
	}
	if manager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency manager required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderCreated, 1, func(data json.RawMessage) (interface{}, error) {
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	})

	return &Consumer{
		rollup:       rollup,
		subscription: subscription,
		idempotency:  manager,
		decoders:     decoders,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCreated) {
		c.logg.Info(logCtx, "skipping non order-created event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, analyticsRollupConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.EventOrderCreated, envelope.SchemaVersion(), envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, analyticsRollupConsumer, eventID)
		return processResult{nack: true}
	}
	payload := *decoded.(*payloads.OrderCreatedEvent)

	if _, err := c.rollup.Apply(ctx, payload); err != nil {
		c.logg.Error(c.logg.WithField(logCtx, "order_id", payload.OrderID.String()),
			"analytics rollup failed", err)
		_ = c.idempotency.Delete(ctx, analyticsRollupConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}
