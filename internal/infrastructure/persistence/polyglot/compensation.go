package polyglot

import (
	"context"

	"go.uber.org/zap"

	"mystira-backend/internal/migration"
)

// Compensator is the extension point invoked after a secondary write has
// been abandoned. Implementations decide how the miss gets reconciled: log
// it, journal it for replay, or hand it to external tooling.
type Compensator interface {
	Compensate(ctx context.Context, fw migration.FailedWrite) error
}

// LogCompensator is the baseline strategy: record the miss in the log and
// rely on consistency checks to find drift.
type LogCompensator struct {
	logger *zap.Logger
}

// NewLogCompensator creates the log-only strategy.
func NewLogCompensator(logger *zap.Logger) *LogCompensator {
	return &LogCompensator{logger: logger.Named("compensation")}
}

// Compensate logs the failed write with enough context to replay it by hand.
func (c *LogCompensator) Compensate(_ context.Context, fw migration.FailedWrite) error {
	c.logger.Warn("secondary write requires reconciliation",
		zap.String("entityType", fw.EntityType),
		zap.String("entityID", fw.EntityID),
		zap.String("userID", fw.UserID),
		zap.String("operation", string(fw.Operation)),
		zap.String("phase", fw.Phase.String()),
		zap.String("reason", fw.Reason),
	)
	return nil
}

// DriftPublisher pushes failed-write records to an external event channel.
// The EventBridge publisher in infrastructure/messaging implements it.
type DriftPublisher interface {
	PublishDrift(ctx context.Context, fw migration.FailedWrite) error
}

// EventCompensator forwards failed writes to a drift publisher so external
// reconciliation tooling can pick them up.
type EventCompensator struct {
	publisher DriftPublisher
	logger    *zap.Logger
}

// NewEventCompensator creates the event-driven strategy.
func NewEventCompensator(publisher DriftPublisher, logger *zap.Logger) *EventCompensator {
	return &EventCompensator{
		publisher: publisher,
		logger:    logger.Named("compensation"),
	}
}

// Compensate publishes the failed write as a drift event.
func (c *EventCompensator) Compensate(ctx context.Context, fw migration.FailedWrite) error {
	if err := c.publisher.PublishDrift(ctx, fw); err != nil {
		c.logger.Error("failed to publish drift event",
			zap.String("entityType", fw.EntityType),
			zap.String("entityID", fw.EntityID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
