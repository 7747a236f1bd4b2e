// Package eventbridge publishes migration drift events to AWS EventBridge so
// external reconciliation tooling can react to abandoned secondary writes.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"mystira-backend/internal/migration"
)

const (
	// DetailTypeDrift is the EventBridge detail-type for failed-write events.
	DetailTypeDrift = "migration.secondary-write-failed"

	source = "mystira.migration"
)

// Publisher pushes failed dual-write records onto an EventBridge bus. It
// implements the polyglot package's DriftPublisher extension point.
type Publisher struct {
	client       *awseventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates an EventBridge drift publisher for the named bus.
func NewPublisher(client *awseventbridge.Client, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger.Named("eventbridge"),
	}
}

// PublishDrift emits one failed write as a drift event.
func (p *Publisher) PublishDrift(ctx context.Context, fw migration.FailedWrite) error {
	detail, err := json.Marshal(fw)
	if err != nil {
		return fmt.Errorf("marshal drift event: %w", err)
	}

	input := &awseventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.eventBusName),
				Source:       aws.String(source),
				DetailType:   aws.String(DetailTypeDrift),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(fw.OccurredAt),
				Resources: []string{
					fmt.Sprintf("arn:aws:mystira::%s/%s", fw.EntityType, fw.EntityID),
				},
			},
		},
	}

	result, err := p.client.PutEvents(ctx, input)
	if err != nil {
		return fmt.Errorf("publish drift event: %w", err)
	}
	if result.FailedEntryCount > 0 {
		entry := result.Entries[0]
		p.logger.Error("EventBridge rejected drift event",
			zap.String("entityID", fw.EntityID),
			zap.String("errorCode", aws.ToString(entry.ErrorCode)),
			zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
		)
		return fmt.Errorf("drift event rejected: %s", aws.ToString(entry.ErrorCode))
	}

	p.logger.Debug("drift event published",
		zap.String("entityType", fw.EntityType),
		zap.String("entityID", fw.EntityID),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}
