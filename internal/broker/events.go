package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"shopsync/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing catalog domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCatalogSynced publishes CatalogSynced event
func (ep *EventPublisher) PublishCatalogSynced(ctx context.Context, event *models.CatalogSyncedEvent) error {
	return ep.producer.PublishEvent(ctx, "catalog", event)
}

// PublishProductUploaded publishes ProductUploaded event
func (ep *EventPublisher) PublishProductUploaded(ctx context.Context, event *models.ProductUploadedEvent) error {
	key := fmt.Sprintf("product-%s", event.SKU)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishUploadBatchCompleted publishes UploadBatchCompleted event
func (ep *EventPublisher) PublishUploadBatchCompleted(ctx context.Context, event *models.UploadBatchCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "catalog", event)
}

// PublishCatalogDownloaded publishes CatalogDownloaded event
func (ep *EventPublisher) PublishCatalogDownloaded(ctx context.Context, event *models.CatalogDownloadedEvent) error {
	return ep.producer.PublishEvent(ctx, "catalog", event)
}

// CommandHandler routes incoming command messages
type CommandHandler struct {
	onSyncRequested   func(context.Context, *models.SyncRequestedCommand) error
	onUploadRequested func(context.Context, *models.UploadRequestedCommand) error
}

// NewCommandHandler creates a new command handler
func NewCommandHandler() *CommandHandler {
	return &CommandHandler{}
}

// OnSyncRequested registers a handler for SyncRequested commands
func (ch *CommandHandler) OnSyncRequested(handler func(context.Context, *models.SyncRequestedCommand) error) {
	ch.onSyncRequested = handler
}

// OnUploadRequested registers a handler for UploadRequested commands
func (ch *CommandHandler) OnUploadRequested(handler func(context.Context, *models.UploadRequestedCommand) error) {
	ch.onUploadRequested = handler
}

// HandleMessage routes messages to the appropriate handler
func (ch *CommandHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling command: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.CommandTypeSyncRequested:
		if ch.onSyncRequested != nil {
			var cmd models.SyncRequestedCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				return fmt.Errorf("failed to unmarshal SyncRequested command: %w", err)
			}
			return ch.onSyncRequested(ctx, &cmd)
		}

	case models.CommandTypeUploadRequested:
		if ch.onUploadRequested != nil {
			var cmd models.UploadRequestedCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				return fmt.Errorf("failed to unmarshal UploadRequested command: %w", err)
			}
			return ch.onUploadRequested(ctx, &cmd)
		}

	default:
		log.Printf("Ignoring event type: %s", baseEvent.EventType)
	}

	return nil
}
