package worker

import (
	"context"
	"log"

	"shopsync/internal/broker"
	"shopsync/internal/models"
	"shopsync/internal/service"
)

// CatalogWorker consumes pipeline commands from the catalog topic and
// drives the same pipeline the HTTP handlers drive. It lets syncs and
// uploads be requested asynchronously, e.g. from a scheduler.
type CatalogWorker struct {
	consumer       *broker.Consumer
	commandHandler *broker.CommandHandler
	pipeline       *service.Pipeline
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(
	consumer *broker.Consumer,
	pipeline *service.Pipeline,
) *CatalogWorker {
	commandHandler := broker.NewCommandHandler()

	commandHandler.OnSyncRequested(func(ctx context.Context, cmd *models.SyncRequestedCommand) error {
		report, err := pipeline.RunSync(ctx, cmd.SpreadsheetPath)
		if err != nil {
			log.Printf("Requested sync failed: %v", err)
			return err
		}
		log.Printf("Requested sync done: imported=%d, skipped=%d, errors=%d",
			report.Import.Imported, report.Import.Skipped, report.Import.Errors)
		return nil
	})

	commandHandler.OnUploadRequested(func(ctx context.Context, cmd *models.UploadRequestedCommand) error {
		result, err := pipeline.RunUpload(ctx, cmd.SKUs)
		if err != nil {
			log.Printf("Requested upload failed: %v", err)
			return err
		}
		log.Printf("Requested upload done: attempted=%d, succeeded=%d, failed=%d",
			result.Attempted, result.Succeeded, result.Failed)
		return nil
	})

	return &CatalogWorker{
		consumer:       consumer,
		commandHandler: commandHandler,
		pipeline:       pipeline,
	}
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	log.Println("Starting catalog worker...")
	return w.consumer.StartConsuming(ctx, w.commandHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	log.Println("Stopping catalog worker...")
	return w.consumer.Close()
}
