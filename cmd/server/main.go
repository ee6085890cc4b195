package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsync/config"
	"shopsync/internal/api"
	"shopsync/internal/broker"
	"shopsync/internal/browser"
	"shopsync/internal/fsync"
	"shopsync/internal/importer"
	"shopsync/internal/redisclient"
	"shopsync/internal/service"
	"shopsync/internal/store"
	"shopsync/internal/util"
	"shopsync/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting catalog sync service")

	tp, err := util.InitTracer("shopsync", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	chromeBrowser, err := browser.NewChromeBrowser(cfg.Browser.ProfileDir, cfg.Browser.Headless)
	if err != nil {
		log.Fatalf("Failed to initialize browser: %v", err)
	}
	defer chromeBrowser.Close()

	selectors, err := browser.LoadSelectors(cfg.Browser.SelectorsPath)
	if err != nil {
		log.Fatalf("Failed to load selectors: %v", err)
	}

	session := browser.NewSession(chromeBrowser, selectors, browser.Timeouts{
		Settle:       cfg.Business.SettleTimeout,
		PerCandidate: cfg.Business.SelectorTimeout,
		Verify:       cfg.Business.VerifyTimeout,
	})
	defer session.Close()

	imp := importer.New(importer.DefaultVocabulary())
	reconciler := fsync.New(db)

	syncService := service.NewSyncService(db, imp, reconciler, eventPublisher, cfg.Files)
	uploadService := service.NewUploadService(db, redisClient, eventPublisher, service.UploadOptions{
		Site:       cfg.Site,
		AssetsRoot: cfg.Files.ProductsRoot,
		ItemPause:  cfg.Business.ItemPause,
		LockTTL:    cfg.Business.BatchLockTTL,
		CacheTTL:   cfg.Business.ListingCacheTTL,
	})
	pipeline := service.NewPipeline(syncService, uploadService, session, cfg.Site)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	catalogConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog, cfg.Kafka.ConsumerGroup)
	catalogWorker := worker.NewCatalogWorker(catalogConsumer, pipeline)
	go func() {
		if err := catalogWorker.Start(workerCtx); err != nil {
			log.Printf("Catalog worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(pipeline)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	catalogWorker.Stop()

	log.Println("Server exited")
}
