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

	"coffeehouse-service/config"
	"coffeehouse-service/internal/api"
	"coffeehouse-service/internal/blobstore"
	"coffeehouse-service/internal/broker"
	"coffeehouse-service/internal/catalog"
	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/redisclient"
	"coffeehouse-service/internal/service"
	"coffeehouse-service/internal/util"
	"coffeehouse-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting coffeehouse service")

	tp, err := util.InitTracer("coffeehouse-service", cfg.Observ.JaegerEndpoint)
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

	catalogStore, err := catalog.NewStore(cfg.Catalog.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to catalog database: %v", err)
	}
	defer catalogStore.Close()

	if err := catalogStore.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	log.Println("Catalog database ready")

	catalogProvider, err := catalog.NewProvider(context.Background(), catalogStore)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Catalog loaded: %d items", len(catalogProvider.Items()))

	store, err := docstore.NewMongoStore(context.Background(), cfg.DocStore.URI, cfg.DocStore.Database)
	if err != nil {
		log.Fatalf("Failed to connect to document store: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}()
	log.Println("Document store connected")

	blobs, err := blobstore.NewGridFSStore(store.Database())
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	cartService := service.NewCartService(store)
	checkoutService := service.NewCheckoutService(store, cartService, redisClient, eventPublisher)
	paymentMethodService := service.NewPaymentMethodService(store)
	favoritesService := service.NewFavoritesService(store)
	journalService := service.NewJournalService(store, blobs)
	notificationService := service.NewNotificationService(store)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(orderConsumer, store, redisClient)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(
		catalogProvider,
		cartService,
		checkoutService,
		paymentMethodService,
		favoritesService,
		journalService,
		notificationService,
		cfg.Auth.JWTSecret,
	)
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
	notificationWorker.Stop()

	log.Println("Server exited")
}
