// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/bulkwave/bulkwave-backend/internal/config"
	"github.com/bulkwave/bulkwave-backend/internal/controller"
	"github.com/bulkwave/bulkwave-backend/internal/db"
	"github.com/bulkwave/bulkwave-backend/internal/handler"
	"github.com/bulkwave/bulkwave-backend/internal/queue"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
	"github.com/bulkwave/bulkwave-backend/internal/sender"
	"github.com/bulkwave/bulkwave-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	db.Init(cfg)

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	progressRepo := &repository.ProgressRepository{DB: db.DB}
	subscriberRepo := &repository.SubscriberRepository{DB: db.DB}
	messageLogRepo := &repository.MessageLogRepository{DB: db.DB}
	eventRepo := &repository.DeliveryEventRepository{DB: db.DB}

	channelSender := sender.NewMockSender()
	signals := queue.NewInMemoryQueue()

	tracker := service.NewEventTracker(
		eventRepo, campaignRepo, messageLogRepo, subscriberRepo,
		service.LogReputationUpdater{}, service.NoopWebhookDispatcher{},
	)

	// Sent signals from the executor flow through the in-process queue
	// into the tracker, same path the provider callbacks take in the
	// worker.
	signals.Subscribe(queue.TopicDeliverySignals, func(payload any) error {
		sig, ok := payload.(queue.DeliverySignal)
		if !ok {
			log.Println("⚠️ invalid delivery signal payload")
			return nil
		}
		tracker.Record(context.Background(), sig.MessageID, sig.Recipient, sig.EventType, sig.Detail)
		return nil
	})

	retry := &service.RetryManager{
		Campaigns:   campaignRepo,
		MessageLog:  messageLogRepo,
		Subscribers: subscriberRepo,
		Sender:      channelSender,
	}

	executor := &service.CampaignExecutor{
		Campaigns:   campaignRepo,
		Progress:    progressRepo,
		Subscribers: subscriberRepo,
		MessageLog:  messageLogRepo,
		Sender:      channelSender,
		Retry:       retry,
		Signals:     signals,
	}

	campaignService := &service.CampaignService{
		CampaignRepo:         campaignRepo,
		ProgressRepo:         progressRepo,
		DefaultBatchSize:     cfg.DefaultBatchSize,
		DefaultRatePerMinute: cfg.DefaultRatePerMinute,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		Executor:        executor,
		Events:          eventRepo,
	}

	trackingHandler := &handler.TrackingHandler{Tracker: tracker}

	poller := service.NewScheduledPoller(progressRepo, executor, cfg.PollInterval)
	poller.Start()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Get("/campaigns/{id}/progress", campaignController.GetProgress)
	r.Get("/campaigns/{id}/stats", campaignController.GetStats)
	r.Post("/campaigns/{id}/start", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/cancel", campaignController.CancelCampaign)
	r.Post("/campaigns/{id}/retry-failed", campaignController.RetryFailed)

	// Tracking routes
	r.Get("/track/open/{token}", trackingHandler.OpenPixel)
	r.Get("/track/click/{token}", trackingHandler.ClickRedirect)
	r.Post("/track/unsubscribe/{token}", trackingHandler.Unsubscribe)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	go func() {
		log.Println("🚀 Server running on", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	poller.Stop()
	executor.Wait()
	srv.Shutdown(context.Background())
}
