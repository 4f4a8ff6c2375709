// cmd/worker/main.go
//
// Consumes transport-provider delivery callbacks (delivered, bounced,
// complained, unsubscribed) from RabbitMQ and feeds them into the
// event tracker.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/bulkwave/bulkwave-backend/internal/config"
	"github.com/bulkwave/bulkwave-backend/internal/db"
	"github.com/bulkwave/bulkwave-backend/internal/queue"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
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
	subscriberRepo := &repository.SubscriberRepository{DB: db.DB}
	messageLogRepo := &repository.MessageLogRepository{DB: db.DB}
	eventRepo := &repository.DeliveryEventRepository{DB: db.DB}

	tracker := service.NewEventTracker(
		eventRepo, campaignRepo, messageLogRepo, subscriberRepo,
		service.LogReputationUpdater{}, service.NoopWebhookDispatcher{},
	)

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.DeliveryQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	go func() {
		for d := range msgs {
			var sig queue.DeliverySignal
			if err := json.Unmarshal(d.Body, &sig); err != nil {
				log.Println("Invalid delivery signal:", err)
				d.Ack(false)
				continue
			}

			log.Printf("📩 delivery signal: message %d %s\n", sig.MessageID, sig.EventType)

			// Recording is best-effort by contract, so a signal is
			// consumed exactly once: no error path, no requeue storm.
			tracker.Record(context.Background(), sig.MessageID, sig.Recipient, sig.EventType, sig.Detail)
			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for delivery callbacks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down worker...")
}
