// cmd/callback/main.go
//
// Publishes a delivery callback onto the RabbitMQ queue the worker
// consumes. Stands in for the transport provider during local testing:
//
//	go run ./cmd/callback -message-id 12 -event delivered
//	go run ./cmd/callback -message-id 12 -event bounced -reason "mailbox full"
package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/bulkwave/bulkwave-backend/internal/config"
	"github.com/bulkwave/bulkwave-backend/internal/model"
	"github.com/bulkwave/bulkwave-backend/internal/queue"
)

func main() {
	messageID := flag.Int("message-id", 0, "message log entry id the signal refers to")
	event := flag.String("event", "delivered", "event type: delivered, opened, clicked, bounced, unsubscribed, complained")
	recipient := flag.String("recipient", "", "recipient address (resolved from the message log when empty)")
	reason := flag.String("reason", "", "bounce reason")
	url := flag.String("url", "", "clicked url")
	flag.Parse()

	if *messageID <= 0 {
		log.Fatal("-message-id is required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	pub, err := queue.DialAMQPPublisher(cfg.AMQPURL, cfg.DeliveryQueueName)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer pub.Close()

	sig := queue.DeliverySignal{
		MessageID: *messageID,
		Recipient: *recipient,
		EventType: model.EventType(*event),
		Detail: model.EventDetail{
			BounceReason: *reason,
			ClickedURL:   *url,
		},
	}

	if err := pub.PublishSignal(sig); err != nil {
		log.Fatal("Failed to publish signal:", err)
	}
	log.Printf("📩 published %s signal for message %d\n", sig.EventType, sig.MessageID)
}
