// internal/model/message_log.go
package model

import "time"

const MaxSendRetries = 3

type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageSent      MessageStatus = "sent"
	MessageFailed    MessageStatus = "failed"
	MessageDelivered MessageStatus = "delivered"
)

// MessageLogEntry records one send attempt for one recipient. Rows are
// created on every attempt and mutated in place by the retry path.
type MessageLogEntry struct {
	ID          int           `db:"id" json:"id"`
	CampaignID  int           `db:"campaign_id" json:"campaign_id"`
	BatchNumber int           `db:"batch_number" json:"batch_number"`
	Recipient   string        `db:"recipient" json:"recipient"`
	Channel     string        `db:"channel" json:"channel"`
	Status      MessageStatus `db:"status" json:"status"`

	RetryCount   int    `db:"retry_count" json:"retry_count"`
	MaxRetries   int    `db:"max_retries" json:"max_retries"`
	ErrorMessage string `db:"error_message,omitempty" json:"error_message,omitempty"`

	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
