// internal/model/delivery_event.go
package model

import "time"

type EventType string

const (
	EventSent         EventType = "sent"
	EventDelivered    EventType = "delivered"
	EventOpened       EventType = "opened"
	EventClicked      EventType = "clicked"
	EventBounced      EventType = "bounced"
	EventUnsubscribed EventType = "unsubscribed"
	EventComplained   EventType = "complained"
)

// EventDetail carries free-form context captured with a signal.
type EventDetail struct {
	IPAddress    string `json:"ip_address,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	ClickedURL   string `json:"clicked_url,omitempty"`
	BounceReason string `json:"bounce_reason,omitempty"`
}

// DeliveryEvent is one observed lifecycle signal for one recipient.
// Append-only: multiple opened events per recipient are all retained.
type DeliveryEvent struct {
	ID         int       `db:"id" json:"id"`
	CampaignID *int      `db:"campaign_id" json:"campaign_id,omitempty"`
	MessageID  *int      `db:"message_id" json:"message_id,omitempty"`
	Recipient  string    `db:"recipient" json:"recipient"`
	EventType  EventType `db:"event_type" json:"event_type"`

	IPAddress    string `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string `db:"user_agent" json:"user_agent,omitempty"`
	ClickedURL   string `db:"clicked_url" json:"clicked_url,omitempty"`
	BounceReason string `db:"bounce_reason" json:"bounce_reason,omitempty"`

	Processed bool      `db:"processed" json:"processed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DeliveryStatus is the per-send state derived from the latest relevant
// event: pending -> sent -> delivered -> {opened -> clicked} ->
// {bounced | complained | unsubscribed | failed}.
type DeliveryStatus string

const (
	DeliveryPending      DeliveryStatus = "pending"
	DeliverySent         DeliveryStatus = "sent"
	DeliveryDelivered    DeliveryStatus = "delivered"
	DeliveryOpened       DeliveryStatus = "opened"
	DeliveryClicked      DeliveryStatus = "clicked"
	DeliveryBounced      DeliveryStatus = "bounced"
	DeliveryComplained   DeliveryStatus = "complained"
	DeliveryUnsubscribed DeliveryStatus = "unsubscribed"
	DeliveryFailed       DeliveryStatus = "failed"
)

var deliveryRank = map[DeliveryStatus]int{
	DeliveryPending:      0,
	DeliverySent:         1,
	DeliveryDelivered:    2,
	DeliveryOpened:       3,
	DeliveryClicked:      4,
	DeliveryBounced:      5,
	DeliveryComplained:   5,
	DeliveryUnsubscribed: 5,
	DeliveryFailed:       5,
}

// StatusForEvent maps a signal to the delivery status it implies.
func StatusForEvent(t EventType) DeliveryStatus {
	switch t {
	case EventSent:
		return DeliverySent
	case EventDelivered:
		return DeliveryDelivered
	case EventOpened:
		return DeliveryOpened
	case EventClicked:
		return DeliveryClicked
	case EventBounced:
		return DeliveryBounced
	case EventUnsubscribed:
		return DeliveryUnsubscribed
	case EventComplained:
		return DeliveryComplained
	}
	return DeliveryPending
}

// Advances reports whether next moves the lifecycle forward from cur.
// A late-arriving opened signal never downgrades a clicked status.
func (cur DeliveryStatus) Advances(next DeliveryStatus) bool {
	return deliveryRank[next] > deliveryRank[cur]
}
