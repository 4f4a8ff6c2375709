// internal/model/subscriber.go
package model

type SubscriberStatus string

const (
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
	SubscriberBounced      SubscriberStatus = "bounced"
)

type Subscriber struct {
	ID        int              `db:"id" json:"id"`
	TenantID  int              `db:"tenant_id" json:"tenant_id"`
	Email     string           `db:"email" json:"email"`
	Phone     string           `db:"phone" json:"phone"`
	FirstName string           `db:"first_name" json:"first_name"`
	LastName  string           `db:"last_name" json:"last_name"`
	Status    SubscriberStatus `db:"status" json:"status"`
}

// Address returns the channel-appropriate destination.
func (s *Subscriber) Address(channel string) string {
	if channel == "sms" || channel == "whatsapp" {
		return s.Phone
	}
	return s.Email
}
