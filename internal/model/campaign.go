// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusScheduled CampaignStatus = "scheduled"
	StatusRunning   CampaignStatus = "running"
	StatusPaused    CampaignStatus = "paused"
	StatusCompleted CampaignStatus = "completed"
	StatusCancelled CampaignStatus = "cancelled"
	StatusFailed    CampaignStatus = "failed"
)

// transitions is the closed set of legal status moves. Terminal statuses
// have no outgoing edges.
var transitions = map[CampaignStatus][]CampaignStatus{
	StatusDraft:     {StatusScheduled, StatusRunning},
	StatusScheduled: {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusPaused, StatusCompleted, StatusCancelled, StatusFailed},
	StatusPaused:    {StatusRunning, StatusCancelled, StatusFailed},
}

func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s CampaignStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

type Campaign struct {
	ID       int    `db:"id" json:"id"`
	TenantID int    `db:"tenant_id" json:"tenant_id"`
	Name     string `db:"name" json:"name"`
	Subject  string `db:"subject" json:"subject"`
	Body     string `db:"body" json:"body"`
	Channel  string `db:"channel" json:"channel"` // email, sms, whatsapp

	Status CampaignStatus `db:"status" json:"status"`

	TotalRecipients   int `db:"total_recipients" json:"total_recipients"`
	SentCount         int `db:"sent_count" json:"sent_count"`
	DeliveredCount    int `db:"delivered_count" json:"delivered_count"`
	OpenedCount       int `db:"opened_count" json:"opened_count"`
	ClickedCount      int `db:"clicked_count" json:"clicked_count"`
	BouncedCount      int `db:"bounced_count" json:"bounced_count"`
	UnsubscribedCount int `db:"unsubscribed_count" json:"unsubscribed_count"`

	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
