// internal/model/progress.go
package model

import "time"

// CampaignProgress is the live execution state of one campaign run.
// One row per campaign; mutated by the executor loop and by control
// calls (pause/cancel), always through conditional updates.
type CampaignProgress struct {
	CampaignID int            `db:"campaign_id" json:"campaign_id"`
	Status     CampaignStatus `db:"status" json:"status"`

	TotalRecipients  int `db:"total_recipients" json:"total_recipients"`
	EmailsSent       int `db:"emails_sent" json:"emails_sent"`
	EmailsSuccess    int `db:"emails_success" json:"emails_success"`
	EmailsFailed     int `db:"emails_failed" json:"emails_failed"`
	EmailsInProgress int `db:"emails_in_progress" json:"emails_in_progress"`

	CurrentBatchNumber int `db:"current_batch_number" json:"current_batch_number"`
	TotalBatches       int `db:"total_batches" json:"total_batches"`
	BatchSize          int `db:"batch_size" json:"batch_size"`
	RateLimitPerMinute int `db:"rate_limit_per_minute" json:"rate_limit_per_minute"`

	ScheduledTime   *time.Time `db:"scheduled_time" json:"scheduled_time,omitempty"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	PausedAt        *time.Time `db:"paused_at" json:"paused_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	LastBatchSentAt *time.Time `db:"last_batch_sent_at" json:"last_batch_sent_at,omitempty"`

	ErrorMessage string `db:"error_message" json:"error_message,omitempty"`

	// Version guards read-modify-write cycles against lost updates.
	Version int `db:"version" json:"-"`
}

// ProgressPercentage is emails_sent over total_recipients, 0 for an
// empty recipient set.
func (p *CampaignProgress) ProgressPercentage() float64 {
	if p.TotalRecipients == 0 {
		return 0
	}
	return float64(p.EmailsSent) / float64(p.TotalRecipients) * 100
}

// TotalBatchesFor is ceil(n / batchSize).
func TotalBatchesFor(n, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return (n + batchSize - 1) / batchSize
}
