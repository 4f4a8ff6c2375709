// internal/service/retry.go
package service

import (
	"context"
	"log"
	"time"

	appErrors "github.com/bulkwave/bulkwave-backend/internal/errors"
	"github.com/bulkwave/bulkwave-backend/internal/model"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
	"github.com/bulkwave/bulkwave-backend/internal/sender"
)

// RetryManager resends previously failed attempts, bounded by the
// per-entry retry cap.
type RetryManager struct {
	Campaigns   repository.CampaignRepositoryInterface
	MessageLog  repository.MessageLogRepositoryInterface
	Subscribers repository.SubscriberRepositoryInterface
	Sender      sender.ChannelSender
}

// RetryFailed walks the campaign's failed log entries with
// retry_count < max_retries and resends each individually. Returns how
// many were resent successfully. Entries whose recipient no longer
// resolves are skipped, not errors.
func (m *RetryManager) RetryFailed(ctx context.Context, campaignID int) (int, error) {
	c, err := m.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	entries, err := m.MessageLog.ListRetryable(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	resent := 0
	for _, entry := range entries {
		sub, err := m.Subscribers.GetByAddress(ctx, c.TenantID, entry.Channel, entry.Recipient)
		if err != nil {
			log.Println("⚠️ retry: failed to look up recipient:", err)
			continue
		}
		if sub == nil {
			continue // recipient gone, skip
		}

		sendErr := m.Sender.Send(ctx, entry.Recipient, c.Subject, c.Body)
		if sendErr != nil {
			entry.RetryCount++
			entry.ErrorMessage = appErrors.NewSendError(entry.Recipient, sendErr).Error()
		} else {
			now := time.Now()
			entry.Status = model.MessageSent
			entry.SentAt = &now
			entry.ErrorMessage = ""
			resent++
		}

		if err := m.MessageLog.Update(ctx, entry); err != nil {
			log.Println("⚠️ retry: failed to update log entry:", err)
		}
	}

	log.Printf("retry for campaign %d: %d/%d resent\n", campaignID, resent, len(entries))
	return resent, nil
}
