// internal/service/tracker.go
package service

import (
	"context"
	"encoding/base64"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	appErrors "github.com/bulkwave/bulkwave-backend/internal/errors"
	"github.com/bulkwave/bulkwave-backend/internal/model"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
)

// EventTracker ingests delivery lifecycle signals. Recording is always
// best-effort: a tracking pixel must render even when every write
// behind it fails, so internal errors are logged and swallowed.
type EventTracker struct {
	Events      repository.DeliveryEventRepositoryInterface
	Campaigns   repository.CampaignRepositoryInterface
	MessageLog  repository.MessageLogRepositoryInterface
	Subscribers repository.SubscriberRepositoryInterface
	Reputation  ReputationUpdater
	Webhooks    WebhookDispatcher

	mu          sync.RWMutex
	statusCache map[int]model.DeliveryStatus
}

func NewEventTracker(
	events repository.DeliveryEventRepositoryInterface,
	campaigns repository.CampaignRepositoryInterface,
	messageLog repository.MessageLogRepositoryInterface,
	subscribers repository.SubscriberRepositoryInterface,
	reputation ReputationUpdater,
	webhooks WebhookDispatcher,
) *EventTracker {
	return &EventTracker{
		Events:      events,
		Campaigns:   campaigns,
		MessageLog:  messageLog,
		Subscribers: subscribers,
		Reputation:  reputation,
		Webhooks:    webhooks,
		statusCache: make(map[int]model.DeliveryStatus),
	}
}

// Record appends the event, bumps the owning campaign's counter,
// refreshes the cached delivery status and kicks off side effects.
// messageID may be zero when the signal could not be correlated to a
// send; the event is still retained with a null campaign.
func (t *EventTracker) Record(ctx context.Context, messageID int, recipient string, eventType model.EventType, detail model.EventDetail) {
	var campaignID *int
	var tenantID int

	if messageID > 0 && t.MessageLog != nil {
		entry, err := t.MessageLog.GetByID(ctx, messageID)
		if err != nil {
			log.Println("⚠️ tracker: failed to resolve message:", err)
		} else if entry != nil {
			campaignID = &entry.CampaignID
			if recipient == "" {
				recipient = entry.Recipient
			}
			if eventType == model.EventDelivered && entry.Status == model.MessageSent {
				entry.Status = model.MessageDelivered
				if err := t.MessageLog.Update(ctx, entry); err != nil {
					log.Println("⚠️ tracker: failed to mark message delivered:", err)
				}
			}
		}
	}

	// Unique-recipient counting for opens and clicks: the raw event is
	// always appended, the campaign counter moves only on the first
	// occurrence per recipient. Probe before the append.
	bumpCounter := true
	if campaignID != nil && (eventType == model.EventOpened || eventType == model.EventClicked) {
		seen, err := t.Events.HasEvent(ctx, *campaignID, recipient, eventType)
		if err != nil {
			log.Println("⚠️ tracker: dedupe probe failed:", err)
		}
		bumpCounter = !seen && err == nil
	}

	ev := &model.DeliveryEvent{
		CampaignID:   campaignID,
		Recipient:    recipient,
		EventType:    eventType,
		IPAddress:    detail.IPAddress,
		UserAgent:    detail.UserAgent,
		ClickedURL:   detail.ClickedURL,
		BounceReason: detail.BounceReason,
		Processed:    true,
		CreatedAt:    time.Now(),
	}
	if messageID > 0 {
		ev.MessageID = &messageID
	}
	if err := t.Events.Append(ctx, ev); err != nil {
		log.Println("⚠️ tracker: failed to append event:", err)
	}

	if campaignID != nil && bumpCounter {
		if err := t.Campaigns.IncrementCounter(ctx, *campaignID, eventType); err != nil {
			log.Println("⚠️ tracker: failed to bump counter:", err)
		}
	}
	if campaignID != nil {
		if c, err := t.Campaigns.GetByID(ctx, *campaignID); err == nil && c != nil {
			tenantID = c.TenantID
		}
	}

	if messageID > 0 {
		t.cacheStatus(messageID, model.StatusForEvent(eventType))
	}

	switch eventType {
	case model.EventBounced:
		if t.Reputation != nil {
			if err := t.Reputation.Update(ctx, recipient, eventType); err != nil {
				log.Println("⚠️ tracker: reputation update failed:", err)
			}
		}
		if t.Subscribers != nil {
			if err := t.Subscribers.UpdateStatusByEmail(ctx, recipient, model.SubscriberBounced); err != nil {
				log.Println("⚠️ tracker: failed to flag bounced subscriber:", err)
			}
		}
	case model.EventUnsubscribed:
		if t.Subscribers != nil {
			if err := t.Subscribers.UpdateStatusByEmail(ctx, recipient, model.SubscriberUnsubscribed); err != nil {
				log.Println("⚠️ tracker: failed to unsubscribe:", err)
			}
		}
	}

	if t.Webhooks != nil && tenantID != 0 {
		go t.Webhooks.Dispatch(context.Background(), tenantID, eventType, ev)
	}
}

// DeliveryStatusFor returns the cached per-send status for UI reads.
func (t *EventTracker) DeliveryStatusFor(messageID int) model.DeliveryStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.statusCache[messageID]; ok {
		return s
	}
	return model.DeliveryPending
}

func (t *EventTracker) cacheStatus(messageID int, next model.DeliveryStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.statusCache[messageID]
	if !ok || cur.Advances(next) {
		t.statusCache[messageID] = next
	}
}

// DecodeTrackingToken unpacks base64("<messageID>|<email>") or
// base64("<messageID>|<email>|<url>").
func DecodeTrackingToken(token string) (messageID int, email, url string, err error) {
	raw, decErr := base64.StdEncoding.DecodeString(token)
	if decErr != nil {
		raw, decErr = base64.URLEncoding.DecodeString(token)
	}
	if decErr != nil {
		return 0, "", "", appErrors.NewTrackingDecode("not base64")
	}

	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) < 2 {
		return 0, "", "", appErrors.NewTrackingDecode("missing fields")
	}

	id, convErr := strconv.Atoi(parts[0])
	if convErr != nil {
		return 0, "", "", appErrors.NewTrackingDecode("bad event id")
	}

	if len(parts) == 3 {
		url = parts[2]
	}
	return id, parts[1], url, nil
}
