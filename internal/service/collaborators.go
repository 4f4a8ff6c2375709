// internal/service/collaborators.go
package service

import (
	"context"
	"log"

	"github.com/bulkwave/bulkwave-backend/internal/model"
)

// ReputationUpdater adjusts the per-address reputation score used to
// suppress future sends. Best-effort; callers ignore failures.
type ReputationUpdater interface {
	Update(ctx context.Context, email string, event model.EventType) error
}

// WebhookDispatcher forwards tracked events to tenant-configured URLs.
// Fire-and-forget; implemented elsewhere.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, tenantID int, event model.EventType, payload any)
}

// LogReputationUpdater stands in until the reputation service is wired.
type LogReputationUpdater struct{}

func (LogReputationUpdater) Update(ctx context.Context, email string, event model.EventType) error {
	log.Printf("reputation update: %s -> %s\n", email, event)
	return nil
}

// NoopWebhookDispatcher drops events on the floor.
type NoopWebhookDispatcher struct{}

func (NoopWebhookDispatcher) Dispatch(ctx context.Context, tenantID int, event model.EventType, payload any) {
}
