package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/model"
)

type DeliveryEventRepositoryInterface interface {
	// Append inserts one event row. The log is append-only; repeated
	// opens for the same recipient all land here.
	Append(ctx context.Context, ev *model.DeliveryEvent) error

	// HasEvent reports whether at least one event of this type was
	// already recorded for the campaign and recipient.
	HasEvent(ctx context.Context, campaignID int, recipient string, t model.EventType) (bool, error)

	CountByType(ctx context.Context, campaignID int) (map[model.EventType]int, error)
}

type DeliveryEventRepository struct {
	DB *sql.DB
}

func (r *DeliveryEventRepository) Append(ctx context.Context, ev *model.DeliveryEvent) error {
	ev.CreatedAt = time.Now()
	query := `
        INSERT INTO delivery_events
            (campaign_id, message_id, recipient, event_type, ip_address, user_agent, clicked_url, bounce_reason, processed, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		ev.CampaignID, ev.MessageID, ev.Recipient, ev.EventType,
		nullIfEmpty(ev.IPAddress), nullIfEmpty(ev.UserAgent),
		nullIfEmpty(ev.ClickedURL), nullIfEmpty(ev.BounceReason),
		ev.Processed, ev.CreatedAt,
	).Scan(&ev.ID)
}

func (r *DeliveryEventRepository) HasEvent(ctx context.Context, campaignID int, recipient string, t model.EventType) (bool, error) {
	query := `
        SELECT 1 FROM delivery_events
        WHERE campaign_id=$1 AND recipient=$2 AND event_type=$3
        LIMIT 1
    `
	var tmp int
	err := r.DB.QueryRowContext(ctx, query, campaignID, recipient, t).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *DeliveryEventRepository) CountByType(ctx context.Context, campaignID int) (map[model.EventType]int, error) {
	query := `SELECT event_type, COUNT(*) FROM delivery_events WHERE campaign_id=$1 GROUP BY event_type`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.EventType]int{}
	for rows.Next() {
		var t model.EventType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

var _ DeliveryEventRepositoryInterface = (*DeliveryEventRepository)(nil)
