package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/bulkwave/bulkwave-backend/internal/errors"
	"github.com/bulkwave/bulkwave-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error)
	UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error
	SetTotalRecipients(ctx context.Context, campaignID, total int) error
	IncrementCounter(ctx context.Context, campaignID int, event model.EventType) error
	SyncSentCount(ctx context.Context, campaignID, sent int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, tenant_id, name, subject, body, channel, status,
	total_recipients, sent_count, delivered_count, opened_count, clicked_count,
	bounced_count, unsubscribed_count, scheduled_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Subject, &c.Body, &c.Channel, &c.Status,
		&c.TotalRecipients, &c.SentCount, &c.DeliveredCount, &c.OpenedCount,
		&c.ClickedCount, &c.BouncedCount, &c.UnsubscribedCount,
		&c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	query := `
        INSERT INTO campaigns (tenant_id, name, subject, body, channel, status, scheduled_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		c.TenantID, c.Name, c.Subject, c.Body, c.Channel, c.Status, c.ScheduledAt, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if channel != "" {
		query += fmt.Sprintf(" AND channel=$%d", argPos)
		args = append(args, channel)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if channel != "" {
		countQuery += fmt.Sprintf(" AND channel=$%d", argPosCount)
		argsCount = append(argsCount, channel)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) SetTotalRecipients(ctx context.Context, campaignID, total int) error {
	query := `UPDATE campaigns SET total_recipients=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, total, campaignID)
	return err
}

// counterColumns maps delivery signals to campaign counter columns.
// The column name is taken from this closed map, never from input.
// sent_count is deliberately absent: SyncSentCount owns it, so SENT
// signals still in flight at completion cannot inflate the aggregate.
var counterColumns = map[model.EventType]string{
	model.EventDelivered:    "delivered_count",
	model.EventOpened:       "opened_count",
	model.EventClicked:      "clicked_count",
	model.EventBounced:      "bounced_count",
	model.EventUnsubscribed: "unsubscribed_count",
}

func (r *CampaignRepository) IncrementCounter(ctx context.Context, campaignID int, event model.EventType) error {
	col, ok := counterColumns[event]
	if !ok {
		return nil // sent and complained have no tracker-owned counter
	}
	query := fmt.Sprintf(`UPDATE campaigns SET %s=%s+1, updated_at=NOW() WHERE id=$1`, col, col)
	_, err := r.DB.ExecContext(ctx, query, campaignID)
	return err
}

// SyncSentCount reconciles the campaign aggregate with the executor's
// final progress counts at completion.
func (r *CampaignRepository) SyncSentCount(ctx context.Context, campaignID, sent int) error {
	query := `UPDATE campaigns SET sent_count=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, sent, campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
