package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/model"
)

type ProgressRepositoryInterface interface {
	Create(ctx context.Context, p *model.CampaignProgress) error
	GetByCampaignID(ctx context.Context, campaignID int) (*model.CampaignProgress, error)

	// Update writes the full row guarded by the optimistic version; it
	// returns false when a concurrent writer got there first.
	Update(ctx context.Context, p *model.CampaignProgress) (bool, error)

	// TransitionStatus flips status only when the current status is one
	// of from; the conditional update is the claim mechanism that keeps
	// control calls and the executor loop from racing.
	TransitionStatus(ctx context.Context, campaignID int, from []model.CampaignStatus, to model.CampaignStatus) (bool, error)

	// ClaimDueScheduled atomically promotes due scheduled rows to
	// running and returns the claimed campaign ids. A row claimed by
	// one poll is invisible to a racing poll.
	ClaimDueScheduled(ctx context.Context, now time.Time) ([]int, error)

	SetError(ctx context.Context, campaignID int, message string) error
}

type ProgressRepository struct {
	DB *sql.DB
}

const progressColumns = `campaign_id, status, total_recipients, emails_sent,
	emails_success, emails_failed, emails_in_progress, current_batch_number,
	total_batches, batch_size, rate_limit_per_minute, scheduled_time,
	started_at, paused_at, completed_at, last_batch_sent_at, error_message, version`

func (r *ProgressRepository) Create(ctx context.Context, p *model.CampaignProgress) error {
	query := `
        INSERT INTO campaign_progress
            (campaign_id, status, total_recipients, batch_size, rate_limit_per_minute, scheduled_time, version)
        VALUES ($1, $2, $3, $4, $5, $6, 1)
    `
	p.Version = 1
	_, err := r.DB.ExecContext(ctx, query,
		p.CampaignID, p.Status, p.TotalRecipients, p.BatchSize, p.RateLimitPerMinute, p.ScheduledTime,
	)
	return err
}

func (r *ProgressRepository) GetByCampaignID(ctx context.Context, campaignID int) (*model.CampaignProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM campaign_progress WHERE campaign_id=$1`
	var p model.CampaignProgress
	var errMsg sql.NullString
	err := r.DB.QueryRowContext(ctx, query, campaignID).Scan(
		&p.CampaignID, &p.Status, &p.TotalRecipients, &p.EmailsSent,
		&p.EmailsSuccess, &p.EmailsFailed, &p.EmailsInProgress, &p.CurrentBatchNumber,
		&p.TotalBatches, &p.BatchSize, &p.RateLimitPerMinute, &p.ScheduledTime,
		&p.StartedAt, &p.PausedAt, &p.CompletedAt, &p.LastBatchSentAt, &errMsg, &p.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.ErrorMessage = errMsg.String
	return &p, nil
}

func (r *ProgressRepository) Update(ctx context.Context, p *model.CampaignProgress) (bool, error) {
	query := `
        UPDATE campaign_progress
        SET status=$1, total_recipients=$2, emails_sent=$3, emails_success=$4,
            emails_failed=$5, emails_in_progress=$6, current_batch_number=$7,
            total_batches=$8, last_batch_sent_at=$9, error_message=$10,
            version=version+1
        WHERE campaign_id=$11 AND version=$12
    `
	res, err := r.DB.ExecContext(ctx, query,
		p.Status, p.TotalRecipients, p.EmailsSent, p.EmailsSuccess,
		p.EmailsFailed, p.EmailsInProgress, p.CurrentBatchNumber,
		p.TotalBatches, p.LastBatchSentAt, nullIfEmpty(p.ErrorMessage),
		p.CampaignID, p.Version,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	p.Version++
	return true, nil
}

func (r *ProgressRepository) TransitionStatus(ctx context.Context, campaignID int, from []model.CampaignStatus, to model.CampaignStatus) (bool, error) {
	placeholders := make([]string, len(from))
	args := []interface{}{to}
	for i, s := range from {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, s)
	}

	stamp := ""
	switch to {
	case model.StatusRunning:
		stamp = ", started_at=COALESCE(started_at, NOW()), paused_at=NULL"
	case model.StatusPaused:
		stamp = ", paused_at=NOW()"
	case model.StatusCompleted, model.StatusCancelled, model.StatusFailed:
		stamp = ", completed_at=NOW()"
	}

	query := fmt.Sprintf(`
        UPDATE campaign_progress
        SET status=$1%s, version=version+1
        WHERE campaign_id=$%d AND status IN (%s)
    `, stamp, len(from)+2, strings.Join(placeholders, ","))
	args = append(args, campaignID)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ProgressRepository) ClaimDueScheduled(ctx context.Context, now time.Time) ([]int, error) {
	query := `
        UPDATE campaign_progress
        SET status=$1, started_at=NOW(), version=version+1
        WHERE status=$2 AND scheduled_time IS NOT NULL AND scheduled_time<=$3
        RETURNING campaign_id
    `
	rows, err := r.DB.QueryContext(ctx, query, model.StatusRunning, model.StatusScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProgressRepository) SetError(ctx context.Context, campaignID int, message string) error {
	query := `UPDATE campaign_progress SET error_message=$1, version=version+1 WHERE campaign_id=$2`
	_, err := r.DB.ExecContext(ctx, query, message, campaignID)
	return err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var _ ProgressRepositoryInterface = (*ProgressRepository)(nil)
