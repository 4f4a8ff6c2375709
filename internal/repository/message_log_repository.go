package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/model"
)

type MessageLogRepositoryInterface interface {
	Create(ctx context.Context, e *model.MessageLogEntry) error
	GetByID(ctx context.Context, id int) (*model.MessageLogEntry, error)
	Update(ctx context.Context, e *model.MessageLogEntry) error

	// ListRetryable returns failed entries still under the retry cap.
	ListRetryable(ctx context.Context, campaignID int) ([]*model.MessageLogEntry, error)
	CountByStatus(ctx context.Context, campaignID int) (map[model.MessageStatus]int, error)
}

type MessageLogRepository struct {
	DB *sql.DB
}

const messageLogColumns = `id, campaign_id, batch_number, recipient, channel, status,
	retry_count, max_retries, error_message, sent_at, created_at, updated_at`

func scanMessageLog(row interface{ Scan(...any) error }) (*model.MessageLogEntry, error) {
	var e model.MessageLogEntry
	var errMsg sql.NullString
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.BatchNumber, &e.Recipient, &e.Channel, &e.Status,
		&e.RetryCount, &e.MaxRetries, &errMsg, &e.SentAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ErrorMessage = errMsg.String
	return &e, nil
}

func (r *MessageLogRepository) Create(ctx context.Context, e *model.MessageLogEntry) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.MaxRetries == 0 {
		e.MaxRetries = model.MaxSendRetries
	}

	query := `
        INSERT INTO message_log
            (campaign_id, batch_number, recipient, channel, status, retry_count, max_retries, error_message, sent_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		e.CampaignID, e.BatchNumber, e.Recipient, e.Channel, e.Status,
		e.RetryCount, e.MaxRetries, nullIfEmpty(e.ErrorMessage), e.SentAt,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *MessageLogRepository) GetByID(ctx context.Context, id int) (*model.MessageLogEntry, error) {
	query := `SELECT ` + messageLogColumns + ` FROM message_log WHERE id=$1`
	e, err := scanMessageLog(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *MessageLogRepository) Update(ctx context.Context, e *model.MessageLogEntry) error {
	e.UpdatedAt = time.Now()
	query := `
        UPDATE message_log
        SET status=$1, retry_count=$2, error_message=$3, sent_at=$4, updated_at=$5
        WHERE id=$6
    `
	_, err := r.DB.ExecContext(ctx, query,
		e.Status, e.RetryCount, nullIfEmpty(e.ErrorMessage), e.SentAt, e.UpdatedAt, e.ID,
	)
	return err
}

func (r *MessageLogRepository) ListRetryable(ctx context.Context, campaignID int) ([]*model.MessageLogEntry, error) {
	query := `SELECT ` + messageLogColumns + `
        FROM message_log
        WHERE campaign_id=$1 AND status=$2 AND retry_count < max_retries
        ORDER BY id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, model.MessageFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*model.MessageLogEntry{}
	for rows.Next() {
		e, err := scanMessageLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *MessageLogRepository) CountByStatus(ctx context.Context, campaignID int) (map[model.MessageStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM message_log WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[model.MessageStatus]int{}
	for rows.Next() {
		var status model.MessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ MessageLogRepositoryInterface = (*MessageLogRepository)(nil)
