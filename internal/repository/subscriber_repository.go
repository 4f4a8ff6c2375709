package repository

import (
	"context"
	"database/sql"

	"github.com/bulkwave/bulkwave-backend/internal/model"
)

type SubscriberRepositoryInterface interface {
	// ListActiveByChannel returns the active recipient set for one
	// tenant, in a stable order so batch offsets stay meaningful
	// across a pause and resume.
	ListActiveByChannel(ctx context.Context, tenantID int, channel string) ([]model.Subscriber, error)
	GetByAddress(ctx context.Context, tenantID int, channel, address string) (*model.Subscriber, error)
	UpdateStatusByEmail(ctx context.Context, email string, status model.SubscriberStatus) error
}

type SubscriberRepository struct {
	DB *sql.DB
}

const subscriberColumns = `id, tenant_id, email, phone, first_name, last_name, status`

func scanSubscriber(row interface{ Scan(...any) error }) (*model.Subscriber, error) {
	var s model.Subscriber
	if err := row.Scan(&s.ID, &s.TenantID, &s.Email, &s.Phone, &s.FirstName, &s.LastName, &s.Status); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriberRepository) ListActiveByChannel(ctx context.Context, tenantID int, channel string) ([]model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + `
        FROM subscribers
        WHERE tenant_id=$1 AND status=$2
        ORDER BY id
    `
	rows, err := r.DB.QueryContext(ctx, query, tenantID, model.SubscriberActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subscribers := []model.Subscriber{}
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		if s.Address(channel) == "" {
			continue // not reachable on this channel
		}
		subscribers = append(subscribers, *s)
	}
	return subscribers, rows.Err()
}

func (r *SubscriberRepository) GetByAddress(ctx context.Context, tenantID int, channel, address string) (*model.Subscriber, error) {
	col := "email"
	if channel == "sms" || channel == "whatsapp" {
		col = "phone"
	}
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE tenant_id=$1 AND ` + col + `=$2`
	s, err := scanSubscriber(r.DB.QueryRowContext(ctx, query, tenantID, address))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SubscriberRepository) UpdateStatusByEmail(ctx context.Context, email string, status model.SubscriberStatus) error {
	query := `UPDATE subscribers SET status=$1 WHERE email=$2`
	_, err := r.DB.ExecContext(ctx, query, status, email)
	return err
}

var _ SubscriberRepositoryInterface = (*SubscriberRepository)(nil)
