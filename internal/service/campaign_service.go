// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/model"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
)

// CampaignService owns campaign CRUD. Execution is the executor's job;
// this service only sets campaigns up for it.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ProgressRepo repository.ProgressRepositoryInterface

	DefaultBatchSize     int
	DefaultRatePerMinute int
}

type CreateCampaignInput struct {
	TenantID           int
	Name               string
	Subject            string
	Body               string
	Channel            string
	ScheduledAt        *string // RFC3339
	BatchSize          int
	RateLimitPerMinute int
}

// CreateCampaign inserts the campaign and its progress row. A schedule
// time puts it straight into scheduled for the poller to pick up.
func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	c := &model.Campaign{
		TenantID: in.TenantID,
		Name:     in.Name,
		Subject:  in.Subject,
		Body:     in.Body,
		Channel:  in.Channel,
		Status:   model.StatusDraft,
	}

	if in.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *in.ScheduledAt)
		if err != nil {
			return nil, err
		}
		c.ScheduledAt = &t
		c.Status = model.StatusScheduled
	}

	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = s.DefaultBatchSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	rate := in.RateLimitPerMinute
	if rate <= 0 {
		rate = s.DefaultRatePerMinute
	}

	p := &model.CampaignProgress{
		CampaignID:         c.ID,
		Status:             c.Status,
		BatchSize:          batchSize,
		RateLimitPerMinute: rate,
		ScheduledTime:      c.ScheduledAt,
	}
	if err := s.ProgressRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, channel, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, channel, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaign fetches a campaign by ID.
func (s *CampaignService) GetCampaign(ctx context.Context, id int) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

// GetProgress returns the progress snapshot for UI polling. A missing
// row yields zeroed defaults rather than an error.
func (s *CampaignService) GetProgress(ctx context.Context, campaignID int) (*model.CampaignProgress, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}

	p, err := s.ProgressRepo.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &model.CampaignProgress{CampaignID: campaignID, Status: model.StatusDraft}, nil
	}
	return p, nil
}
