// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/bulkwave/bulkwave-backend/internal/errors"
	"github.com/bulkwave/bulkwave-backend/internal/model"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
	"github.com/bulkwave/bulkwave-backend/internal/service"
)

// Executor is the slice of the campaign executor the controller needs.
type Executor interface {
	Start(ctx context.Context, campaignID int) error
	Pause(ctx context.Context, campaignID int) error
	Resume(ctx context.Context, campaignID int) error
	Cancel(ctx context.Context, campaignID int) error
	RetryFailed(ctx context.Context, campaignID int) (int, error)
}

type CampaignController struct {
	CampaignService *service.CampaignService
	Executor        Executor
	Events          repository.DeliveryEventRepositoryInterface
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID           int     `json:"tenant_id"`
		Name               string  `json:"name"`
		Subject            string  `json:"subject"`
		Body               string  `json:"body"`
		Channel            string  `json:"channel"`
		ScheduledAt        *string `json:"scheduled_at"`
		BatchSize          int     `json:"batch_size"`
		RateLimitPerMinute int     `json:"rate_limit_per_minute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), service.CreateCampaignInput{
		TenantID:           body.TenantID,
		Name:               body.Name,
		Subject:            body.Subject,
		Body:               body.Body,
		Channel:            body.Channel,
		ScheduledAt:        body.ScheduledAt,
		BatchSize:          body.BatchSize,
		RateLimitPerMinute: body.RateLimitPerMinute,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	channel := r.URL.Query().Get("channel")
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize, channel, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

// GetProgress returns the live progress snapshot for UI polling.
func (c *CampaignController) GetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	progress, err := c.CampaignService.GetProgress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"progress":            progress,
		"progress_percentage": progress.ProgressPercentage(),
	})
}

// GetStats aggregates the campaign's event counts into rates.
func (c *CampaignController) GetStats(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if _, err := c.CampaignService.GetCampaign(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	counts, err := c.Events.CountByType(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(service.ComputeDeliveryStats(counts))
}

func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	c.controlOp(w, r, "running", c.Executor.Start)
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	c.controlOp(w, r, "paused", c.Executor.Pause)
}

func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	c.controlOp(w, r, "running", c.Executor.Resume)
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	c.controlOp(w, r, "cancelled", c.Executor.Cancel)
}

func (c *CampaignController) RetryFailed(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	resent, err := c.Executor.RetryFailed(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"resent":      resent,
	})
}

func (c *CampaignController) controlOp(w http.ResponseWriter, r *http.Request, resulting string, op func(context.Context, int) error) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id": id,
		"status":      model.CampaignStatus(resulting),
	})
}

func campaignID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// writeError maps the error taxonomy onto HTTP: unknown campaign 404,
// illegal transition 409, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	var invalidState *appErrors.ErrInvalidState

	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
