package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	appErrors "github.com/bulkwave/bulkwave-backend/internal/errors"
	"github.com/bulkwave/bulkwave-backend/internal/model"
)

// In-memory fakes for the repository interfaces, shared by the service
// tests.

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	nextID    int
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{
		campaigns: map[int]*model.Campaign{},
		nextID:    1,
	}
}

func (r *fakeCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCampaignRepo) ListCampaigns(ctx context.Context, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range r.campaigns {
		cp := *c
		all = append(all, &cp)
	}
	return all, len(all), nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id int, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.Status = status
	}
	return nil
}

func (r *fakeCampaignRepo) SetTotalRecipients(ctx context.Context, id, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.TotalRecipients = total
	}
	return nil
}

// IncrementCounter mutates the same columns the SQL does: no separate
// bookkeeping, so a sync and an increment racing over one field is
// observable here exactly as it would be in postgres. sent has no case,
// matching the repository's column map.
func (r *fakeCampaignRepo) IncrementCounter(ctx context.Context, id int, event model.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil
	}
	switch event {
	case model.EventDelivered:
		c.DeliveredCount++
	case model.EventOpened:
		c.OpenedCount++
	case model.EventClicked:
		c.ClickedCount++
	case model.EventBounced:
		c.BouncedCount++
	case model.EventUnsubscribed:
		c.UnsubscribedCount++
	}
	return nil
}

func (r *fakeCampaignRepo) SyncSentCount(ctx context.Context, id, sent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.SentCount = sent
	}
	return nil
}

func (r *fakeCampaignRepo) counter(id int, event model.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return 0
	}
	switch event {
	case model.EventSent:
		return c.SentCount
	case model.EventDelivered:
		return c.DeliveredCount
	case model.EventOpened:
		return c.OpenedCount
	case model.EventClicked:
		return c.ClickedCount
	case model.EventBounced:
		return c.BouncedCount
	case model.EventUnsubscribed:
		return c.UnsubscribedCount
	}
	return 0
}

type fakeProgressRepo struct {
	mu        sync.Mutex
	rows      map[int]*model.CampaignProgress
	snapshots []model.CampaignProgress

	// onUpdate runs after each successful optimistic write, with the
	// lock held. Tests use it to inject concurrent control calls.
	onUpdate func(row *model.CampaignProgress)
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: map[int]*model.CampaignProgress{}}
}

func (r *fakeProgressRepo) Create(ctx context.Context, p *model.CampaignProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version = 1
	cp := *p
	r.rows[p.CampaignID] = &cp
	return nil
}

func (r *fakeProgressRepo) GetByCampaignID(ctx context.Context, id int) (*model.CampaignProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *fakeProgressRepo) Update(ctx context.Context, p *model.CampaignProgress) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[p.CampaignID]
	if !ok || row.Version != p.Version {
		return false, nil
	}
	cp := *p
	cp.Version++
	// stamps owned by TransitionStatus carry over
	cp.StartedAt = row.StartedAt
	cp.PausedAt = row.PausedAt
	cp.CompletedAt = row.CompletedAt
	r.rows[p.CampaignID] = &cp
	p.Version++
	r.snapshots = append(r.snapshots, cp)
	if r.onUpdate != nil {
		r.onUpdate(r.rows[p.CampaignID])
	}
	return true, nil
}

func (r *fakeProgressRepo) TransitionStatus(ctx context.Context, id int, from []model.CampaignStatus, to model.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, f := range from {
		if row.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	now := time.Now()
	row.Status = to
	row.Version++
	switch to {
	case model.StatusRunning:
		if row.StartedAt == nil {
			row.StartedAt = &now
		}
		row.PausedAt = nil
	case model.StatusPaused:
		row.PausedAt = &now
	case model.StatusCompleted, model.StatusCancelled, model.StatusFailed:
		row.CompletedAt = &now
	}
	return true, nil
}

func (r *fakeProgressRepo) ClaimDueScheduled(ctx context.Context, now time.Time) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []int{}
	for id, row := range r.rows {
		if row.Status == model.StatusScheduled && row.ScheduledTime != nil && !row.ScheduledTime.After(now) {
			t := time.Now()
			row.Status = model.StatusRunning
			row.StartedAt = &t
			row.Version++
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeProgressRepo) SetError(ctx context.Context, id int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.ErrorMessage = message
		row.Version++
	}
	return nil
}

func (r *fakeProgressRepo) row(id int) model.CampaignProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.rows[id]
}

type fakeSubscriberRepo struct {
	mu          sync.Mutex
	subscribers []model.Subscriber
	listErr     error
	statuses    map[string]model.SubscriberStatus
}

func newFakeSubscriberRepo(subs ...model.Subscriber) *fakeSubscriberRepo {
	return &fakeSubscriberRepo{subscribers: subs, statuses: map[string]model.SubscriberStatus{}}
}

func (r *fakeSubscriberRepo) ListActiveByChannel(ctx context.Context, tenantID int, channel string) ([]model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []model.Subscriber{}
	for _, s := range r.subscribers {
		if s.TenantID == tenantID && s.Status == model.SubscriberActive && s.Address(channel) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriberRepo) GetByAddress(ctx context.Context, tenantID int, channel, address string) (*model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subscribers {
		if s.TenantID == tenantID && s.Address(channel) == address {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriberRepo) UpdateStatusByEmail(ctx context.Context, email string, status model.SubscriberStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[email] = status
	return nil
}

type fakeMessageLogRepo struct {
	mu      sync.Mutex
	entries []*model.MessageLogEntry
	nextID  int
}

func newFakeMessageLogRepo() *fakeMessageLogRepo {
	return &fakeMessageLogRepo{nextID: 1}
}

func (r *fakeMessageLogRepo) Create(ctx context.Context, e *model.MessageLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.nextID
	r.nextID++
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeMessageLogRepo) GetByID(ctx context.Context, id int) (*model.MessageLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageLogRepo) Update(ctx context.Context, e *model.MessageLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.entries {
		if old.ID == e.ID {
			cp := *e
			r.entries[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("entry %d not found", e.ID)
}

func (r *fakeMessageLogRepo) ListRetryable(ctx context.Context, campaignID int) ([]*model.MessageLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.MessageLogEntry{}
	for _, e := range r.entries {
		if e.CampaignID == campaignID && e.Status == model.MessageFailed && e.RetryCount < e.MaxRetries {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMessageLogRepo) CountByStatus(ctx context.Context, campaignID int) (map[model.MessageStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := map[model.MessageStatus]int{}
	for _, e := range r.entries {
		if e.CampaignID == campaignID {
			stats[e.Status]++
		}
	}
	return stats, nil
}

func (r *fakeMessageLogRepo) all() []model.MessageLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.MessageLogEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

type fakeEventRepo struct {
	mu        sync.Mutex
	events    []model.DeliveryEvent
	appendErr error
	nextID    int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{nextID: 1}
}

func (r *fakeEventRepo) Append(ctx context.Context, ev *model.DeliveryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	ev.ID = r.nextID
	r.nextID++
	r.events = append(r.events, *ev)
	return nil
}

func (r *fakeEventRepo) HasEvent(ctx context.Context, campaignID int, recipient string, t model.EventType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.CampaignID != nil && *ev.CampaignID == campaignID && ev.Recipient == recipient && ev.EventType == t {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEventRepo) CountByType(ctx context.Context, campaignID int) (map[model.EventType]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[model.EventType]int{}
	for _, ev := range r.events {
		if ev.CampaignID != nil && *ev.CampaignID == campaignID {
			counts[ev.EventType]++
		}
	}
	return counts, nil
}

func (r *fakeEventRepo) all() []model.DeliveryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.DeliveryEvent{}, r.events...)
}

// fakeSender fails for the addresses listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	failFor map[string]bool
	sent    []string
}

func newFakeSender(failFor ...string) *fakeSender {
	f := &fakeSender{failFor: map[string]bool{}}
	for _, a := range failFor {
		f.failFor[a] = true
	}
	return f
}

func (s *fakeSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, recipient)
	if s.failFor[recipient] {
		return fmt.Errorf("transport rejected %s", recipient)
	}
	return nil
}

type fakeReputation struct {
	mu      sync.Mutex
	updates []string
}

func (f *fakeReputation) Update(ctx context.Context, email string, event model.EventType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, email+":"+string(event))
	return nil
}
