package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkwave/bulkwave-backend/internal/model"
)

func TestPollOnceClaimsOnlyDueScheduledRows(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	progress := newFakeProgressRepo()
	subs := newFakeSubscriberRepo(activeSubscribers(2)...)
	msgs := newFakeMessageLogRepo()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	due := seedCampaign(campaigns, progress, model.StatusScheduled, 50, 0)
	setScheduledTime(t, progress, due.ID, &past)

	notDue := seedCampaign(campaigns, progress, model.StatusScheduled, 50, 0)
	setScheduledTime(t, progress, notDue.ID, &future)

	running := seedCampaign(campaigns, progress, model.StatusRunning, 50, 0)
	setScheduledTime(t, progress, running.ID, &past)

	e := newTestExecutor(campaigns, progress, subs, msgs, newFakeSender())
	p := NewScheduledPoller(progress, e, time.Minute)

	started := p.PollOnce(context.Background())
	assert.Equal(t, 1, started)
	e.Wait()

	assert.Equal(t, model.StatusCompleted, progress.row(due.ID).Status)
	assert.Equal(t, model.StatusScheduled, progress.row(notDue.ID).Status)
	assert.Equal(t, model.StatusRunning, progress.row(running.ID).Status)
}

func TestPollOnceIsIdempotentAcrossRacingPolls(t *testing.T) {
	campaigns := newFakeCampaignRepo()
	progress := newFakeProgressRepo()
	subs := newFakeSubscriberRepo(activeSubscribers(1)...)
	msgs := newFakeMessageLogRepo()

	past := time.Now().Add(-time.Minute)
	due := seedCampaign(campaigns, progress, model.StatusScheduled, 50, 0)
	setScheduledTime(t, progress, due.ID, &past)

	e := newTestExecutor(campaigns, progress, subs, msgs, newFakeSender())
	p := NewScheduledPoller(progress, e, time.Minute)

	// the first poll claims the row; the second finds nothing
	assert.Equal(t, 1, p.PollOnce(context.Background()))
	assert.Equal(t, 0, p.PollOnce(context.Background()))
	e.Wait()

	// the recipient was sent to exactly once
	require.Len(t, msgs.all(), 1)
}

func setScheduledTime(t *testing.T, progress *fakeProgressRepo, campaignID int, at *time.Time) {
	t.Helper()
	progress.mu.Lock()
	defer progress.mu.Unlock()
	progress.rows[campaignID].ScheduledTime = at
}
