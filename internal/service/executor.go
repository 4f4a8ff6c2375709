// internal/service/executor.go
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/bulkwave/bulkwave-backend/internal/errors"
	"github.com/bulkwave/bulkwave-backend/internal/model"
	"github.com/bulkwave/bulkwave-backend/internal/queue"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
	"github.com/bulkwave/bulkwave-backend/internal/sender"
)

const DefaultBatchSize = 50

// CampaignExecutor drives campaign runs: it partitions the recipient
// set into batches, invokes the channel sender, keeps CampaignProgress
// current and honors pause/cancel at batch boundaries.
//
// Each running campaign owns one goroutine; batches within a run are
// strictly sequential so the rate limit holds. Control calls mutate
// status through conditional updates, and the loop re-reads status
// before every batch, so a pause or cancel is never lost — it just
// waits for the in-flight batch to finish.
type CampaignExecutor struct {
	Campaigns   repository.CampaignRepositoryInterface
	Progress    repository.ProgressRepositoryInterface
	Subscribers repository.SubscriberRepositoryInterface
	MessageLog  repository.MessageLogRepositoryInterface
	Sender      sender.ChannelSender
	Limiter     RateLimiter
	Retry       *RetryManager

	// Signals receives a sent event per successful send; the tracker
	// subscribes on the other end. Optional.
	Signals queue.Queue

	// Sleep is swappable for tests; nil means time.Sleep.
	Sleep func(time.Duration)

	wg sync.WaitGroup
}

// Start validates the campaign, claims it for execution and kicks off
// the batch loop on its own goroutine. Returns immediately.
func (e *CampaignExecutor) Start(ctx context.Context, campaignID int) error {
	c, err := e.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	p, err := e.Progress.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return err
	}
	if p == nil {
		return appErrors.NewCampaignNotFound(campaignID)
	}

	claimed, err := e.Progress.TransitionStatus(ctx, campaignID,
		[]model.CampaignStatus{model.StatusDraft, model.StatusScheduled}, model.StatusRunning)
	if err != nil {
		return err
	}
	if !claimed {
		return appErrors.NewInvalidState(campaignID, "start", string(p.Status))
	}

	if err := e.Campaigns.UpdateStatus(ctx, campaignID, model.StatusRunning); err != nil {
		log.Println("⚠️ failed to update campaign status:", err)
	}

	log.Printf("🚀 starting campaign %d (%s)\n", c.ID, c.Name)
	e.launch(campaignID)
	return nil
}

// Pause stops the run before its next batch. Valid only from running;
// the current batch always finishes.
func (e *CampaignExecutor) Pause(ctx context.Context, campaignID int) error {
	p, err := e.Progress.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return err
	}
	if p == nil {
		return appErrors.NewCampaignNotFound(campaignID)
	}

	ok, err := e.Progress.TransitionStatus(ctx, campaignID,
		[]model.CampaignStatus{model.StatusRunning}, model.StatusPaused)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewInvalidState(campaignID, "pause", string(p.Status))
	}

	return e.Campaigns.UpdateStatus(ctx, campaignID, model.StatusPaused)
}

// Resume re-enters the batch loop at the batch after the last one that
// completed; already-sent batches are not resent.
func (e *CampaignExecutor) Resume(ctx context.Context, campaignID int) error {
	p, err := e.Progress.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return err
	}
	if p == nil {
		return appErrors.NewCampaignNotFound(campaignID)
	}

	ok, err := e.Progress.TransitionStatus(ctx, campaignID,
		[]model.CampaignStatus{model.StatusPaused}, model.StatusRunning)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewInvalidState(campaignID, "resume", string(p.Status))
	}

	if err := e.Campaigns.UpdateStatus(ctx, campaignID, model.StatusRunning); err != nil {
		log.Println("⚠️ failed to update campaign status:", err)
	}

	e.launch(campaignID)
	return nil
}

// Cancel is valid from running, paused or scheduled. The loop stops
// before its next batch.
func (e *CampaignExecutor) Cancel(ctx context.Context, campaignID int) error {
	p, err := e.Progress.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return err
	}
	if p == nil {
		return appErrors.NewCampaignNotFound(campaignID)
	}

	ok, err := e.Progress.TransitionStatus(ctx, campaignID,
		[]model.CampaignStatus{model.StatusRunning, model.StatusPaused, model.StatusScheduled},
		model.StatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewInvalidState(campaignID, "cancel", string(p.Status))
	}

	return e.Campaigns.UpdateStatus(ctx, campaignID, model.StatusCancelled)
}

// RetryFailed resends failed log entries still under the retry cap.
// Independent of the main run.
func (e *CampaignExecutor) RetryFailed(ctx context.Context, campaignID int) (int, error) {
	return e.Retry.RetryFailed(ctx, campaignID)
}

// StartClaimed runs a campaign whose progress row was already flipped
// to running by the scheduled poller's claim.
func (e *CampaignExecutor) StartClaimed(ctx context.Context, campaignID int) {
	if err := e.Campaigns.UpdateStatus(ctx, campaignID, model.StatusRunning); err != nil {
		log.Println("⚠️ failed to update campaign status:", err)
	}
	e.launch(campaignID)
}

// Wait blocks until all in-flight runs finish. Used on shutdown and in
// tests.
func (e *CampaignExecutor) Wait() {
	e.wg.Wait()
}

func (e *CampaignExecutor) launch(campaignID int) {
	runID := uuid.NewString()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(campaignID, runID)
	}()
}

// run executes the batch loop and absorbs every failure: a loop-level
// fault marks the campaign failed, it never crashes the process.
func (e *CampaignExecutor) run(campaignID int, runID string) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ [run %s] campaign %d panicked: %v\n", runID, campaignID, r)
			e.markFailed(ctx, campaignID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := e.executeBatches(ctx, campaignID, runID); err != nil {
		log.Printf("⚠️ [run %s] campaign %d failed: %v\n", runID, campaignID, err)
		e.markFailed(ctx, campaignID, err.Error())
	}
}

func (e *CampaignExecutor) executeBatches(ctx context.Context, campaignID int, runID string) error {
	c, err := e.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return appErrors.NewExecutionError(campaignID, err)
	}

	p, err := e.Progress.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return appErrors.NewExecutionError(campaignID, err)
	}
	if p == nil {
		return appErrors.NewExecutionError(campaignID, fmt.Errorf("progress row missing"))
	}

	recipients, err := e.Subscribers.ListActiveByChannel(ctx, c.TenantID, c.Channel)
	if err != nil {
		return appErrors.NewExecutionError(campaignID, err)
	}

	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	p.TotalRecipients = len(recipients)
	p.TotalBatches = model.TotalBatchesFor(len(recipients), p.BatchSize)
	if err := e.persistProgress(ctx, p); err != nil {
		return appErrors.NewExecutionError(campaignID, err)
	}
	if err := e.Campaigns.SetTotalRecipients(ctx, campaignID, len(recipients)); err != nil {
		log.Println("⚠️ failed to update campaign totals:", err)
	}

	// CurrentBatchNumber counts completed batches, so it doubles as the
	// resume offset: a resumed run picks up at the next unsent batch.
	for b := p.CurrentBatchNumber; b < p.TotalBatches; b++ {
		cur, err := e.Progress.GetByCampaignID(ctx, campaignID)
		if err != nil {
			return appErrors.NewExecutionError(campaignID, err)
		}
		if cur == nil {
			return appErrors.NewExecutionError(campaignID, fmt.Errorf("progress row missing"))
		}
		if cur.Status == model.StatusPaused || cur.Status == model.StatusCancelled {
			log.Printf("[run %s] campaign %d %s before batch %d, stopping\n", runID, campaignID, cur.Status, b+1)
			return nil
		}
		p.Status = cur.Status
		p.Version = cur.Version

		lo := b * p.BatchSize
		hi := lo + p.BatchSize
		if hi > len(recipients) {
			hi = len(recipients)
		}
		batch := recipients[lo:hi]

		// Persist the in-flight count before sending so a progress poll
		// during the batch sees it; the post-batch write zeroes it again.
		p.EmailsInProgress = len(batch)
		if err := e.persistProgress(ctx, p); err != nil {
			return appErrors.NewExecutionError(campaignID, err)
		}

		for _, s := range batch {
			addr := s.Address(c.Channel)
			entry := &model.MessageLogEntry{
				CampaignID:  campaignID,
				BatchNumber: b + 1,
				Recipient:   addr,
				Channel:     c.Channel,
				MaxRetries:  model.MaxSendRetries,
			}

			sendErr := e.Sender.Send(ctx, addr, c.Subject, c.Body)
			if sendErr != nil {
				entry.Status = model.MessageFailed
				entry.ErrorMessage = appErrors.NewSendError(addr, sendErr).Error()
				p.EmailsFailed++
			} else {
				now := time.Now()
				entry.Status = model.MessageSent
				entry.SentAt = &now
				p.EmailsSuccess++
			}
			p.EmailsSent++

			if err := e.MessageLog.Create(ctx, entry); err != nil {
				return appErrors.NewExecutionError(campaignID, err)
			}
			if sendErr == nil {
				e.publishSent(campaignID, entry)
			}
		}

		now := time.Now()
		p.CurrentBatchNumber = b + 1
		p.LastBatchSentAt = &now
		p.EmailsInProgress = 0
		if err := e.persistProgress(ctx, p); err != nil {
			return appErrors.NewExecutionError(campaignID, err)
		}

		if b < p.TotalBatches-1 {
			e.pause(e.Limiter.WaitTime(p.RateLimitPerMinute, p.BatchSize))
		}
	}

	done, err := e.Progress.TransitionStatus(ctx, campaignID,
		[]model.CampaignStatus{model.StatusRunning}, model.StatusCompleted)
	if err != nil {
		return appErrors.NewExecutionError(campaignID, err)
	}
	if done {
		if err := e.Campaigns.UpdateStatus(ctx, campaignID, model.StatusCompleted); err != nil {
			log.Println("⚠️ failed to update campaign status:", err)
		}
		if err := e.Campaigns.SyncSentCount(ctx, campaignID, p.EmailsSuccess); err != nil {
			log.Println("⚠️ failed to sync campaign counters:", err)
		}
		log.Printf("✅ [run %s] campaign %d completed: %d sent, %d failed\n",
			runID, campaignID, p.EmailsSent, p.EmailsFailed)
	}
	return nil
}

// persistProgress retries the optimistic write after a control call
// bumped the version concurrently, adopting the newer status. The loop
// is the only writer of the counters, so they carry over untouched.
func (e *CampaignExecutor) persistProgress(ctx context.Context, p *model.CampaignProgress) error {
	for attempt := 0; attempt < 3; attempt++ {
		ok, err := e.Progress.Update(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		cur, err := e.Progress.GetByCampaignID(ctx, p.CampaignID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("progress row missing for campaign %d", p.CampaignID)
		}
		p.Status = cur.Status
		p.Version = cur.Version
	}
	return fmt.Errorf("progress update conflict for campaign %d", p.CampaignID)
}

func (e *CampaignExecutor) markFailed(ctx context.Context, campaignID int, message string) {
	claimed, err := e.Progress.TransitionStatus(ctx, campaignID,
		[]model.CampaignStatus{model.StatusRunning, model.StatusPaused}, model.StatusFailed)
	if err != nil {
		log.Println("⚠️ failed to mark progress failed:", err)
		return
	}
	if !claimed {
		// a concurrent cancel won the row; its terminal status stands
		return
	}
	if err := e.Progress.SetError(ctx, campaignID, message); err != nil {
		log.Println("⚠️ failed to record error message:", err)
	}
	if err := e.Campaigns.UpdateStatus(ctx, campaignID, model.StatusFailed); err != nil {
		log.Println("⚠️ failed to update campaign status:", err)
	}
}

func (e *CampaignExecutor) publishSent(campaignID int, entry *model.MessageLogEntry) {
	if e.Signals == nil {
		return
	}
	// Best effort. The signal feeds the event log only; sent_count on
	// the campaign is written solely by the completion sync.
	_ = e.Signals.Publish(queue.TopicDeliverySignals, queue.DeliverySignal{
		MessageID:  entry.ID,
		CampaignID: campaignID,
		Recipient:  entry.Recipient,
		EventType:  model.EventSent,
	})
}

func (e *CampaignExecutor) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	if e.Sleep != nil {
		e.Sleep(d)
		return
	}
	time.Sleep(d)
}
