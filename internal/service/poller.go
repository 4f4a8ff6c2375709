// internal/service/poller.go
package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/repository"
)

// ScheduledPoller promotes due scheduled campaigns to running on a
// fixed interval. The claim is a conditional update, so two pollers
// racing over the same row start it exactly once.
type ScheduledPoller struct {
	Progress repository.ProgressRepositoryInterface
	Executor *CampaignExecutor
	Interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewScheduledPoller(progress repository.ProgressRepositoryInterface, executor *CampaignExecutor, interval time.Duration) *ScheduledPoller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &ScheduledPoller{
		Progress: progress,
		Executor: executor,
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins polling on a background goroutine.
func (p *ScheduledPoller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.PollOnce(context.Background())
			case <-p.stop:
				return
			}
		}
	}()
}

// PollOnce claims every due scheduled campaign and hands it to the
// executor. Returns the number of campaigns started.
func (p *ScheduledPoller) PollOnce(ctx context.Context) int {
	ids, err := p.Progress.ClaimDueScheduled(ctx, time.Now())
	if err != nil {
		log.Println("⚠️ poller: failed to claim scheduled campaigns:", err)
		return 0
	}

	for _, id := range ids {
		log.Printf("⏰ scheduled campaign %d is due, starting\n", id)
		p.Executor.StartClaimed(ctx, id)
	}
	return len(ids)
}

// Stop halts polling and waits for the loop to exit.
func (p *ScheduledPoller) Stop() {
	close(p.stop)
	p.wg.Wait()
}
