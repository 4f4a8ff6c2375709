// internal/service/rate_limiter.go
package service

import "time"

// RateLimiter converts a requested send rate into the pause the
// executor takes between batches.
type RateLimiter struct{}

// WaitTime returns how long to sleep after a batch of batchSize sends
// so the overall rate stays at ratePerMinute. A rate of zero or less
// means no throttling.
//
// rate=120/min, batchSize=50 -> 2 emails/s -> 0.5s each -> 25s.
func (RateLimiter) WaitTime(ratePerMinute, batchSize int) time.Duration {
	if ratePerMinute <= 0 {
		return 0
	}
	secondsPerEmail := 60.0 / float64(ratePerMinute)
	wait := float64(batchSize) * secondsPerEmail
	return time.Duration(wait * float64(time.Second))
}
