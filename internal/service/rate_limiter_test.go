package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitTime(t *testing.T) {
	var rl RateLimiter

	tests := []struct {
		name          string
		ratePerMinute int
		batchSize     int
		want          time.Duration
	}{
		{"120 per minute, batch of 50", 120, 50, 25 * time.Second},
		{"60 per minute, batch of 1", 60, 1, time.Second},
		{"zero rate disables throttling", 0, 50, 0},
		{"negative rate disables throttling", -10, 50, 0},
		{"30 per minute, batch of 10", 30, 10, 20 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rl.WaitTime(tt.ratePerMinute, tt.batchSize))
		})
	}
}
