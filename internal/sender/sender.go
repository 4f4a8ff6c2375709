// internal/sender/sender.go
package sender

import (
	"context"
	"fmt"
	"math/rand"
)

// ChannelSender is the external transport capability for one channel
// (email, SMS, WhatsApp). The real implementation lives outside this
// service; it owns its own timeouts.
type ChannelSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// MockSender simulates a transport with a configurable success rate.
type MockSender struct {
	SuccessRate float64
}

func NewMockSender() *MockSender {
	return &MockSender{SuccessRate: 0.9}
}

func (m *MockSender) Send(ctx context.Context, recipient, subject, body string) error {
	if rand.Float64() < m.SuccessRate {
		return nil
	}
	return fmt.Errorf("mock sending failed")
}
