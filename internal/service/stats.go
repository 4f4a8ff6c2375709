// internal/service/stats.go
package service

import "github.com/bulkwave/bulkwave-backend/internal/model"

// DeliveryStats holds raw event counts and the rates derived from them.
type DeliveryStats struct {
	TotalSent    int `json:"total_sent"`
	Delivered    int `json:"delivered"`
	Opened       int `json:"opened"`
	Clicked      int `json:"clicked"`
	Bounced      int `json:"bounced"`
	Unsubscribed int `json:"unsubscribed"`

	DeliveryRate float64 `json:"delivery_rate"`
	OpenRate     float64 `json:"open_rate"`
	ClickRate    float64 `json:"click_rate"`
	BounceRate   float64 `json:"bounce_rate"`
}

// ComputeDeliveryStats turns raw event counts into rates. Every
// division is guarded; an empty campaign yields all-zero rates.
func ComputeDeliveryStats(counts map[model.EventType]int) DeliveryStats {
	s := DeliveryStats{
		TotalSent:    counts[model.EventSent],
		Delivered:    counts[model.EventDelivered],
		Opened:       counts[model.EventOpened],
		Clicked:      counts[model.EventClicked],
		Bounced:      counts[model.EventBounced],
		Unsubscribed: counts[model.EventUnsubscribed],
	}

	s.DeliveryRate = ratio(s.Delivered, s.TotalSent)
	s.OpenRate = ratio(s.Opened, s.Delivered)
	s.ClickRate = ratio(s.Clicked, s.Opened)
	s.BounceRate = ratio(s.Bounced, s.TotalSent)
	return s
}

func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
