package services

import "sync/atomic"

// Metrics counts payment lifecycle events.
type Metrics struct {
	Initiated          atomic.Int64
	Succeeded          atomic.Int64
	Failed             atomic.Int64
	Expired            atomic.Int64
	DuplicateCallbacks atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"payments_initiated":  m.Initiated.Load(),
		"payments_succeeded":  m.Succeeded.Load(),
		"payments_failed":     m.Failed.Load(),
		"payments_expired":    m.Expired.Load(),
		"duplicate_callbacks": m.DuplicateCallbacks.Load(),
	}
}
