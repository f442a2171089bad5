package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/store"
)

// StatusPoller repeatedly reads a transaction until it observes a terminal
// status or gives up. It never writes to the store; giving up does not affect
// the record, which may still resolve later.
type StatusPoller struct {
	store    store.TransactionStore
	clock    clockwork.Clock
	interval time.Duration
	maxWait  time.Duration
}

func NewStatusPoller(st store.TransactionStore, clock clockwork.Clock, interval, maxWait time.Duration) *StatusPoller {
	return &StatusPoller{store: st, clock: clock, interval: interval, maxWait: maxWait}
}

// Wait blocks until the transaction reaches a terminal status, the maximum
// wait elapses (ErrPollTimeout, with the last observed record), or ctx is
// cancelled.
func (p *StatusPoller) Wait(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	deadline := p.clock.Now().Add(p.maxWait)

	var last *models.Transaction
	for {
		tx, err := p.store.Get(ctx, checkoutRequestID)
		if err != nil {
			return nil, err
		}
		if tx.Status.Terminal() {
			return tx, nil
		}
		last = tx

		if !p.clock.Now().Add(p.interval).Before(deadline) {
			return last, ErrPollTimeout
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}
}
