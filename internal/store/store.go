package store

import (
	"context"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
)

// Resolution describes the single terminal transition applied to a pending
// transaction. ReceiptNumber is only meaningful when Status is SUCCESS.
type Resolution struct {
	Status        models.Status
	ResultCode    int
	ResultDesc    string
	ReceiptNumber string
}

// TransactionStore is the sole writer-of-record for transactions. Every other
// component (initiator, callback receiver, poller, watchdog) is a client of
// it. ResolveIfPending must be atomic: given concurrent calls for the same
// checkout request id, exactly one succeeds and the rest get ErrNotPending.
type TransactionStore interface {
	// Create inserts a new PENDING record. ErrDuplicateID if the checkout
	// request id already exists.
	Create(ctx context.Context, tx *models.Transaction) error

	// Get returns the record for the given checkout request id, or
	// ErrNotFound.
	Get(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)

	// ResolveIfPending applies res only if the record's current status is
	// PENDING, returning the updated record. ErrNotFound if the id is
	// unknown, ErrNotPending if the record is already terminal.
	ResolveIfPending(ctx context.Context, checkoutRequestID string, res Resolution) (*models.Transaction, error)

	// List returns records, newest first, optionally filtered by status
	// (empty status means all).
	List(ctx context.Context, status models.Status) ([]models.Transaction, error)
}
