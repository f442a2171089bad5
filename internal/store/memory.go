package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
)

// MemoryStore keeps transactions in a mutex-guarded map with the same
// conditional-update semantics as the Mongo store. Used by tests and for
// local development without a MongoDB instance.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*models.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transactions: make(map[string]*models.Transaction)}
}

func (s *MemoryStore) Create(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[tx.CheckoutRequestID]; ok {
		return ErrDuplicateID
	}
	cp := *tx
	s.transactions[tx.CheckoutRequestID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[checkoutRequestID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *MemoryStore) ResolveIfPending(ctx context.Context, checkoutRequestID string, res Resolution) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[checkoutRequestID]
	if !ok {
		return nil, ErrNotFound
	}
	if tx.Status != models.StatusPending {
		return nil, ErrNotPending
	}

	code := res.ResultCode
	tx.Status = res.Status
	tx.ResultCode = &code
	tx.ResultDesc = res.ResultDesc
	if res.Status == models.StatusSuccess {
		tx.ReceiptNumber = res.ReceiptNumber
	}
	tx.UpdatedAt = time.Now().UTC()

	cp := *tx
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, status models.Status) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if status != "" && tx.Status != status {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
