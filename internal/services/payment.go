package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/notify"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/store"
)

const expiredResultCode = 1037 // Daraja's "timeout, user cannot be reached"

// PaymentService owns the payment lifecycle: it initiates STK push requests,
// resolves gateway callbacks idempotently, arms a per-transaction expiry
// watchdog and, when no gateway is configured, settles payments with a
// deferred synthetic callback.
type PaymentService struct {
	store    store.TransactionStore
	gateway  Gateway // nil means simulation mode
	notifier notify.Notifier
	clock    clockwork.Clock
	metrics  *Metrics

	pendingTTL time.Duration
	simDelay   time.Duration

	done chan struct{}
}

func NewPaymentService(st store.TransactionStore, gw Gateway, notifier notify.Notifier, clock clockwork.Clock, metrics *Metrics, pendingTTL, simDelay time.Duration) *PaymentService {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &PaymentService{
		store:      st,
		gateway:    gw,
		notifier:   notifier,
		clock:      clock,
		metrics:    metrics,
		pendingTTL: pendingTTL,
		simDelay:   simDelay,
		done:       make(chan struct{}),
	}
}

// Shutdown stops background watchdog and simulation timers.
func (s *PaymentService) Shutdown() {
	close(s.done)
}

// Initiate validates the request, asks the gateway to prompt the payer's
// handset and records the resulting PENDING transaction. Validation and
// gateway failures create no record.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (*models.Transaction, error) {
	if err := validateInitiate(&req); err != nil {
		log.Printf("Rejected payment request: %v", err)
		return nil, err
	}

	var checkoutID, merchantID string
	if s.gateway == nil {
		checkoutID = syntheticCheckoutID(s.clock.Now())
		merchantID = uuid.NewString()
	} else {
		resp, err := s.gateway.STKPush(ctx, req.Phone, req.Amount, checkoutReference(req.Email), req.Description)
		if err != nil {
			log.Printf("STK push failed for %s: %v", req.Phone, err)
			return nil, err
		}
		checkoutID = resp.CheckoutRequestID
		merchantID = resp.MerchantRequestID
	}

	now := s.clock.Now().UTC()
	tx := &models.Transaction{
		CheckoutRequestID: checkoutID,
		MerchantRequestID: merchantID,
		Phone:             req.Phone,
		Email:             req.Email,
		Amount:            req.Amount,
		Description:       req.Description,
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		log.Printf("Failed to record transaction %s: %v", checkoutID, err)
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.metrics.Initiated.Add(1)
	s.armWatchdog(checkoutID, s.pendingTTL)
	if s.gateway == nil {
		s.scheduleSimulatedCallback(tx)
		log.Printf("Simulation mode: transaction %s will settle in %s", checkoutID, s.simDelay)
	}
	log.Printf("Transaction created: checkout_request_id=%s amount=%d", checkoutID, req.Amount)
	return tx, nil
}

// HandleCallback resolves a pending transaction from a gateway callback.
// Callbacks for unknown or already-terminal transactions are the expected
// duplicate-delivery path and return nil without mutating anything.
func (s *PaymentService) HandleCallback(ctx context.Context, cb models.StkCallback) error {
	if cb.CheckoutRequestID == "" {
		return fmt.Errorf("%w: callback missing CheckoutRequestID", ErrValidation)
	}

	res := store.Resolution{
		ResultCode: cb.ResultCode,
		ResultDesc: cb.ResultDesc,
	}
	if cb.ResultCode == 0 {
		receipt, ok := cb.CallbackMetadata.String("MpesaReceiptNumber")
		if !ok {
			return fmt.Errorf("%w: success callback missing MpesaReceiptNumber", ErrValidation)
		}
		res.Status = models.StatusSuccess
		res.ReceiptNumber = receipt
	} else {
		res.Status = models.StatusFailed
	}

	tx, err := s.store.ResolveIfPending(ctx, cb.CheckoutRequestID, res)
	if err != nil {
		if store.IsNotFound(err) || store.IsNotPending(err) {
			s.metrics.DuplicateCallbacks.Add(1)
			log.Printf("Ignoring callback for %s: %v", cb.CheckoutRequestID, err)
			return nil
		}
		log.Printf("Failed to apply callback for %s: %v", cb.CheckoutRequestID, err)
		return err
	}

	if res.Status == models.StatusSuccess {
		s.metrics.Succeeded.Add(1)
		if amount, ok := cb.CallbackMetadata.Int64("Amount"); ok && amount != tx.Amount {
			log.Printf("Settled amount %d differs from requested %d for %s", amount, tx.Amount, tx.CheckoutRequestID)
		}
		go s.sendReceipt(tx)
	} else {
		s.metrics.Failed.Add(1)
	}
	log.Printf("Transaction resolved: checkout_request_id=%s status=%s result_code=%d", tx.CheckoutRequestID, tx.Status, cb.ResultCode)
	return nil
}

// Status returns the current record for a checkout request id.
func (s *PaymentService) Status(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	return s.store.Get(ctx, checkoutRequestID)
}

// List returns transactions, optionally filtered by status.
func (s *PaymentService) List(ctx context.Context, status models.Status) ([]models.Transaction, error) {
	return s.store.List(ctx, status)
}

// ResumeWatchdogs re-arms expiry timers for transactions that were PENDING
// when the process last stopped. Records already past their TTL expire on the
// spot.
func (s *PaymentService) ResumeWatchdogs(ctx context.Context) error {
	pending, err := s.store.List(ctx, models.StatusPending)
	if err != nil {
		return err
	}
	for _, tx := range pending {
		remaining := s.pendingTTL - s.clock.Now().Sub(tx.CreatedAt)
		if remaining <= 0 {
			s.expire(ctx, tx.CheckoutRequestID)
			continue
		}
		s.armWatchdog(tx.CheckoutRequestID, remaining)
	}
	if len(pending) > 0 {
		log.Printf("Re-armed expiry watchdog for %d pending transactions", len(pending))
	}
	return nil
}

// armWatchdog guarantees the record reaches a terminal state even if the
// gateway's callback is lost. The transition uses the same conditional update
// as callbacks, so it can never clobber a result that arrived first.
func (s *PaymentService) armWatchdog(checkoutRequestID string, after time.Duration) {
	go func() {
		select {
		case <-s.done:
			return
		case <-s.clock.After(after):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.expire(ctx, checkoutRequestID)
	}()
}

// expire applies the Pending->Expired transition; losing the race to a
// callback is the normal case and is not an error.
func (s *PaymentService) expire(ctx context.Context, checkoutRequestID string) {
	_, err := s.store.ResolveIfPending(ctx, checkoutRequestID, store.Resolution{
		Status:     models.StatusExpired,
		ResultCode: expiredResultCode,
		ResultDesc: "No confirmation received before expiry",
	})
	if err != nil {
		if !store.IsNotPending(err) && !store.IsNotFound(err) {
			log.Printf("Watchdog failed to expire %s: %v", checkoutRequestID, err)
		}
		return
	}
	s.metrics.Expired.Add(1)
	log.Printf("Transaction expired: checkout_request_id=%s", checkoutRequestID)
}

// scheduleSimulatedCallback settles a simulated transaction by routing a
// synthetic success callback through the same path a live gateway would use.
func (s *PaymentService) scheduleSimulatedCallback(tx *models.Transaction) {
	cb := models.StkCallback{
		MerchantRequestID: tx.MerchantRequestID,
		CheckoutRequestID: tx.CheckoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &models.CallbackMetadata{Item: []models.MetadataItem{
			{Name: "Amount", Value: float64(tx.Amount)},
			{Name: "MpesaReceiptNumber", Value: syntheticReceipt()},
			{Name: "TransactionDate", Value: s.clock.Now().Format("20060102150405")},
			{Name: "PhoneNumber", Value: tx.Phone},
		}},
	}

	go func() {
		select {
		case <-s.done:
			return
		case <-s.clock.After(s.simDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.HandleCallback(ctx, cb); err != nil {
			log.Printf("Simulated callback failed for %s: %v", tx.CheckoutRequestID, err)
		}
	}()
}

func (s *PaymentService) sendReceipt(tx *models.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.notifier.PaymentReceived(ctx, tx); err != nil {
		log.Printf("Failed to send receipt for %s: %v", tx.CheckoutRequestID, err)
	}
}

// syntheticCheckoutID mimics the ws_CO_<timestamp><serial> format the live
// gateway assigns.
func syntheticCheckoutID(now time.Time) string {
	serial := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "ws_CO_" + now.Format("02012006150405") + serial
}

func syntheticReceipt() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
}

// checkoutReference derives the short account reference shown on the payer's
// handset.
func checkoutReference(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		ref := email[:at]
		if len(ref) > 12 {
			ref = ref[:12]
		}
		return ref
	}
	return "payment"
}
