package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/services"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/store"
)

// PaymentServiceContract is the slice of PaymentService the handlers need.
type PaymentServiceContract interface {
	Initiate(ctx context.Context, req services.InitiateRequest) (*models.Transaction, error)
	HandleCallback(ctx context.Context, cb models.StkCallback) error
	Status(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)
	List(ctx context.Context, status models.Status) ([]models.Transaction, error)
}

// PollerContract blocks until a transaction resolves or the wait budget runs
// out.
type PollerContract interface {
	Wait(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)
}

type PaymentHandler struct {
	service PaymentServiceContract
	poller  PollerContract
}

func NewPaymentHandler(service PaymentServiceContract, poller PollerContract) *PaymentHandler {
	return &PaymentHandler{service: service, poller: poller}
}

type initiateRequest struct {
	Phone       string `json:"phone"`
	Amount      int64  `json:"amount"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

type statusResponse struct {
	Status        models.Status `json:"status"`
	ResultCode    *int          `json:"resultCode,omitempty"`
	ResultDesc    string        `json:"resultDesc,omitempty"`
	ReceiptNumber string        `json:"receiptNumber,omitempty"`
}

// InitiatePayment handles POST /api/payment.
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	tx, err := h.service.Initiate(r.Context(), services.InitiateRequest{
		Phone:       req.Phone,
		Amount:      req.Amount,
		Email:       req.Email,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case services.IsValidation(err):
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		case services.IsGatewayUnavailable(err):
			writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "payment gateway unavailable"})
		default:
			log.Printf("Failed to initiate payment: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to initiate payment"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"checkoutRequestId": tx.CheckoutRequestID,
	})
}

// Callback handles POST /api/payment/callback. The gateway retries any
// response it does not recognize as terminal, so this endpoint acknowledges
// unconditionally: malformed payloads and store failures are logged, never
// surfaced.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	defer h.acknowledge(w)

	var envelope models.CallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Printf("Discarding undecodable callback payload: %v", err)
		return
	}

	if err := h.service.HandleCallback(r.Context(), envelope.Body.StkCallback); err != nil {
		log.Printf("Callback processing failed for %s: %v", envelope.Body.StkCallback.CheckoutRequestID, err)
	}
}

func (h *PaymentHandler) acknowledge(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// Status handles GET /api/payment/status/{checkoutRequestID}.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	checkoutRequestID := mux.Vars(r)["checkoutRequestID"]

	tx, err := h.service.Status(r.Context(), checkoutRequestID)
	if err != nil {
		if store.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "transaction not found"})
			return
		}
		log.Printf("Failed to fetch status for %s: %v", checkoutRequestID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch transaction"})
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(tx))
}

// Poll handles GET /api/payment/poll/{checkoutRequestID}. It holds the
// request open until the transaction resolves or the poller's wait budget is
// exhausted; an inconclusive outcome is reported with timedOut=true and is
// not a payment failure.
func (h *PaymentHandler) Poll(w http.ResponseWriter, r *http.Request) {
	checkoutRequestID := mux.Vars(r)["checkoutRequestID"]

	tx, err := h.poller.Wait(r.Context(), checkoutRequestID)
	if err != nil {
		switch {
		case services.IsPollTimeout(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			resp := map[string]any{"timedOut": true, "status": models.StatusPending}
			if tx != nil {
				resp["status"] = tx.Status
			}
			writeJSON(w, http.StatusOK, resp)
		case store.IsNotFound(err):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "transaction not found"})
		default:
			log.Printf("Poll failed for %s: %v", checkoutRequestID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to poll transaction"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(tx))
}

// ListPayments handles GET /api/payments with an optional status filter.
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	status := models.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid status filter"})
		return
	}

	transactions, err := h.service.List(r.Context(), status)
	if err != nil {
		log.Printf("Failed to list transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch transactions"})
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func toStatusResponse(tx *models.Transaction) statusResponse {
	return statusResponse{
		Status:        tx.Status,
		ResultCode:    tx.ResultCode,
		ResultDesc:    tx.ResultDesc,
		ReceiptNumber: tx.ReceiptNumber,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
