package models

import (
	"time"
)

// Status of a transaction. PENDING is the only non-terminal state; a record
// moves to exactly one of SUCCESS, FAILED or EXPIRED and never changes again.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusExpired Status = "EXPIRED"
)

// Terminal reports whether the status is a final one.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusExpired
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Transaction is an STK push payment record. CheckoutRequestID is assigned
// exactly once, at creation, and is the key every later callback or status
// query correlates on. Phone, Email and Amount are immutable after creation.
type Transaction struct {
	CheckoutRequestID string    `bson:"checkout_request_id" json:"checkoutRequestId"`
	MerchantRequestID string    `bson:"merchant_request_id" json:"merchantRequestId"`
	Phone             string    `bson:"phone" json:"phone"`
	Email             string    `bson:"email" json:"email"`
	Amount            int64     `bson:"amount" json:"amount"`
	Description       string    `bson:"description,omitempty" json:"description,omitempty"`
	Status            Status    `bson:"status" json:"status"`
	ResultCode        *int      `bson:"result_code,omitempty" json:"resultCode,omitempty"`
	ResultDesc        string    `bson:"result_desc,omitempty" json:"resultDesc,omitempty"`
	ReceiptNumber     string    `bson:"receipt_number,omitempty" json:"receiptNumber,omitempty"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}
