package services

import "errors"

var (
	// ErrValidation covers bad phone numbers, non-positive amounts and
	// malformed emails. Rejected synchronously; no record is created.
	ErrValidation = errors.New("payment: invalid request")

	// ErrGatewayUnavailable means the STK push call failed or timed out.
	// Surfaced to the caller; no record is created.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")

	// ErrPollTimeout means the poller exceeded its maximum wait without
	// observing a terminal status. Inconclusive, distinct from a failed
	// payment: the record may still resolve later.
	ErrPollTimeout = errors.New("payment: status poll timed out")
)

func IsValidation(err error) bool         { return errors.Is(err, ErrValidation) }
func IsGatewayUnavailable(err error) bool { return errors.Is(err, ErrGatewayUnavailable) }
func IsPollTimeout(err error) bool        { return errors.Is(err, ErrPollTimeout) }
