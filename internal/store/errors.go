package store

import "errors"

var (
	ErrNotFound    = errors.New("store: transaction not found")
	ErrDuplicateID = errors.New("store: duplicate checkout request id")
	ErrNotPending  = errors.New("store: transaction is not pending")
)

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsDuplicateID(err error) bool { return errors.Is(err, ErrDuplicateID) }
func IsNotPending(err error) bool  { return errors.Is(err, ErrNotPending) }
