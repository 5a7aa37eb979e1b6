package orders

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")

	// ErrTransactionFailed means the storage transaction aborted and nothing was persisted.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInsufficientStock is used inside the order transaction only; callers
	// observe it as a REJECTED order.
	ErrInsufficientStock = errors.New("insufficient stock")
)
