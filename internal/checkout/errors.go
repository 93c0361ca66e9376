package checkout

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyPaid       = errors.New("reservation already paid")
	ErrInProgress        = errors.New("checkout already in progress")
	ErrNoAccountFound    = errors.New("no bank account found for payer")
	ErrNoMerchantAccount = errors.New("no bank account found for merchant")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrPaymentReversed   = errors.New("payment reversed")
	// ErrClaimed means another runner holds the saga or wrote it since it was loaded.
	ErrClaimed = errors.New("saga claimed by another runner")
)
