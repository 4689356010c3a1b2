package biddingerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrPriceConflict    = errors.New("current price changed since it was read")
	ErrStatusConflict   = errors.New("auction status changed since it was read")
	ErrStoreUnavailable = errors.New("auction store unavailable")
)

// business logic errors
var (
	ErrInvalidBid             = errors.New("invalid bid")
	ErrAuctionNotOpen         = errors.New("auction not open for bidding")
	ErrBidTooLow              = errors.New("bid amount too low")
	ErrInvalidAmount          = errors.New("invalid bid amount")
	ErrConcurrentModification = errors.New("auction modified concurrently")
	ErrInvalidTransition      = errors.New("invalid auction status transition")
)

// BidTooLowError carries the minimum acceptable bid so callers can display it.
// It matches ErrBidTooLow under errors.Is.
type BidTooLowError struct {
	MinBid decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s: minimum bid is %s", ErrBidTooLow, e.MinBid.String())
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// MinBid extracts the minimum bid from a BidTooLowError anywhere in err's chain
func MinBid(err error) (decimal.Decimal, bool) {
	var tooLow *BidTooLowError
	if errors.As(err, &tooLow) {
		return tooLow.MinBid, true
	}
	return decimal.Decimal{}, false
}

// IsRetryable reports whether the caller may resubmit with a fresh amount
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
