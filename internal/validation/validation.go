// Package validation decides whether a proposed amount is a legal next bid.
// It performs no I/O and never reads the clock; callers pass the instant to judge against.
package validation

import (
	"fmt"
	"time"

	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/lifecycle"
	"bidding-engine/internal/models"

	"github.com/shopspring/decimal"
)

// MinimumBid is the smallest amount the auction accepts next: (current ?? base) + increment
func MinimumBid(auction models.Auction) decimal.Decimal {
	return auction.PriceFloor().Add(auction.BidIncrement)
}

// Validate checks amount against the auction snapshot. Rules run in order and the first
// failure decides the error: not open, below the minimum, then malformed amount.
func Validate(auction models.Auction, amount decimal.Decimal, now time.Time) error {
	if !lifecycle.CanAcceptBids(auction, now) {
		return fmt.Errorf("%w: auction %s is %s", biddingerrors.ErrAuctionNotOpen, auction.ID, auction.Status)
	}

	if minBid := MinimumBid(auction); amount.LessThan(minBid) {
		return &biddingerrors.BidTooLowError{MinBid: minBid}
	}

	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", biddingerrors.ErrInvalidAmount)
	}
	if amount.GreaterThanOrEqual(models.MaxAmount) {
		return fmt.Errorf("%w: %s must be below %s", biddingerrors.ErrInvalidAmount, amount.String(), models.MaxAmount.String())
	}
	units := models.MinorUnits(auction.Currency)
	if !amount.Equal(amount.Truncate(units)) {
		return fmt.Errorf("%w: %s has more than %d fractional digits", biddingerrors.ErrInvalidAmount, amount.String(), units)
	}

	return nil
}
