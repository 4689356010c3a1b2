package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusDraft     AuctionStatus = "draft"
	StatusActive    AuctionStatus = "active"
	StatusEnded     AuctionStatus = "ended"
	StatusCancelled AuctionStatus = "cancelled"
)

// ParseStatus converts a raw status string, rejecting anything outside the four known states
func ParseStatus(s string) (AuctionStatus, error) {
	switch st := AuctionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusDraft, StatusActive, StatusEnded, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown auction status %q", s)
	}
}

// Auction represents one timed auction of a repossessed property
type Auction struct {
	ID           string              `json:"id"`
	PropertyID   string              `json:"property_id"`
	Status       AuctionStatus       `json:"status"`
	BasePrice    decimal.Decimal     `json:"base_price"`
	ReservePrice decimal.NullDecimal `json:"reserve_price"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	BidIncrement decimal.Decimal     `json:"bid_increment"`
	Currency     string              `json:"currency"`
	StartDate    time.Time           `json:"start_date"`
	EndDate      time.Time           `json:"end_date"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// PriceFloor returns the current price, or the base price when nothing has been bid yet
func (a Auction) PriceFloor() decimal.Decimal {
	if a.CurrentPrice.Valid {
		return a.CurrentPrice.Decimal
	}
	return a.BasePrice
}

// ReserveMet reports whether the current price clears the advisory reserve.
// Auctions without a reserve are always met once a bid exists.
func (a Auction) ReserveMet() bool {
	if !a.CurrentPrice.Valid {
		return false
	}
	if !a.ReservePrice.Valid {
		return true
	}
	return a.CurrentPrice.Decimal.GreaterThanOrEqual(a.ReservePrice.Decimal)
}

// Bid represents an accepted bid. Bids are never edited or deleted.
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	Sequence  int64           `json:"sequence"` // store write order, assigned on commit
}

// MaxAmount is the exclusive upper bound of any stored amount; money columns are NUMERIC(18,4)
var MaxAmount = decimal.New(1, 14)

// DefaultCurrency is used when an auction carries no currency code
const DefaultCurrency = "INR"

var minorUnits = map[string]int32{
	"INR": 2,
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"JPY": 0,
	"KRW": 0,
}

// MinorUnits returns the number of fractional digits the currency allows
func MinorUnits(currency string) int32 {
	if currency == "" {
		currency = DefaultCurrency
	}
	if n, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return n
	}
	return 2
}
