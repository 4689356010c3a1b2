package helpers

import (
	"time"

	"bidding-engine/internal/lifecycle"
	"bidding-engine/internal/models"
	"bidding-engine/internal/validation"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string           `json:"auction_id" binding:"required"`
	BidderID  string           `json:"bidder_id" binding:"required"`
	Amount    *decimal.Decimal `json:"amount" binding:"required"`
}

type TransitionRequest struct {
	Event string `json:"event" binding:"required"`
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Sequence  int64           `json:"sequence"`
	CreatedAt string          `json:"created_at"`
}

type AuctionResponse struct {
	ID            string              `json:"id"`
	PropertyID    string              `json:"property_id"`
	Status        string              `json:"status"`
	BasePrice     decimal.Decimal     `json:"base_price"`
	ReservePrice  decimal.NullDecimal `json:"reserve_price"`
	CurrentPrice  decimal.NullDecimal `json:"current_price"`
	BidIncrement  decimal.Decimal     `json:"bid_increment"`
	MinimumBid    decimal.Decimal     `json:"minimum_bid"`
	Currency      string              `json:"currency"`
	ReserveMet    bool                `json:"reserve_met"`
	AcceptingBids bool                `json:"accepting_bids"`
	StartDate     string              `json:"start_date"`
	EndDate       string              `json:"end_date"`
}

type MinimumBidResponse struct {
	AuctionID  string          `json:"auction_id"`
	MinimumBid decimal.Decimal `json:"minimum_bid"`
}

type BidCheckResponse struct {
	AuctionID string          `json:"auction_id"`
	Amount    decimal.Decimal `json:"amount"`
	Accepted  bool            `json:"accepted"`
}

// NewBidResponse converts a committed bid for the wire
func NewBidResponse(bid models.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		Sequence:  bid.Sequence,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewAuctionResponse converts an auction snapshot for the wire, judged at now
func NewAuctionResponse(a models.Auction, now time.Time) AuctionResponse {
	currency := a.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return AuctionResponse{
		ID:            a.ID,
		PropertyID:    a.PropertyID,
		Status:        string(a.Status),
		BasePrice:     a.BasePrice,
		ReservePrice:  a.ReservePrice,
		CurrentPrice:  a.CurrentPrice,
		BidIncrement:  a.BidIncrement,
		MinimumBid:    validation.MinimumBid(a),
		Currency:      currency,
		ReserveMet:    a.ReserveMet(),
		AcceptingBids: lifecycle.CanAcceptBids(a, now),
		StartDate:     a.StartDate.UTC().Format(time.RFC3339),
		EndDate:       a.EndDate.UTC().Format(time.RFC3339),
	}
}
