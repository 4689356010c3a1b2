package bidding

import (
	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/models"
	"bidding-engine/internal/repository"
	"bidding-engine/internal/validation"
	"bidding-engine/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// maxConflictRetries bounds how often a bid is re-read and re-validated after losing a price race
const maxConflictRetries = 1

// DefaultStoreTimeout bounds every individual store call
const DefaultStoreTimeout = 2 * time.Second

// BiddingService places bids and serves the bid read paths.
// It is the only writer of an auction's current price and holds no locks of its own:
// concurrent bids are arbitrated by the store's compare-and-set.
type BiddingService struct {
	repo         repository.AuctionDB
	now          func() time.Time
	storeTimeout time.Duration
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock replaces the wall clock used for window checks and bid timestamps
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) { s.now = now }
}

// WithStoreTimeout sets the per-call store deadline
func WithStoreTimeout(d time.Duration) Option {
	return func(s *BiddingService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:         repo,
		now:          time.Now,
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceBid validates a bid against the auction's current state and commits it together with
// the new current price. When another bid lands between the read and the write, the auction is
// re-read and the amount re-validated once; a second lost race yields ErrConcurrentModification.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}

	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		auction, err := s.getAuction(ctx, auctionID)
		if err != nil {
			return models.Bid{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
		}

		utils.Debug("validating bid", map[string]any{
			"auction_id":    auctionID,
			"bidder_id":     bidderID,
			"amount":        amount.String(),
			"current_price": priceField(auction.CurrentPrice),
			"attempt":       attempt,
		})

		now := s.now()
		if err := validation.Validate(auction, amount, now); err != nil {
			return models.Bid{}, fmt.Errorf("service: bid rejected for auction %s: %w", auctionID, err)
		}

		bid := models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now.UTC(),
		}

		committed, err := s.commitBid(ctx, bid, auction.CurrentPrice)
		if err == nil {
			utils.Info("bid committed", map[string]any{
				"auction_id": auctionID,
				"bidder_id":  bidderID,
				"bid_id":     committed.BidID,
				"amount":     committed.Amount.String(),
				"sequence":   committed.Sequence,
				"attempt":    attempt,
			})
			return committed, nil
		}
		if !errors.Is(err, biddingerrors.ErrPriceConflict) {
			utils.Error("bid commit failed", map[string]any{
				"auction_id": auctionID,
				"bidder_id":  bidderID,
				"error":      err.Error(),
			})
			return models.Bid{}, fmt.Errorf("service: failed to commit bid for auction %s by bidder %s: %w", auctionID, bidderID, err)
		}

		utils.Warn("lost price race, re-validating", map[string]any{
			"auction_id":     auctionID,
			"bidder_id":      bidderID,
			"expected_price": priceField(auction.CurrentPrice),
			"attempt":        attempt,
		})
	}

	return models.Bid{}, fmt.Errorf("service: %w on auction %s, resubmit with a fresh amount", biddingerrors.ErrConcurrentModification, auctionID)
}

// PreviewMinimumBid returns the smallest amount the auction would accept right now
func (s *BiddingService) PreviewMinimumBid(ctx context.Context, auctionID string) (decimal.Decimal, error) {
	if auctionID == "" {
		return decimal.Decimal{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, err := s.getAuction(ctx, auctionID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
	}
	return validation.MinimumBid(auction), nil
}

// CheckBid runs the validator without committing anything, for "can I bid this" previews
func (s *BiddingService) CheckBid(ctx context.Context, auctionID string, amount decimal.Decimal) error {
	if auctionID == "" {
		return fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, err := s.getAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
	}
	if err := validation.Validate(auction, amount, s.now()); err != nil {
		return fmt.Errorf("service: bid would be rejected for auction %s: %w", auctionID, err)
	}
	return nil
}

// ListBids returns an auction's bid history newest first
func (s *BiddingService) ListBids(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := repository.Call(ctx, s.storeTimeout, func(ctx context.Context) ([]models.Bid, error) {
		return s.repo.ListBids(ctx, auctionID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

func (s *BiddingService) getAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	return repository.Call(ctx, s.storeTimeout, func(ctx context.Context) (models.Auction, error) {
		return s.repo.GetAuction(ctx, auctionID)
	})
}

func (s *BiddingService) commitBid(ctx context.Context, bid models.Bid, expected decimal.NullDecimal) (models.Bid, error) {
	return repository.Call(ctx, s.storeTimeout, func(ctx context.Context) (models.Bid, error) {
		return s.repo.CommitBid(ctx, bid, expected)
	})
}

func priceField(p decimal.NullDecimal) string {
	if !p.Valid {
		return "none"
	}
	return p.Decimal.String()
}
