package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionDB is the auction store and bid ledger seen by the bidding engine.
//
// CommitBid is the only way current_price changes: it sets the auction's price to bid.Amount
// and appends the bid as one unit, but only if the stored price still equals expectedPrice
// (null equals null) and the auction is still active. Otherwise nothing is written and
// ErrPriceConflict is returned.
type AuctionDB interface {
	GetAuction(ctx context.Context, auctionID string) (models.Auction, error)
	ListAuctions(ctx context.Context, statuses []models.AuctionStatus) ([]models.Auction, error)
	UpdateAuctionStatus(ctx context.Context, auctionID string, from, to models.AuctionStatus) (models.Auction, error)
	CommitBid(ctx context.Context, bid models.Bid, expectedPrice decimal.NullDecimal) (models.Bid, error)
	ListBids(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Each auction carries its own lock, so commits on unrelated auctions never wait on each other.
type MemoryRepo struct {
	mu      sync.RWMutex // guards the entries map, not the auctions in it
	entries map[string]*auctionEntry
	seq     atomic.Int64
}

type auctionEntry struct {
	mu      sync.RWMutex
	auction models.Auction
	bids    []models.Bid // write order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		entries: make(map[string]*auctionEntry),
	}
}

func (r *MemoryRepo) entry(auctionID string) (*auctionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[auctionID]
	return e, ok
}

// GetAuction returns one consistent snapshot of the auction
func (r *MemoryRepo) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return models.Auction{}, err
	}
	e, ok := r.entry(auctionID)
	if !ok {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.auction, nil
}

// ListAuctions returns auctions in any of the given statuses, or all auctions when none are given
func (r *MemoryRepo) ListAuctions(ctx context.Context, statuses []models.AuctionStatus) ([]models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entries := make([]*auctionEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	wanted := make(map[models.AuctionStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	auctions := make([]models.Auction, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		a := e.auction
		e.mu.RUnlock()
		if len(wanted) == 0 || wanted[a.Status] {
			auctions = append(auctions, a)
		}
	}
	sort.Slice(auctions, func(i, j int) bool {
		if !auctions[i].StartDate.Equal(auctions[j].StartDate) {
			return auctions[i].StartDate.Before(auctions[j].StartDate)
		}
		return auctions[i].ID < auctions[j].ID
	})
	return auctions, nil
}

// UpdateAuctionStatus moves the auction from one status to another if it is still in from
func (r *MemoryRepo) UpdateAuctionStatus(ctx context.Context, auctionID string, from, to models.AuctionStatus) (models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return models.Auction{}, err
	}
	e, ok := r.entry(auctionID)
	if !ok {
		return models.Auction{}, fmt.Errorf("update status of auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.auction.Status != from {
		return models.Auction{}, fmt.Errorf("update status of auction %s: expected %s, found %s: %w", auctionID, from, e.auction.Status, biddingerrors.ErrStatusConflict)
	}
	e.auction.Status = to
	e.auction.UpdatedAt = time.Now().UTC()
	return e.auction, nil
}

// CommitBid compares and sets the current price and appends the bid in one critical section
// on the auction's own lock
func (r *MemoryRepo) CommitBid(ctx context.Context, bid models.Bid, expectedPrice decimal.NullDecimal) (models.Bid, error) {
	if err := ctx.Err(); err != nil {
		return models.Bid{}, err
	}
	e, ok := r.entry(bid.AuctionID)
	if !ok {
		return models.Bid{}, fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.auction.Status != models.StatusActive || !samePrice(e.auction.CurrentPrice, expectedPrice) {
		return models.Bid{}, fmt.Errorf("commit bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrPriceConflict)
	}

	bid.Sequence = r.seq.Add(1)
	e.auction.CurrentPrice = decimal.NewNullDecimal(bid.Amount)
	e.auction.UpdatedAt = bid.CreatedAt
	e.bids = append(e.bids, bid)

	return bid, nil
}

// ListBids returns an auction's bids newest first
func (r *MemoryRepo) ListBids(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := r.entry(auctionID)
	if !ok {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	ledger := e.bids
	start, end := pageBounds(len(ledger), limit, offset)
	bids := make([]models.Bid, 0, end-start)
	for i := len(ledger) - 1 - start; i >= len(ledger)-end; i-- {
		bids = append(bids, ledger[i])
	}
	return bids, nil
}

// AddAuction adds an auction to the repository, replacing one with the same id.
// This method is intended for seeding and tests only.
func (r *MemoryRepo) AddAuction(auction models.Auction) {
	if auction.Currency == "" {
		auction.Currency = models.DefaultCurrency
	}
	if auction.CreatedAt.IsZero() {
		auction.CreatedAt = time.Now().UTC()
	}
	if auction.UpdatedAt.IsZero() {
		auction.UpdatedAt = auction.CreatedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[auction.ID]; ok {
		e.mu.Lock()
		e.auction = auction
		e.mu.Unlock()
		return
	}
	r.entries[auction.ID] = &auctionEntry{auction: auction}
}

func samePrice(stored, expected decimal.NullDecimal) bool {
	if stored.Valid != expected.Valid {
		return false
	}
	return !stored.Valid || stored.Decimal.Equal(expected.Decimal)
}

// pageBounds clamps a limit/offset window to n items; limit <= 0 means no limit
func pageBounds(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
