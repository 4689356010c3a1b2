package auction

import (
	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/lifecycle"
	"bidding-engine/internal/models"
	"bidding-engine/internal/repository"
	"bidding-engine/utils"
	"context"
	"errors"
	"fmt"
	"time"
)

// AuctionService serves auction snapshots and applies lifecycle transitions on behalf of the
// listing workflow. It never writes prices.
type AuctionService struct {
	repo         repository.AuctionDB
	now          func() time.Time
	storeTimeout time.Duration
}

// Option configures an AuctionService
type Option func(*AuctionService)

// WithClock replaces the wall clock used by the sweeper
func WithClock(now func() time.Time) Option {
	return func(s *AuctionService) { s.now = now }
}

// WithStoreTimeout sets the per-call store deadline
func WithStoreTimeout(d time.Duration) Option {
	return func(s *AuctionService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.AuctionDB, opts ...Option) *AuctionService {
	s := &AuctionService{
		repo:         repo,
		now:          time.Now,
		storeTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAuctionState returns exactly one consistent snapshot of the auction, or ErrAuctionNotFound
func (s *AuctionService) GetAuctionState(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, err := repository.Call(ctx, s.storeTimeout, func(ctx context.Context) (models.Auction, error) {
		return s.repo.GetAuction(ctx, auctionID)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListAuctions returns auctions in any of the given statuses, or every auction when none are given
func (s *AuctionService) ListAuctions(ctx context.Context, statuses []models.AuctionStatus) ([]models.Auction, error) {
	auctions, err := repository.Call(ctx, s.storeTimeout, func(ctx context.Context) ([]models.Auction, error) {
		return s.repo.ListAuctions(ctx, statuses)
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// TransitionAuction applies a lifecycle event. Illegal edges fail with ErrInvalidTransition and
// a status changed by someone else since the read fails with ErrStatusConflict.
func (s *AuctionService) TransitionAuction(ctx context.Context, auctionID string, event lifecycle.Event) (models.Auction, error) {
	current, err := s.GetAuctionState(ctx, auctionID)
	if err != nil {
		return models.Auction{}, err
	}

	next, err := lifecycle.Transition(current, event)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: auction %s: %w", auctionID, err)
	}

	updated, err := repository.Call(ctx, s.storeTimeout, func(ctx context.Context) (models.Auction, error) {
		return s.repo.UpdateAuctionStatus(ctx, auctionID, current.Status, next.Status)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to %s auction %s: %w", event, auctionID, err)
	}

	utils.Info("auction status changed", map[string]any{
		"auction_id": auctionID,
		"event":      string(event),
		"from":       string(current.Status),
		"to":         string(updated.Status),
	})
	return updated, nil
}

// SweepDue starts draft auctions whose window has opened and ends active auctions whose window
// has closed. It returns how many auctions changed status.
func (s *AuctionService) SweepDue(ctx context.Context) (int, error) {
	candidates, err := s.ListAuctions(ctx, []models.AuctionStatus{models.StatusDraft, models.StatusActive})
	if err != nil {
		return 0, err
	}

	now := s.now()
	changed := 0
	for _, a := range candidates {
		event, due := lifecycle.DueEvent(a, now)
		if !due {
			continue
		}
		if _, err := s.TransitionAuction(ctx, a.ID, event); err != nil {
			if errors.Is(err, biddingerrors.ErrStatusConflict) || errors.Is(err, biddingerrors.ErrInvalidTransition) {
				utils.Warn("sweep skipped auction", map[string]any{"auction_id": a.ID, "error": err.Error()})
				continue
			}
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// RunSweeper calls SweepDue every interval until ctx is done
func (s *AuctionService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.SweepDue(ctx)
			if err != nil {
				utils.Error("auction sweep failed", map[string]any{"error": err.Error()})
				continue
			}
			if changed > 0 {
				utils.Info("auction sweep applied transitions", map[string]any{"changed": changed})
			}
		}
	}
}
