package bidding

import (
	"bidding-engine/internal/biddingerrors"
	model "bidding-engine/internal/models"
	"bidding-engine/internal/repository"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	inWindow    = windowStart.Add(2 * time.Hour)
)

func fixedClock() time.Time { return inWindow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func auctionAt(current string, status model.AuctionStatus) model.Auction {
	a := model.Auction{
		ID:           "auc-1",
		PropertyID:   "prop-1",
		Status:       status,
		BasePrice:    dec("100000"),
		BidIncrement: dec("5000"),
		Currency:     "INR",
		StartDate:    windowStart,
		EndDate:      windowStart.Add(24 * time.Hour),
	}
	if current != "" {
		a.CurrentPrice = decimal.NewNullDecimal(dec(current))
	}
	return a
}

// expectedPrice matches the compare-and-set argument by value; "" means no current price
type expectedPrice string

func (e expectedPrice) Matches(x any) bool {
	p, ok := x.(decimal.NullDecimal)
	if !ok {
		return false
	}
	if e == "" {
		return !p.Valid
	}
	return p.Valid && p.Decimal.Equal(dec(string(e)))
}

func (e expectedPrice) String() string {
	if e == "" {
		return "is a null price"
	}
	return "is price " + string(e)
}

// bidWith matches a bid about to be committed
func bidWith(bidderID, amount string) gomock.Matcher {
	return bidMatcher{bidderID: bidderID, amount: dec(amount)}
}

type bidMatcher struct {
	bidderID string
	amount   decimal.Decimal
}

func (m bidMatcher) Matches(x any) bool {
	b, ok := x.(model.Bid)
	if !ok {
		return false
	}
	_, err := uuid.Parse(b.BidID)
	return err == nil && b.AuctionID == "auc-1" && b.BidderID == m.bidderID && b.Amount.Equal(m.amount) && b.CreatedAt.Equal(inWindow)
}

func (m bidMatcher) String() string {
	return fmt.Sprintf("is a bid by %s for %s", m.bidderID, m.amount)
}

// committed echoes the bid back the way a store would, with a sequence assigned
func committed(seq int64) func(ctx context.Context, bid model.Bid, _ decimal.NullDecimal) (model.Bid, error) {
	return func(ctx context.Context, bid model.Bid, _ decimal.NullDecimal) (model.Bid, error) {
		bid.Sequence = seq
		return bid, nil
	}
}

// Tests PlaceBid
func TestBiddingService_PlaceBid(t *testing.T) {
	tests := []struct {
		name          string
		auctionID     string
		bidderID      string
		amount        string
		mockSetup     func(m *repository.MockAuctionDB)
		expectedError error
		expectedMin   string
		validate      func(t *testing.T, bid model.Bid)
	}{
		{
			name:      "first_bid_at_minimum",
			auctionID: "auc-1",
			bidderID:  "bidder-1",
			amount:    "105000",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("", model.StatusActive), nil)
				m.EXPECT().CommitBid(gomock.Any(), bidWith("bidder-1", "105000"), expectedPrice("")).DoAndReturn(committed(1))
			},
			validate: func(t *testing.T, bid model.Bid) {
				require.Equal(t, int64(1), bid.Sequence)
				require.True(t, bid.Amount.Equal(dec("105000")))
			},
		},
		{
			name:      "first_bid_below_minimum",
			auctionID: "auc-1",
			bidderID:  "bidder-1",
			amount:    "104000",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("", model.StatusActive), nil)
			},
			expectedError: biddingerrors.ErrBidTooLow,
			expectedMin:   "105000",
		},
		{
			name:      "raise_over_current_price",
			auctionID: "auc-1",
			bidderID:  "bidder-2",
			amount:    "125000",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("110000", model.StatusActive), nil)
				m.EXPECT().CommitBid(gomock.Any(), bidWith("bidder-2", "125000"), expectedPrice("110000")).DoAndReturn(committed(9))
			},
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			bidderID:      "bidder-1",
			amount:        "105000",
			mockSetup:     func(m *repository.MockAuctionDB) {},
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:          "empty_bidderID",
			auctionID:     "auc-1",
			bidderID:      "",
			amount:        "105000",
			mockSetup:     func(m *repository.MockAuctionDB) {},
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:      "auction_not_found",
			auctionID: "auc-1",
			bidderID:  "bidder-1",
			amount:    "105000",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(model.Auction{}, biddingerrors.ErrAuctionNotFound)
			},
			expectedError: biddingerrors.ErrAuctionNotFound,
		},
		{
			name:      "auction_ended",
			auctionID: "auc-1",
			bidderID:  "bidder-1",
			amount:    "500000",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("110000", model.StatusEnded), nil)
			},
			expectedError: biddingerrors.ErrAuctionNotOpen,
		},
		{
			name:      "too_many_fraction_digits",
			auctionID: "auc-1",
			bidderID:  "bidder-1",
			amount:    "105000.001",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("", model.StatusActive), nil)
			},
			expectedError: biddingerrors.ErrInvalidAmount,
		},
		{
			// the price moved from 105000 to 110000 between read and write
			name:      "lost_race_then_too_low",
			auctionID: "auc-1",
			bidderID:  "bidder-2",
			amount:    "112000",
			mockSetup: func(m *repository.MockAuctionDB) {
				gomock.InOrder(
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("105000", model.StatusActive), nil),
					m.EXPECT().CommitBid(gomock.Any(), bidWith("bidder-2", "112000"), expectedPrice("105000")).Return(model.Bid{}, biddingerrors.ErrPriceConflict),
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("110000", model.StatusActive), nil),
				)
			},
			expectedError: biddingerrors.ErrBidTooLow,
			expectedMin:   "115000",
		},
		{
			name:      "lost_race_then_still_valid",
			auctionID: "auc-1",
			bidderID:  "bidder-2",
			amount:    "130000",
			mockSetup: func(m *repository.MockAuctionDB) {
				gomock.InOrder(
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("105000", model.StatusActive), nil),
					m.EXPECT().CommitBid(gomock.Any(), bidWith("bidder-2", "130000"), expectedPrice("105000")).Return(model.Bid{}, biddingerrors.ErrPriceConflict),
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("110000", model.StatusActive), nil),
					m.EXPECT().CommitBid(gomock.Any(), bidWith("bidder-2", "130000"), expectedPrice("110000")).DoAndReturn(committed(3)),
				)
			},
		},
		{
			name:      "lost_race_to_ending",
			auctionID: "auc-1",
			bidderID:  "bidder-2",
			amount:    "130000",
			mockSetup: func(m *repository.MockAuctionDB) {
				gomock.InOrder(
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("105000", model.StatusActive), nil),
					m.EXPECT().CommitBid(gomock.Any(), gomock.Any(), expectedPrice("105000")).Return(model.Bid{}, biddingerrors.ErrPriceConflict),
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("105000", model.StatusEnded), nil),
				)
			},
			expectedError: biddingerrors.ErrAuctionNotOpen,
		},
		{
			name:      "lost_race_twice",
			auctionID: "auc-1",
			bidderID:  "bidder-2",
			amount:    "200000",
			mockSetup: func(m *repository.MockAuctionDB) {
				gomock.InOrder(
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("105000", model.StatusActive), nil),
					m.EXPECT().CommitBid(gomock.Any(), gomock.Any(), expectedPrice("105000")).Return(model.Bid{}, biddingerrors.ErrPriceConflict),
					m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("110000", model.StatusActive), nil),
					m.EXPECT().CommitBid(gomock.Any(), gomock.Any(), expectedPrice("110000")).Return(model.Bid{}, biddingerrors.ErrPriceConflict),
				)
			},
			expectedError: biddingerrors.ErrConcurrentModification,
		},
		{
			name:      "store_unavailable_on_commit",
			auctionID: "auc-1",
			bidderID:  "bidder-1",
			amount:    "105000",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("", model.StatusActive), nil)
				m.EXPECT().CommitBid(gomock.Any(), gomock.Any(), gomock.Any()).Return(model.Bid{}, biddingerrors.ErrStoreUnavailable)
			},
			expectedError: biddingerrors.ErrStoreUnavailable,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			tc.mockSetup(mockRepo)
			service := NewBiddingService(mockRepo, WithClock(fixedClock))

			bid, err := service.PlaceBid(context.Background(), tc.auctionID, tc.bidderID, dec(tc.amount))
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				require.Empty(t, bid.BidID)
				if tc.expectedMin != "" {
					minBid, ok := biddingerrors.MinBid(err)
					require.True(t, ok)
					require.True(t, minBid.Equal(dec(tc.expectedMin)), "min bid %s", minBid)
				}
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.bidderID, bid.BidderID)
			require.True(t, bid.Amount.Equal(dec(tc.amount)))
			if tc.validate != nil {
				tc.validate(t, bid)
			}
		})
	}
}

func TestBiddingService_PlaceBid_StoreTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)
	mockRepo.EXPECT().GetAuction(gomock.Any(), "auc-1").DoAndReturn(func(ctx context.Context, _ string) (model.Auction, error) {
		<-ctx.Done()
		return model.Auction{}, ctx.Err()
	})

	service := NewBiddingService(mockRepo, WithClock(fixedClock), WithStoreTimeout(20*time.Millisecond))
	_, err := service.PlaceBid(context.Background(), "auc-1", "bidder-1", dec("105000"))
	require.ErrorIs(t, err, biddingerrors.ErrStoreUnavailable)
}

func TestBiddingService_PreviewMinimumBid(t *testing.T) {
	tests := []struct {
		name          string
		auctionID     string
		mockSetup     func(m *repository.MockAuctionDB)
		expected      string
		expectedError error
	}{
		{
			name:      "no_bids_uses_base_price",
			auctionID: "auc-1",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("", model.StatusActive), nil)
			},
			expected: "105000",
		},
		{
			name:      "uses_current_price",
			auctionID: "auc-1",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("110000", model.StatusActive), nil)
			},
			expected: "115000",
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			mockSetup:     func(m *repository.MockAuctionDB) {},
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:      "not_found",
			auctionID: "auc-1",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(model.Auction{}, biddingerrors.ErrAuctionNotFound)
			},
			expectedError: biddingerrors.ErrAuctionNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			tc.mockSetup(mockRepo)

			got, err := NewBiddingService(mockRepo, WithClock(fixedClock)).PreviewMinimumBid(context.Background(), tc.auctionID)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Equal(dec(tc.expected)), "got %s", got)
		})
	}
}

func TestBiddingService_CheckBid(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)
	mockRepo.EXPECT().GetAuction(gomock.Any(), "auc-1").Return(auctionAt("110000", model.StatusActive), nil).Times(2)
	// CommitBid is never expected: a check must not write

	service := NewBiddingService(mockRepo, WithClock(fixedClock))
	require.NoError(t, service.CheckBid(context.Background(), "auc-1", dec("115000")))

	err := service.CheckBid(context.Background(), "auc-1", dec("114999.99"))
	require.ErrorIs(t, err, biddingerrors.ErrBidTooLow)
}

func TestBiddingService_ListBids(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name          string
		auctionID     string
		mockSetup     func(m *repository.MockAuctionDB)
		expectedLen   int
		expectedError error
	}{
		{
			name:      "returns_store_page",
			auctionID: "auc-1",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().ListBids(gomock.Any(), "auc-1", 5, 0).Return([]model.Bid{
					{BidID: uuid.NewString(), AuctionID: "auc-1", BidderID: "b2", Amount: dec("110000"), CreatedAt: now, Sequence: 2},
					{BidID: uuid.NewString(), AuctionID: "auc-1", BidderID: "b1", Amount: dec("105000"), CreatedAt: now, Sequence: 1},
				}, nil)
			},
			expectedLen: 2,
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			mockSetup:     func(m *repository.MockAuctionDB) {},
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:      "generic_error",
			auctionID: "auc-1",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().ListBids(gomock.Any(), "auc-1", 5, 0).Return(nil, errors.New("disk on fire"))
			},
			expectedError: errors.New("disk on fire"),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			tc.mockSetup(mockRepo)

			bids, err := NewBiddingService(mockRepo).ListBids(context.Background(), tc.auctionID, 5, 0)
			if tc.expectedError != nil {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.expectedError.Error())
				return
			}
			require.NoError(t, err)
			require.Len(t, bids, tc.expectedLen)
		})
	}
}
