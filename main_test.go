package main

import (
	"context"
	"testing"
	"time"

	model "bidding-engine/internal/models"
	"bidding-engine/internal/repository"

	"github.com/stretchr/testify/require"
)

// Seeded auctions must agree with their ledgers: no current price without a bid behind it
func TestPrepopulateAuctions_PriceMatchesLedger(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	prepopulateAuctions(memorySeeder{repo: repo}, time.Now().UTC())

	auctions, err := repo.ListAuctions(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, auctions)

	for _, a := range auctions {
		bids, err := repo.ListBids(context.Background(), a.ID, 1, 0)
		require.NoError(t, err)
		if !a.CurrentPrice.Valid {
			require.Empty(t, bids, a.ID)
			continue
		}
		require.Len(t, bids, 1, a.ID)
		require.True(t, bids[0].Amount.Equal(a.CurrentPrice.Decimal), a.ID)
	}

	active, err := repo.ListAuctions(context.Background(), []model.AuctionStatus{model.StatusActive})
	require.NoError(t, err)
	require.NotEmpty(t, active)
}
