package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	auction "bidding-engine/internal/auctionService"
	bidding "bidding-engine/internal/biddingService"
	model "bidding-engine/internal/models"
	"bidding-engine/internal/repository"
	"bidding-engine/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// storeDrivers are the stores every API test runs against
var storeDrivers = []string{"memory", "sqlite"}

// SetupTestRouterWithAuctions initializes the router on the given store and seeds it with auctions.
func SetupTestRouterWithAuctions(t *testing.T, driver string, auctions ...model.Auction) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var repo repository.AuctionDB
	switch driver {
	case "sqlite":
		sqliteRepo, err := repository.NewSQLiteRepo(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqliteRepo.Close() })
		for _, a := range auctions {
			require.NoError(t, sqliteRepo.AddAuction(context.Background(), a))
		}
		repo = sqliteRepo
	default:
		memRepo := repository.NewMemoryRepo()
		for _, a := range auctions {
			memRepo.AddAuction(a)
		}
		repo = memRepo
	}

	biddingSvc := bidding.NewBiddingService(repo)
	auctionSvc := auction.NewAuctionService(repo)
	return server.SetupRouter(biddingSvc, auctionSvc)
}

// openAuction is active with a window around now
func openAuction(id, base, increment string) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		ID:           id,
		PropertyID:   "prop-" + id,
		Status:       model.StatusActive,
		BasePrice:    decimal.RequireFromString(base),
		BidIncrement: decimal.RequireFromString(increment),
		Currency:     "INR",
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(time.Hour),
	}
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := ExecuteRequest(t, router, method, url, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// bidBody builds a POST /bids payload
func bidBody(auctionID, bidderID, amount string) map[string]any {
	return map[string]any{"auction_id": auctionID, "bidder_id": bidderID, "amount": amount}
}
