package handler

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_handler.go -package=handler

import (
	"context"
	"fmt"
	"net/http"

	model "bidding-engine/internal/models"
	"bidding-engine/services/bidding/helpers"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error)
	PreviewMinimumBid(ctx context.Context, auctionID string) (decimal.Decimal, error)
	CheckBid(ctx context.Context, auctionID string, amount decimal.Decimal) error
	ListBids(ctx context.Context, auctionID string, limit, offset int) ([]model.Bid, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// RecordBidHandler handles POST /bids
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), req.AuctionID, req.BidderID, *req.Amount)
	if err != nil {
		status, _ := helpers.RespondError(c, err)
		fields := map[string]any{
			"handler":    "RecordBidHandler",
			"auction_id": req.AuctionID,
			"bidder_id":  req.BidderID,
			"amount":     req.Amount.String(),
			"error":      err.Error(),
		}
		// rejected bids are normal business outcomes
		if status >= http.StatusInternalServerError {
			utils.Error("RecordBidHandler: failed to record bid", fields)
		} else {
			utils.Info("RecordBidHandler: bid rejected", fields)
		}
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount.String(),
	})
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	limit, offset, err := helpers.ParseLimitOffset(c.Query("limit"), c.Query("offset"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "invalid pagination parameters")
		return
	}

	bids, err := h.service.ListBids(c.Request.Context(), auctionID, limit, offset)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetBidsByAuctionHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.NewBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
		"limit":      limit,
		"offset":     offset,
	})
}

// GetMinimumBidHandler handles GET /auctions/:auction_id/minimum-bid
func (h *BiddingHandler) GetMinimumBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	minBid, err := h.service.PreviewMinimumBid(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetMinimumBidHandler: error computing minimum bid", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.MinimumBidResponse{AuctionID: auctionID, MinimumBid: minBid}, "minimum bid retrieved successfully")
}

// CheckBidHandler handles GET /auctions/:auction_id/bid-check?amount=
func (h *BiddingHandler) CheckBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("invalid amount: %w", err), "invalid amount parameter")
		return
	}

	if err := h.service.CheckBid(c.Request.Context(), auctionID, amount); err != nil {
		helpers.RespondError(c, err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.BidCheckResponse{AuctionID: auctionID, Amount: amount, Accepted: true}, "bid would be accepted")
}
