package handler

//go:generate mockgen -source=auction_handler.go -destination=mock_auction_handler.go -package=handler

import (
	"context"
	"net/http"
	"time"

	"bidding-engine/internal/lifecycle"
	model "bidding-engine/internal/models"
	"bidding-engine/services/bidding/helpers"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	GetAuctionState(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context, statuses []model.AuctionStatus) ([]model.Auction, error)
	TransitionAuction(ctx context.Context, auctionID string, event lifecycle.Event) (model.Auction, error)
}

type AuctionHandler struct {
	service AuctionServiceInterface
	now     func() time.Time
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service, now: time.Now}
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuctionState(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction, h.now()), "auction retrieved successfully")
}

// ListAuctionsHandler handles GET /auctions?status=active,ended
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	statuses, err := helpers.ParseStatuses(c.Query("status"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "invalid status filter")
		return
	}

	auctions, err := h.service.ListAuctions(c.Request.Context(), statuses)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("ListAuctionsHandler: error listing auctions", map[string]any{"error": err.Error()})
		return
	}

	now := h.now()
	resp := make([]helpers.AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, helpers.NewAuctionResponse(a, now))
	}
	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
}

// TransitionAuctionHandler handles POST /auctions/:auction_id/transitions
func (h *AuctionHandler) TransitionAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "TransitionAuctionHandler", err)
		return
	}

	event, err := lifecycle.ParseEvent(req.Event)
	if err != nil {
		helpers.RespondError(c, err)
		return
	}

	auction, err := h.service.TransitionAuction(c.Request.Context(), auctionID, event)
	if err != nil {
		helpers.RespondError(c, err)
		utils.Warn("TransitionAuctionHandler: transition refused", map[string]any{
			"auction_id": auctionID,
			"event":      string(event),
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction, h.now()), "auction status updated")
	helpers.LogSuccess("TransitionAuctionHandler", "auction status updated", map[string]any{
		"auction_id": auctionID,
		"event":      string(event),
		"status":     string(auction.Status),
	})
}
