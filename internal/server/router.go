package server

import (
	handler "bidding-engine/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface, auctionService handler.AuctionServiceInterface) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestIDMiddleware)     // correlate log lines per request
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(biddingService)
	auctionHandler := handler.NewAuctionHandler(auctionService)

	bids := router.Group("/bids")
	{
		bids.POST("", biddingHandler.RecordBidHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.POST("/:auction_id/transitions", auctionHandler.TransitionAuctionHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsByAuctionHandler)
		auctions.GET("/:auction_id/minimum-bid", biddingHandler.GetMinimumBidHandler)
		auctions.GET("/:auction_id/bid-check", biddingHandler.CheckBidHandler)
	}

	return router
}
