package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/models"
	"bidding-engine/utils"

	"github.com/gin-gonic/gin"
)

// Pagination bounds for bid history
const (
	DefaultLimit = 5
	MaxLimit     = 50
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid bid amount"
	case errors.Is(err, biddingerrors.ErrAuctionNotOpen):
		return http.StatusUnprocessableEntity, "auction not open for bidding"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrConcurrentModification):
		return http.StatusConflict, "auction changed concurrently, resubmit with a fresh amount"
	case errors.Is(err, biddingerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid status transition"
	case errors.Is(err, biddingerrors.ErrStatusConflict):
		return http.StatusConflict, "auction status changed concurrently"
	case errors.Is(err, biddingerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "auction store unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RespondError writes the mapped error, attaching the minimum bid or a retry hint when the error carries one
func RespondError(c *gin.Context, err error) (int, string) {
	status, message := MapErrorToHTTP(err)
	wrapped := fmt.Errorf("%s: %w", message, err)

	var data gin.H
	if minBid, ok := biddingerrors.MinBid(err); ok {
		data = gin.H{"min_bid": minBid}
	} else if biddingerrors.IsRetryable(err) {
		data = gin.H{"retryable": true}
	}
	utils.JSONErrorWithData(c, status, wrapped, message, data)
	return status, message
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// ParseLimitOffset validates pagination query values, defaulting limit to 5 and offset to 0
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	limit, offset := DefaultLimit, 0
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > MaxLimit {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be an integer in [1:%d]", MaxLimit)
		}
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	}

	return limit, offset, nil
}

// ParseStatuses parses a comma separated status filter; an empty string means no filter
func ParseStatuses(raw string) ([]models.AuctionStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]models.AuctionStatus, 0, len(parts))
	for _, p := range parts {
		s, err := models.ParseStatus(p)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}
