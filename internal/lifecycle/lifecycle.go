// Package lifecycle is the finite state machine over auction statuses.
//
// Legal edges are draft -> active, active -> ended and active -> cancelled.
// Every other requested edge is rejected with biddingerrors.ErrInvalidTransition.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/models"
)

// Event names a requested status change
type Event string

const (
	EventStart  Event = "start"
	EventEnd    Event = "end"
	EventCancel Event = "cancel"
)

var edges = map[models.AuctionStatus]map[Event]models.AuctionStatus{
	models.StatusDraft: {
		EventStart: models.StatusActive,
	},
	models.StatusActive: {
		EventEnd:    models.StatusEnded,
		EventCancel: models.StatusCancelled,
	},
}

// ParseEvent converts a raw event name
func ParseEvent(s string) (Event, error) {
	switch ev := Event(strings.ToLower(strings.TrimSpace(s))); ev {
	case EventStart, EventEnd, EventCancel:
		return ev, nil
	default:
		return "", fmt.Errorf("%w: unknown event %q", biddingerrors.ErrInvalidTransition, s)
	}
}

// CanAcceptBids is true iff the auction is active and now lies within [StartDate, EndDate]
func CanAcceptBids(auction models.Auction, now time.Time) bool {
	if auction.Status != models.StatusActive {
		return false
	}
	return !now.Before(auction.StartDate) && !now.After(auction.EndDate)
}

// Next returns the status the event leads to from the given status
func Next(from models.AuctionStatus, event Event) (models.AuctionStatus, error) {
	to, ok := edges[from][event]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s an auction in status %s", biddingerrors.ErrInvalidTransition, event, from)
	}
	return to, nil
}

// Transition applies event to a copy of the auction. The input is never modified.
func Transition(auction models.Auction, event Event) (models.Auction, error) {
	to, err := Next(auction.Status, event)
	if err != nil {
		return models.Auction{}, err
	}
	auction.Status = to
	return auction, nil
}

// DueEvent returns the event a time-driven workflow should apply at now, if any.
// Draft auctions start once their window opens; active auctions end once it closes.
func DueEvent(auction models.Auction, now time.Time) (Event, bool) {
	switch auction.Status {
	case models.StatusDraft:
		if !now.Before(auction.StartDate) && !now.After(auction.EndDate) {
			return EventStart, true
		}
	case models.StatusActive:
		if now.After(auction.EndDate) {
			return EventEnd, true
		}
	}
	return "", false
}
