package repository

import (
	"bidding-engine/internal/biddingerrors"
	"context"
	"errors"
	"fmt"
	"time"
)

// Call runs one store operation under its own deadline. If that deadline expires the store
// is reported as unavailable; deadlines and cancellations of the caller's ctx pass through.
func Call[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := op(callCtx)
	if err == nil || ctx.Err() != nil || errors.Is(err, biddingerrors.ErrStoreUnavailable) {
		return result, err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return result, fmt.Errorf("%w: %w", biddingerrors.ErrStoreUnavailable, err)
	}
	return result, err
}
