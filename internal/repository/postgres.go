package repository

import (
	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresRepo is the durable AuctionDB backed by PostgreSQL.
// Money columns are NUMERIC and cross the wire as text so no precision is lost.
type PostgresRepo struct {
	DB *pgxpool.Pool
}

// NewPostgresRepo creates a new PostgresRepo
func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// AddAuction inserts an auction, leaving an existing auction with the same id untouched.
// Intended for seeding and tests; auction creation belongs to the listing workflow.
func (r *PostgresRepo) AddAuction(ctx context.Context, a models.Auction) error {
	if a.Currency == "" {
		a.Currency = models.DefaultCurrency
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	_, err := r.DB.Exec(ctx, `INSERT INTO auctions
		(id, property_id, status, base_price, reserve_price, current_price, bid_increment, currency, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, a.PropertyID, string(a.Status), a.BasePrice.String(), numericArg(a.ReservePrice), numericArg(a.CurrentPrice),
		a.BidIncrement.String(), a.Currency, a.StartDate.UTC(), a.EndDate.UTC(), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return pgStoreError("add auction "+a.ID, err)
	}
	return nil
}

const pgAuctionColumns = `id, property_id, status, base_price::text, reserve_price::text, current_price::text,
	bid_increment::text, currency, start_date, end_date, created_at, updated_at`

// GetAuction reads price and status in a single row read
func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	query := `SELECT ` + pgAuctionColumns + ` FROM auctions WHERE id = $1`
	a, err := scanAuction(r.DB.QueryRow(ctx, query, auctionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return models.Auction{}, pgStoreError("get auction "+auctionID, err)
	}
	return a, nil
}

// ListAuctions returns auctions in any of the given statuses, or all auctions when none are given
func (r *PostgresRepo) ListAuctions(ctx context.Context, statuses []models.AuctionStatus) ([]models.Auction, error) {
	query := `SELECT ` + pgAuctionColumns + ` FROM auctions`
	var args []interface{}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY start_date, id`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, pgStoreError("list auctions", err)
	}
	defer rows.Close()

	auctions := []models.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, pgStoreError("list auctions", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, pgStoreError("list auctions", err)
	}
	return auctions, nil
}

// UpdateAuctionStatus moves the auction from one status to another if it is still in from
func (r *PostgresRepo) UpdateAuctionStatus(ctx context.Context, auctionID string, from, to models.AuctionStatus) (models.Auction, error) {
	query := `UPDATE auctions SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + pgAuctionColumns
	a, err := scanAuction(r.DB.QueryRow(ctx, query, string(to), time.Now().UTC(), auctionID, string(from)))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Auction{}, pgStoreError("update status of auction "+auctionID, err)
	}

	if _, getErr := r.GetAuction(ctx, auctionID); getErr != nil {
		return models.Auction{}, getErr
	}
	return models.Auction{}, fmt.Errorf("update status of auction %s: %w", auctionID, biddingerrors.ErrStatusConflict)
}

// CommitBid runs the price compare-and-set and the bid insert in one transaction.
// Under READ COMMITTED a concurrent writer that got there first makes the UPDATE match zero rows.
func (r *PostgresRepo) CommitBid(ctx context.Context, bid models.Bid, expectedPrice decimal.NullDecimal) (models.Bid, error) {
	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE auctions SET current_price = $1::numeric, updated_at = $2
			WHERE id = $3 AND status = 'active' AND current_price IS NOT DISTINCT FROM $4::numeric`,
			bid.Amount.String(), bid.CreatedAt, bid.AuctionID, numericArg(expectedPrice))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)`, bid.AuctionID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return biddingerrors.ErrAuctionNotFound
			}
			return biddingerrors.ErrPriceConflict
		}

		return tx.QueryRow(ctx, `INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
			VALUES ($1, $2, $3, $4::numeric, $5) RETURNING seq`,
			bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount.String(), bid.CreatedAt).Scan(&bid.Sequence)
	})
	if err != nil {
		return models.Bid{}, pgStoreError("commit bid for auction "+bid.AuctionID, err)
	}
	return bid, nil
}

// ListBids returns an auction's bids newest first, in commit order
func (r *PostgresRepo) ListBids(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error) {
	if _, err := r.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}

	query := `SELECT id, auction_id, bidder_id, amount::text, created_at, seq
		FROM bids
		WHERE auction_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := r.DB.Query(ctx, query, auctionID, lim, offset)
	if err != nil {
		return nil, pgStoreError("list bids for auction "+auctionID, err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var (
			bid    models.Bid
			amount string
		)
		if err := rows.Scan(&bid.BidID, &bid.AuctionID, &bid.BidderID, &amount, &bid.CreatedAt, &bid.Sequence); err != nil {
			return nil, pgStoreError("list bids for auction "+auctionID, err)
		}
		if bid.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("list bids for auction %s: bad amount %q: %w", auctionID, amount, err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, pgStoreError("list bids for auction "+auctionID, err)
	}
	return bids, nil
}

func scanAuction(row pgx.Row) (models.Auction, error) {
	var (
		a                       models.Auction
		status, base, increment string
		reserve, current        *string
	)
	if err := row.Scan(&a.ID, &a.PropertyID, &status, &base, &reserve, &current, &increment,
		&a.Currency, &a.StartDate, &a.EndDate, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Auction{}, err
	}
	return decodeAuction(a, status, base, increment, reserve, current)
}

// decodeAuction fills the typed fields of a row read as text. Shared by the SQL stores.
func decodeAuction(a models.Auction, status, base, increment string, reserve, current *string) (models.Auction, error) {
	var err error
	if a.Status, err = models.ParseStatus(status); err != nil {
		return models.Auction{}, fmt.Errorf("auction %s: %w", a.ID, err)
	}
	if a.BasePrice, err = decimal.NewFromString(base); err != nil {
		return models.Auction{}, fmt.Errorf("auction %s: bad base price: %w", a.ID, err)
	}
	if a.BidIncrement, err = decimal.NewFromString(increment); err != nil {
		return models.Auction{}, fmt.Errorf("auction %s: bad bid increment: %w", a.ID, err)
	}
	if a.ReservePrice, err = nullDecimal(reserve); err != nil {
		return models.Auction{}, fmt.Errorf("auction %s: bad reserve price: %w", a.ID, err)
	}
	if a.CurrentPrice, err = nullDecimal(current); err != nil {
		return models.Auction{}, fmt.Errorf("auction %s: bad current price: %w", a.ID, err)
	}
	return a, nil
}

func nullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// numericArg renders a nullable amount as a text parameter, nil for SQL NULL
func numericArg(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// pgStoreError keeps domain and server-side errors as they are and classifies everything
// else (dial failures, timeouts, closed pools) as the store being unavailable
func pgStoreError(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound),
		errors.Is(err, biddingerrors.ErrPriceConflict),
		errors.Is(err, biddingerrors.ErrStatusConflict),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &pgErr):
		return fmt.Errorf("%s: postgres %s: %w", op, pgErr.Code, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrStoreUnavailable, err)
	}
}
