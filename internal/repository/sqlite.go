package repository

import (
	"bidding-engine/internal/biddingerrors"
	"bidding-engine/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteRepo is a single-file AuctionDB. Amounts are stored as decimal text and always
// parsed back into decimal.Decimal before they are compared.
type SQLiteRepo struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS auctions (
	id            TEXT PRIMARY KEY,
	property_id   TEXT NOT NULL,
	status        TEXT NOT NULL CHECK (status IN ('draft', 'active', 'ended', 'cancelled')),
	base_price    TEXT NOT NULL,
	reserve_price TEXT,
	current_price TEXT,
	bid_increment TEXT NOT NULL,
	currency      TEXT NOT NULL DEFAULT 'INR',
	start_date    TIMESTAMP NOT NULL,
	end_date      TIMESTAMP NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS bids (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	auction_id TEXT NOT NULL REFERENCES auctions(id),
	bidder_id  TEXT NOT NULL,
	amount     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS bids_auction_seq ON bids (auction_id, seq);
`

// NewSQLiteRepo opens (or creates) the database at path and ensures the schema exists
func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection: sqlite serializes writers anyway, and ":memory:" is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

// Close releases the database handle
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// AddAuction inserts an auction, leaving an existing auction with the same id untouched.
// Intended for seeding and tests; auction creation belongs to the listing workflow.
func (r *SQLiteRepo) AddAuction(ctx context.Context, a models.Auction) error {
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
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO auctions
		(id, property_id, status, base_price, reserve_price, current_price, bid_increment, currency, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PropertyID, string(a.Status), a.BasePrice.String(), numericArg(a.ReservePrice), numericArg(a.CurrentPrice),
		a.BidIncrement.String(), a.Currency, a.StartDate.UTC(), a.EndDate.UTC(), a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return sqliteStoreError("add auction "+a.ID, err)
	}
	return nil
}

const sqliteAuctionColumns = `id, property_id, status, base_price, reserve_price, current_price,
	bid_increment, currency, start_date, end_date, created_at, updated_at`

// GetAuction reads price and status in a single row read
func (r *SQLiteRepo) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	return r.getAuction(ctx, r.db, auctionID)
}

type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepo) getAuction(ctx context.Context, q sqliteQuerier, auctionID string) (models.Auction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sqliteAuctionColumns+` FROM auctions WHERE id = ?`, auctionID)
	a, err := scanSQLiteAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return models.Auction{}, sqliteStoreError("get auction "+auctionID, err)
	}
	return a, nil
}

// ListAuctions returns auctions in any of the given statuses, or all auctions when none are given
func (r *SQLiteRepo) ListAuctions(ctx context.Context, statuses []models.AuctionStatus) ([]models.Auction, error) {
	query := `SELECT ` + sqliteAuctionColumns + ` FROM auctions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY start_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqliteStoreError("list auctions", err)
	}
	defer rows.Close()

	auctions := []models.Auction{}
	for rows.Next() {
		a, err := scanSQLiteAuction(rows)
		if err != nil {
			return nil, sqliteStoreError("list auctions", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteStoreError("list auctions", err)
	}
	return auctions, nil
}

// UpdateAuctionStatus moves the auction from one status to another if it is still in from
func (r *SQLiteRepo) UpdateAuctionStatus(ctx context.Context, auctionID string, from, to models.AuctionStatus) (models.Auction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Auction{}, sqliteStoreError("update status of auction "+auctionID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE auctions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), auctionID, string(from))
	if err != nil {
		return models.Auction{}, sqliteStoreError("update status of auction "+auctionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Auction{}, sqliteStoreError("update status of auction "+auctionID, err)
	}

	a, err := r.getAuction(ctx, tx, auctionID)
	if err != nil {
		return models.Auction{}, err
	}
	if affected == 0 {
		return models.Auction{}, fmt.Errorf("update status of auction %s: expected %s, found %s: %w", auctionID, from, a.Status, biddingerrors.ErrStatusConflict)
	}
	if err := tx.Commit(); err != nil {
		return models.Auction{}, sqliteStoreError("update status of auction "+auctionID, err)
	}
	return a, nil
}

// CommitBid runs the price compare-and-set and the bid insert in one transaction.
// The stored price is compared by value, so text written by other tools ("105000.00") still matches.
// The single pooled connection keeps the read and the write of one transaction together.
func (r *SQLiteRepo) CommitBid(ctx context.Context, bid models.Bid, expectedPrice decimal.NullDecimal) (models.Bid, error) {
	op := "commit bid for auction " + bid.AuctionID
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Bid{}, sqliteStoreError(op, err)
	}
	defer tx.Rollback()

	current, err := r.getAuction(ctx, tx, bid.AuctionID)
	if err != nil {
		return models.Bid{}, err
	}
	if current.Status != models.StatusActive || !samePrice(current.CurrentPrice, expectedPrice) {
		return models.Bid{}, fmt.Errorf("%s: %w", op, biddingerrors.ErrPriceConflict)
	}

	res, err := tx.ExecContext(ctx, `UPDATE auctions SET current_price = ?, updated_at = ?
		WHERE id = ? AND status = 'active'`,
		bid.Amount.String(), bid.CreatedAt.UTC(), bid.AuctionID)
	if err != nil {
		return models.Bid{}, sqliteStoreError(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Bid{}, sqliteStoreError(op, err)
	}
	if affected == 0 {
		return models.Bid{}, fmt.Errorf("%s: %w", op, biddingerrors.ErrPriceConflict)
	}

	res, err = tx.ExecContext(ctx, `INSERT INTO bids (id, auction_id, bidder_id, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount.String(), bid.CreatedAt.UTC())
	if err != nil {
		return models.Bid{}, sqliteStoreError(op, err)
	}
	if bid.Sequence, err = res.LastInsertId(); err != nil {
		return models.Bid{}, sqliteStoreError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return models.Bid{}, sqliteStoreError(op, err)
	}
	return bid, nil
}

// ListBids returns an auction's bids newest first, in commit order
func (r *SQLiteRepo) ListBids(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error) {
	if _, err := r.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, auction_id, bidder_id, amount, created_at, seq
		FROM bids WHERE auction_id = ? ORDER BY seq DESC LIMIT ? OFFSET ?`, auctionID, limit, offset)
	if err != nil {
		return nil, sqliteStoreError("list bids for auction "+auctionID, err)
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var (
			bid    models.Bid
			amount string
		)
		if err := rows.Scan(&bid.BidID, &bid.AuctionID, &bid.BidderID, &amount, &bid.CreatedAt, &bid.Sequence); err != nil {
			return nil, sqliteStoreError("list bids for auction "+auctionID, err)
		}
		if bid.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("list bids for auction %s: bad amount %q: %w", auctionID, amount, err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteStoreError("list bids for auction "+auctionID, err)
	}
	return bids, nil
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAuction(row sqliteScanner) (models.Auction, error) {
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

// sqliteStoreError classifies lock contention and I/O failures as the store being unavailable
func sqliteStoreError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrCantOpen, sqlite3.ErrFull:
			return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: sqlite %s: %w", op, sqliteErr.Code, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
