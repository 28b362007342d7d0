package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/domain"

	"github.com/shopspring/decimal"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

// AcceptBid applies the acceptance step as one transaction anchored on an
// optimistic conditional update of the auction's price: the UPDATE only
// matches while the auction is still active and its current_price equals the
// price the caller validated against. Zero rows affected means another bid
// won the race (or the auction left the active state) and the caller gets
// ErrConflict; nothing is partially applied.
func (r *MySQLBidRepository) AcceptBid(ctx context.Context, bid *domain.Bid, priceAtValidation decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
        UPDATE auctions SET current_price = ?, updated_at = ?
        WHERE id = ? AND status = ? AND current_price = ?
    `, bid.Amount, time.Now(), bid.AuctionID, int(domain.AuctionActive), priceAtValidation)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("accept bid on auction %s: price moved or auction closed: %w",
			bid.AuctionID, domain.ErrConflict)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bids SET is_winning = 0 WHERE auction_id = ? AND is_winning = 1`,
		bid.AuctionID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bids (id, auction_id, bidder_id, amount, is_winning, created_at)
        VALUES (?, ?, ?, ?, 1, ?)
    `, bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *MySQLBidRepository) ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, is_winning, created_at
        FROM bids
        WHERE auction_id = ?
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID,
			&bid.Amount, &bid.IsWinning, &bid.CreatedAt)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}

	return bids, rows.Err()
}

func (r *MySQLBidRepository) GetWinningBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, is_winning, created_at
        FROM bids
        WHERE auction_id = ? AND is_winning = 1
    `

	var bid domain.Bid
	err := r.db.QueryRowContext(ctx, query, auctionID).Scan(
		&bid.ID, &bid.AuctionID, &bid.BidderID,
		&bid.Amount, &bid.IsWinning, &bid.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("winning bid for auction %s: %w", auctionID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &bid, nil
}

func (r *MySQLBidRepository) CountBids(ctx context.Context, auctionID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE auction_id = ?`, auctionID).Scan(&count)
	return count, err
}
