package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

const auctionColumns = `id, listing_id, seller_id, starting_price, current_price, reserve_price,
        min_increment_pct, start_time, end_time, status, winner_id, created_at, updated_at`

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.ListingID, auction.SellerID,
		auction.StartingPrice, auction.CurrentPrice, nullDecimal(auction.ReservePrice),
		auction.MinIncrementPct, auction.StartTime, auction.EndTime,
		int(auction.Status), nullString(auction.WinnerID),
		auction.CreatedAt, auction.UpdatedAt)
	return err
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrNotFound)
		}
		return nil, err
	}
	return auction, nil
}

func (r *MySQLAuctionRepository) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}

	return auctions, rows.Err()
}

func (r *MySQLAuctionRepository) UpdateAuctionTerms(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions
        SET starting_price = ?, current_price = ?, reserve_price = ?,
            min_increment_pct = ?, start_time = ?, end_time = ?, updated_at = ?
        WHERE id = ? AND status = ?
    `
	result, err := r.db.ExecContext(ctx, query,
		auction.StartingPrice, auction.StartingPrice, nullDecimal(auction.ReservePrice),
		auction.MinIncrementPct, auction.StartTime, auction.EndTime, time.Now(),
		auction.ID, int(domain.AuctionPending))
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update auction %s: no longer pending: %w", auction.ID, domain.ErrConflict)
	}
	return nil
}

func (r *MySQLAuctionRepository) ActivateAuction(ctx context.Context, auctionID string) (bool, error) {
	query := `UPDATE auctions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query,
		int(domain.AuctionActive), time.Now(), auctionID, int(domain.AuctionPending))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CloseAuction locks the auction row, picks the highest bid and writes the
// ended status, winner and final price as one transaction. The row lock
// serializes against AcceptBid, so a bid committed after the close started
// can never be lost and a bid committed after the close sees the status
// predicate fail.
func (r *MySQLAuctionRepository) CloseAuction(ctx context.Context, auctionID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var lockedID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM auctions WHERE id = ? AND status = ? FOR UPDATE`,
		auctionID, int(domain.AuctionActive)).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	var winnerID sql.NullString
	var finalPrice decimal.NullDecimal
	err = tx.QueryRowContext(ctx, `
        SELECT bidder_id, amount FROM bids
        WHERE auction_id = ?
        ORDER BY amount DESC, created_at ASC
        LIMIT 1
    `, auctionID).Scan(&winnerID.String, &finalPrice.Decimal)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if err == nil {
		winnerID.Valid = true
		finalPrice.Valid = true
	}

	// With no bids the current price stays at the starting price and no
	// winner is recorded.
	_, err = tx.ExecContext(ctx, `
        UPDATE auctions
        SET status = ?, winner_id = ?, current_price = COALESCE(?, current_price), updated_at = ?
        WHERE id = ?
    `, int(domain.AuctionEnded), winnerID, finalPrice, time.Now(), auctionID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MySQLAuctionRepository) CancelAuction(ctx context.Context, auctionID string) (bool, error) {
	query := `
        UPDATE auctions a SET a.status = ?, a.updated_at = ?
        WHERE a.id = ?
          AND (a.status = ?
               OR (a.status = ? AND NOT EXISTS (SELECT 1 FROM bids b WHERE b.auction_id = a.id)))
    `
	result, err := r.db.ExecContext(ctx, query,
		int(domain.AuctionCancelled), time.Now(), auctionID,
		int(domain.AuctionPending), int(domain.AuctionActive))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status int
	var reserve decimal.NullDecimal
	var winner sql.NullString

	err := row.Scan(
		&auction.ID, &auction.ListingID, &auction.SellerID,
		&auction.StartingPrice, &auction.CurrentPrice, &reserve,
		&auction.MinIncrementPct, &auction.StartTime, &auction.EndTime,
		&status, &winner, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	if reserve.Valid {
		auction.ReservePrice = &reserve.Decimal
	}
	if winner.Valid {
		auction.WinnerID = &winner.String
	}
	return &auction, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
