package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-engine/internal/domain"

	"github.com/go-sql-driver/mysql"
)

// MySQL duplicate-entry error code.
const erDupEntry = 1062

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `
        INSERT INTO orders (id, auction_id, buyer_id, seller_id, amount, status,
            order_number, delivery_instructions, delivery_date, delivery_status,
            created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.AuctionID, order.BuyerID, order.SellerID,
		order.Amount, string(order.Status), order.OrderNumber,
		order.DeliveryInstructions, order.DeliveryDate, string(order.DeliveryStatus),
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry {
			if strings.Contains(mysqlErr.Message, "uq_orders_auction") {
				return fmt.Errorf("order for auction %s already exists: %w",
					order.AuctionID, domain.ErrConflict)
			}
			return fmt.Errorf("order number %s is already taken: %w",
				order.OrderNumber, domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *MySQLOrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `
        SELECT id, auction_id, buyer_id, seller_id, amount, status, order_number,
            delivery_instructions, delivery_date, delivery_status, created_at, updated_at
        FROM orders WHERE id = ?
    `

	var order domain.Order
	var status, deliveryStatus string
	var instructions sql.NullString
	var deliveryDate sql.NullTime

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID, &order.AuctionID, &order.BuyerID, &order.SellerID,
		&order.Amount, &status, &order.OrderNumber,
		&instructions, &deliveryDate, &deliveryStatus,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
		}
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	order.DeliveryStatus = domain.DeliveryStatus(deliveryStatus)
	order.DeliveryInstructions = instructions.String
	if deliveryDate.Valid {
		order.DeliveryDate = &deliveryDate.Time
	}
	return &order, nil
}

func (r *MySQLOrderRepository) UpdateDelivery(ctx context.Context, order *domain.Order) error {
	query := `
        UPDATE orders
        SET delivery_instructions = ?, delivery_date = ?, delivery_status = ?, updated_at = ?
        WHERE id = ?
    `
	result, err := r.db.ExecContext(ctx, query,
		order.DeliveryInstructions, order.DeliveryDate, string(order.DeliveryStatus),
		time.Now(), order.ID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrNotFound)
	}
	return nil
}

// NextOrderNumber bumps the per-year sequence row and returns the new value.
// LAST_INSERT_ID makes the bump atomic, so two concurrent callers always
// see distinct numbers; a number reserved for an insert that later fails
// leaves a gap, which is acceptable.
func (r *MySQLOrderRepository) NextOrderNumber(ctx context.Context, year int) (int64, error) {
	query := `
        INSERT INTO order_sequences (year, seq)
        VALUES (?, LAST_INSERT_ID(1))
        ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)
    `
	result, err := r.db.ExecContext(ctx, query, year)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
