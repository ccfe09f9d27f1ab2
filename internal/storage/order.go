package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linemk/checkout-service/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет новый заказ внутри транзакции оформления и возвращает его
	// с присвоенным id и временными метками базы.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, totalAmount float64, shippingAddress json.RawMessage) (*models.Order, error)
	// CreateOrderItemTx вставляет позицию заказа внутри транзакции оформления.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, orderID int64, productID int64, quantity int, price float64) (int64, error)
	// GetOrderByID возвращает заказ пользователя; чужой заказ неотличим от несуществующего.
	GetOrderByID(ctx context.Context, orderID int64, userID int64) (*models.Order, error)
	// GetOrdersByUserID возвращает заказы пользователя с позициями, самые свежие первыми.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// UpdateOrderStatusTx переводит заказ в новый статус внутри транзакции.
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, totalAmount float64, shippingAddress json.RawMessage) (*models.Order, error) {
	order := &models.Order{
		UserID:          userID,
		TotalAmount:     totalAmount,
		Status:          models.OrderStatusPending,
		ShippingAddress: shippingAddress,
	}
	query := `INSERT INTO orders (user_id, total_amount, status, shipping_address, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query, userID, totalAmount, models.OrderStatusPending, shippingAddress).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, orderID int64, productID int64, quantity int, price float64) (int64, error) {
	var id int64
	query := `INSERT INTO order_items (order_id, product_id, quantity, price)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	err := tx.QueryRowContext(ctx, query, orderID, productID, quantity, price).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order item: %w", err)
	}
	return id, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID int64, userID int64) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT id, user_id, total_amount, status, shipping_address, created_at, updated_at
	          FROM orders WHERE id = $1 AND user_id = $2`
	row := r.db.QueryRowContext(ctx, query, orderID, userID)
	if err := row.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.Status, &order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	items, err := r.getOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `SELECT id, user_id, total_amount, status, shipping_address, created_at, updated_at
	          FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.Status, &order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	for _, order := range orders {
		items, err := r.getOrderItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status string) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) getOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	query := `SELECT id, order_id, product_id, quantity, price FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}
	return items, nil
}
