package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/checkout-service/internal/domain/models"
)

// PaymentStorage описывает методы для работы с попытками оплаты.
type PaymentStorage interface {
	// CreatePaymentTx записывает попытку оплаты внутри транзакции и возвращает её id.
	CreatePaymentTx(ctx context.Context, tx *sql.Tx, orderID int64, amount float64, status, paymentMethod, transactionID string) (int64, error)
	// GetPaymentsByOrderID возвращает все попытки оплаты заказа, самые свежие первыми.
	GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]*models.Payment, error)
}

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт новый репозиторий платежей.
func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreatePaymentTx(ctx context.Context, tx *sql.Tx, orderID int64, amount float64, status, paymentMethod, transactionID string) (int64, error) {
	var id int64
	query := `INSERT INTO payments (order_id, amount, status, payment_method, transaction_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`
	err := tx.QueryRowContext(ctx, query, orderID, amount, status, paymentMethod, transactionID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}
	return id, nil
}

func (r *paymentRepository) GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	query := `SELECT id, order_id, amount, status, payment_method, transaction_id, created_at
	          FROM payments WHERE order_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment := &models.Payment{}
		if err := rows.Scan(&payment.ID, &payment.OrderID, &payment.Amount, &payment.Status, &payment.PaymentMethod, &payment.TransactionID, &payment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}
