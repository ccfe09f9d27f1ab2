package models

import "time"

// Статусы платежа. Для одного заказа может накопиться несколько записей
// по повторным попыткам, но не более одной со статусом completed.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment представляет одну попытку оплаты заказа.
type Payment struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"order_id"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID string    `json:"transaction_id,omitempty"` // идентификатор транзакции на стороне шлюза
	CreatedAt     time.Time `json:"created_at"`
}
