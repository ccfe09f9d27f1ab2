package models

import (
	"encoding/json"
	"time"
)

// Статусы заказа. pending — единственный начальный статус,
// после успешной оплаты заказ переходит в paid.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// Order представляет заказ — неизменяемый снимок корзины на момент оформления.
// После создания меняются только status и updated_at.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	TotalAmount     float64         `json:"total_amount"`
	Status          string          `json:"status"`
	ShippingAddress json.RawMessage `json:"shipping_address"` // структура адреса непрозрачна для ядра
	Items           []*OrderItem    `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem представляет позицию заказа — копию позиции корзины на момент оформления.
// Цена копируется, а не перечитывается из каталога.
type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
