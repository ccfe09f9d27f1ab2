package models

import "time"

// Cart представляет активную корзину пользователя (одна на пользователя, создаётся лениво)
type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem представляет позицию в корзине.
// Цена фиксируется в момент добавления; позиции с одинаковым товаром не сливаются.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
}
