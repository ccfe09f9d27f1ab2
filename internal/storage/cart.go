package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/checkout-service/internal/domain/models"
)

// CartStorage описывает методы для работы с корзиной и её позициями.
type CartStorage interface {
	// GetOrCreateCart возвращает активную корзину пользователя, создавая её при первом обращении.
	GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	// AddItem добавляет новую позицию в корзину. Позиции с одинаковым товаром не сливаются.
	AddItem(ctx context.Context, cartID int64, productID int64, quantity int, unitPrice float64) (*models.CartItem, error)
	// RemoveItem удаляет позицию, если она принадлежит корзине пользователя.
	// Удаление несуществующей или чужой позиции — успешный no-op.
	RemoveItem(ctx context.Context, userID int64, itemID int64) error
	// GetItemsByUserID возвращает позиции корзины пользователя (пустой список, если корзины нет).
	GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error)
	// GetItemsByUserIDTx читает позиции корзины внутри транзакции оформления заказа.
	GetItemsByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error)
	// ClearCartTx удаляет все позиции корзины пользователя внутри транзакции оформления заказа.
	ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

// cartRepository — конкретная реализация CartStorage.
type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт новый репозиторий корзин.
func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}
	// ON CONFLICT DO UPDATE нужен, чтобы RETURNING сработал и для уже существующей корзины
	query := `INSERT INTO carts (user_id, created_at) VALUES ($1, NOW())
	          ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	          RETURNING id, user_id, created_at`
	row := r.db.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&cart.ID, &cart.UserID, &cart.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return cart, nil
}

func (r *cartRepository) AddItem(ctx context.Context, cartID int64, productID int64, quantity int, unitPrice float64) (*models.CartItem, error) {
	item := &models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	query := `INSERT INTO cart_items (cart_id, product_id, quantity, unit_price, created_at)
	          VALUES ($1, $2, $3, $4, NOW()) RETURNING id, created_at`
	row := r.db.QueryRowContext(ctx, query, cartID, productID, quantity, unitPrice)
	if err := row.Scan(&item.ID, &item.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID int64, itemID int64) error {
	// проверка принадлежности через JOIN с carts; 0 затронутых строк — не ошибка
	query := `DELETE FROM cart_items ci USING carts c
	          WHERE ci.id = $1 AND ci.cart_id = c.id AND c.user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, itemID, userID); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, cartItemsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	return scanCartItems(rows)
}

func (r *cartRepository) GetItemsByUserIDTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	rows, err := tx.QueryContext(ctx, cartItemsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	return scanCartItems(rows)
}

func (r *cartRepository) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	query := `DELETE FROM cart_items ci USING carts c
	          WHERE ci.cart_id = c.id AND c.user_id = $1`
	if _, err := tx.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

const cartItemsQuery = `
	SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.unit_price, ci.created_at
	FROM cart_items ci
	JOIN carts c ON ci.cart_id = c.id
	WHERE c.user_id = $1
	ORDER BY ci.created_at, ci.id`

func scanCartItems(rows *sql.Rows) ([]*models.CartItem, error) {
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{}
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
