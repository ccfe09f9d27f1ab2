package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/checkout-service/internal/domain/models"
	"github.com/linemk/checkout-service/internal/storage"
)

var ErrEmptyCart = errors.New("cart is empty")

// OrderService определяет интерфейс координатора заказов.
type OrderService interface {
	// PlaceOrder атомарно превращает корзину пользователя в заказ:
	// снимок позиций, подсчёт суммы, очистка корзины — всё в одной транзакции.
	PlaceOrder(ctx context.Context, userID int64, shippingAddress json.RawMessage) (*models.Order, error)
	// ListOrders возвращает заказы пользователя с позициями, самые свежие первыми.
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	db        *sql.DB
	cartRepo  storage.CartStorage
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:       log,
		db:        db,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
	}
}

// PlaceOrder оформляет заказ по содержимому корзины.
// Если что-то идет не так, транзакция откатывается: ни частичного заказа,
// ни частично очищенной корзины. Уровня изоляции read committed достаточно —
// сумма заказа всегда согласована с тем набором позиций, который попал в снимок.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64, shippingAddress json.RawMessage) (*models.Order, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting order placement transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Загружаем позиции корзины через транзакцию
	items, err := s.cartRepo.GetItemsByUserIDTx(ctx, tx, userID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to load cart items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load cart items: %w", op, err)
	}

	if len(items) == 0 {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("cart is empty")
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	// Единственный авторитетный источник суммы — загруженные позиции,
	// от клиента сумма не принимается
	var totalAmount float64
	for _, item := range items {
		totalAmount += item.UnitPrice * float64(item.Quantity)
	}

	// Создаем заказ со статусом pending
	order, err := s.orderRepo.CreateOrderTx(ctx, tx, userID, totalAmount, shippingAddress)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	// Копируем позиции корзины в позиции заказа (снимок цены на момент оформления)
	orderItems := make([]*models.OrderItem, 0, len(items))
	for _, item := range items {
		itemID, err := s.orderRepo.CreateOrderItemTx(ctx, tx, order.ID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		orderItems = append(orderItems, &models.OrderItem{
			ID:        itemID,
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		})
	}

	// Очищаем корзину в той же транзакции
	if err := s.cartRepo.ClearCartTx(ctx, tx, userID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	// Коммит транзакции
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order placed successfully", slog.Int64("orderID", order.ID), slog.Float64("totalAmount", totalAmount))
	order.Items = orderItems
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get orders: %w", op, err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}
