package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/checkout-service/internal/domain/models"
	"github.com/linemk/checkout-service/internal/storage"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("unit price must be non-negative")
)

// CartService определяет интерфейс для работы с корзиной пользователя.
type CartService interface {
	// AddItem добавляет позицию в корзину, создавая корзину при первом обращении.
	AddItem(ctx context.Context, userID int64, productID int64, quantity int, unitPrice float64) (*models.CartItem, error)
	// RemoveItem удаляет позицию; несуществующая или чужая позиция — успешный no-op.
	RemoveItem(ctx context.Context, userID int64, itemID int64) error
	// GetCart возвращает текущее содержимое корзины без побочных эффектов.
	GetCart(ctx context.Context, userID int64) ([]*models.CartItem, error)
}

type cartService struct {
	log      *slog.Logger
	cartRepo storage.CartStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage) CartService {
	return &cartService{
		log:      log,
		cartRepo: cartRepo,
	}
}

func (s *cartService) AddItem(ctx context.Context, userID int64, productID int64, quantity int, unitPrice float64) (*models.CartItem, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("productID", productID),
		slog.Int("quantity", quantity),
	)

	// валидация до любых записей в хранилище
	if quantity <= 0 {
		logger.Warn("invalid quantity")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}
	if unitPrice < 0 {
		logger.Warn("invalid unit price")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPrice)
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		logger.Error("failed to get or create cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get or create cart: %w", op, err)
	}

	item, err := s.cartRepo.AddItem(ctx, cart.ID, productID, quantity, unitPrice)
	if err != nil {
		logger.Error("failed to add item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to add item: %w", op, err)
	}

	logger.Info("item added to cart", slog.Int64("itemID", item.ID))
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID int64, itemID int64) error {
	const op = "service.CartService.RemoveItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))

	if err := s.cartRepo.RemoveItem(ctx, userID, itemID); err != nil {
		logger.Error("failed to remove item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to remove item: %w", op, err)
	}

	logger.Info("item removed from cart")
	return nil
}

func (s *cartService) GetCart(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	const op = "service.CartService.GetCart"

	items, err := s.cartRepo.GetItemsByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart items", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart items: %w", op, err)
	}
	if items == nil {
		items = []*models.CartItem{}
	}
	return items, nil
}
