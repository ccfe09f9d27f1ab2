package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/linemk/checkout-service/internal/domain/models"
	"github.com/linemk/checkout-service/internal/gateway"
	"github.com/linemk/checkout-service/internal/storage"
)

var ErrOrderAlreadyPaid = errors.New("order is already paid")

// PaymentService определяет интерфейс проведения оплаты заказа.
type PaymentService interface {
	// ProcessPayment списывает сумму заказа через платёжный шлюз и фиксирует результат.
	// Автоматических повторов нет: политика ретраев принадлежит вызывающему.
	ProcessPayment(ctx context.Context, orderID int64, userID int64, paymentMethod, paymentToken string) (*models.Payment, error)
}

type paymentService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	paymentRepo storage.PaymentStorage
	gw          gateway.Gateway
	currency    string
}

func NewPaymentService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, paymentRepo storage.PaymentStorage, gw gateway.Gateway, currency string) PaymentService {
	return &paymentService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gw:          gw,
		currency:    currency,
	}
}

// ProcessPayment проводит одну попытку оплаты.
// Вызов шлюза идёт строго вне транзакции хранилища: заказ к этому моменту уже
// закоммичен, а запись платежа и смена статуса выполняются отдельной короткой
// транзакцией уже после ответа шлюза.
func (s *paymentService) ProcessPayment(ctx context.Context, orderID int64, userID int64, paymentMethod, paymentToken string) (*models.Payment, error) {
	const op = "service.PaymentService.ProcessPayment"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.Int64("userID", userID))
	logger.Info("processing payment")

	// Чужой заказ неотличим от несуществующего
	order, err := s.orderRepo.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	// Повторное списание по уже оплаченному заказу нарушило бы инвариант
	// "не более одного completed-платежа на заказ"
	if order.Status == models.OrderStatusPaid {
		logger.Warn("order is already paid")
		return nil, fmt.Errorf("%s: %w", op, ErrOrderAlreadyPaid)
	}

	// Сумма заказа в минорных единицах валюты шлюза
	amountMinorUnits := int64(math.Round(order.TotalAmount * 100))

	transactionID, err := s.gw.Charge(ctx, amountMinorUnits, s.currency, paymentToken)
	if err != nil {
		// Исход неизвестен: ничего не записываем, заказ остаётся pending,
		// перед повтором нужно сверить состояние на стороне шлюза
		if errors.Is(err, gateway.ErrIndeterminate) {
			logger.Warn("payment outcome indeterminate", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		// Явный отказ: фиксируем неуспешную попытку, заказ остаётся pending
		if errors.Is(err, gateway.ErrDeclined) {
			logger.Warn("payment declined", slog.Any("error", err))
			if recErr := s.recordPayment(ctx, order, models.PaymentStatusFailed, paymentMethod, ""); recErr != nil {
				logger.Error("failed to record declined payment", slog.Any("error", recErr))
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("charge failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: charge failed: %w", op, err)
	}

	// Успех шлюза: платёж и смена статуса заказа — одна единица долговечности.
	// Если сервис упадёт до коммита, заказ останется pending при успешном списании —
	// этот случай закрывается сверкой по transaction_id, а не повторным списанием.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	paymentID, err := s.paymentRepo.CreatePaymentTx(ctx, tx, order.ID, order.TotalAmount, models.PaymentStatusCompleted, paymentMethod, transactionID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create payment: %w", op, err)
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, order.ID, models.OrderStatusPaid); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("payment completed successfully", slog.String("transactionID", transactionID))
	return &models.Payment{
		ID:            paymentID,
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Status:        models.PaymentStatusCompleted,
		PaymentMethod: paymentMethod,
		TransactionID: transactionID,
	}, nil
}

// recordPayment записывает неуспешную попытку оплаты отдельной короткой транзакцией.
func (s *paymentService) recordPayment(ctx context.Context, order *models.Order, status, paymentMethod, transactionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := s.paymentRepo.CreatePaymentTx(ctx, tx, order.ID, order.TotalAmount, status, paymentMethod, transactionID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return err
	}
	return tx.Commit()
}
