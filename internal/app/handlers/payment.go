package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/checkout-service/internal/gateway"
	"github.com/linemk/checkout-service/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/checkout-service/internal/service"
	"github.com/linemk/checkout-service/internal/storage"
)

// ProcessPaymentRequest представляет входной JSON для оплаты заказа.
type ProcessPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	PaymentToken  string `json:"paymentToken" validate:"required"`
}

// ProcessPaymentHandler обрабатывает запрос POST /api/orders/{orderID}/payment.
// Неуспех шлюза отображается в разные статусы: явный отказ можно повторять сразу,
// неопределённый исход требует сверки на стороне шлюза перед повтором.
func ProcessPaymentHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProcessPaymentHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req ProcessPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		payment, err := paymentService.ProcessPayment(r.Context(), orderID, userID, req.PaymentMethod, req.PaymentToken)
		if err != nil {
			logger.Error("failed to process payment", slog.Any("error", err))
			switch {
			case errors.Is(err, storage.ErrOrderNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			case errors.Is(err, service.ErrOrderAlreadyPaid):
				http.Error(w, "order is already paid", http.StatusConflict)
			case errors.Is(err, gateway.ErrDeclined):
				http.Error(w, err.Error(), http.StatusPaymentRequired)
			case errors.Is(err, gateway.ErrIndeterminate):
				http.Error(w, err.Error(), http.StatusGatewayTimeout)
			default:
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payment); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
