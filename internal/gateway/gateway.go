package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrDeclined — шлюз явно отклонил платёж, повторная попытка безопасна.
var ErrDeclined = errors.New("payment declined by gateway")

// ErrIndeterminate — исход платежа неизвестен (таймаут или обрыв соединения
// после отправки запроса); перед повтором нужно сверить состояние на стороне шлюза.
var ErrIndeterminate = errors.New("payment outcome indeterminate")

// Gateway описывает вызов внешнего платёжного процессора.
type Gateway interface {
	// Charge списывает сумму в минорных единицах валюты и возвращает
	// идентификатор транзакции шлюза.
	Charge(ctx context.Context, amountMinorUnits int64, currency, paymentToken string) (string, error)
}

// Client — HTTP-клиент платёжного шлюза с ограниченным таймаутом.
type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиента платёжного шлюза.
func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		log:        log,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PaymentToken string `json:"payment_token"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error,omitempty"`
}

// Charge выполняет запрос на списание. Каждая попытка получает собственный
// Idempotency-Key, чтобы шлюз мог отсечь дубли при ретрансляции на его стороне.
// Клиент сам не повторяет запросы — политика ретраев принадлежит вызывающему.
func (c *Client) Charge(ctx context.Context, amountMinorUnits int64, currency, paymentToken string) (string, error) {
	const op = "gateway.Client.Charge"
	idempotencyKey := uuid.NewString()
	logger := c.log.With(
		slog.String("op", op),
		slog.Int64("amount", amountMinorUnits),
		slog.String("currency", currency),
		slog.String("idempotencyKey", idempotencyKey),
	)

	body, err := json.Marshal(chargeRequest{
		Amount:       amountMinorUnits,
		Currency:     currency,
		PaymentToken: paymentToken,
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal charge request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charge", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	logger.Info("sending charge request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// таймаут после отправки запроса: списание могло пройти, исход неизвестен
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			logger.Warn("charge request timed out", slog.Any("error", err))
			return "", fmt.Errorf("%s: %w: %v", op, ErrIndeterminate, err)
		}
		// соединение не установилось: запрос не был отправлен, списания точно не было
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			logger.Error("gateway unreachable", slog.Any("error", err))
			return "", fmt.Errorf("%s: %w: gateway unreachable: %v", op, ErrDeclined, err)
		}
		// обрыв соединения после отправки (EOF, reset): исход неизвестен
		logger.Warn("connection lost after sending charge request", slog.Any("error", err))
		return "", fmt.Errorf("%s: %w: %v", op, ErrIndeterminate, err)
	}
	defer resp.Body.Close()

	var chargeResp chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&chargeResp); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// ответ об успехе потерян, считаем исход неизвестным
			logger.Warn("failed to decode gateway response", slog.Any("error", err))
			return "", fmt.Errorf("%s: %w: unreadable gateway response: %v", op, ErrIndeterminate, err)
		}
		chargeResp.Error = resp.Status
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("charge declined", slog.Int("status", resp.StatusCode), slog.String("reason", chargeResp.Error))
		return "", fmt.Errorf("%s: %w: %s", op, ErrDeclined, chargeResp.Error)
	}

	if chargeResp.TransactionID == "" {
		logger.Error("gateway returned success without transaction id")
		return "", fmt.Errorf("%s: %w: missing transaction id", op, ErrIndeterminate)
	}

	logger.Info("charge completed", slog.String("transactionID", chargeResp.TransactionID))
	return chargeResp.TransactionID, nil
}
