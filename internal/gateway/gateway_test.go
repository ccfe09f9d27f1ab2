package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/linemk/checkout-service/internal/gateway"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestCharge_Success(t *testing.T) {
	var gotKey string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/charge", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "txn-123"})
	}))
	defer srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 2*time.Second)

	transactionID, err := client.Charge(context.Background(), 5500, "USD", "tok-abc")
	assert.NoError(t, err)
	assert.Equal(t, "txn-123", transactionID)
	assert.NotEmpty(t, gotKey, "Each charge attempt must carry an idempotency key")
	assert.Equal(t, float64(5500), gotBody["amount"])
	assert.Equal(t, "USD", gotBody["currency"])
	assert.Equal(t, "tok-abc", gotBody["payment_token"])
}

func TestCharge_IdempotencyKeyPerAttempt(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "txn-1"})
	}))
	defer srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 2*time.Second)

	_, err := client.Charge(context.Background(), 100, "USD", "tok")
	assert.NoError(t, err)
	_, err = client.Charge(context.Background(), 100, "USD", "tok")
	assert.NoError(t, err)

	assert.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1], "Each attempt gets its own idempotency key")
}

func TestCharge_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"error": "insufficient funds"})
	}))
	defer srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 2*time.Second)

	transactionID, err := client.Charge(context.Background(), 5500, "USD", "tok-abc")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrDeclined))
	assert.Contains(t, err.Error(), "insufficient funds", "Decline reason must be surfaced")
	assert.Empty(t, transactionID)
}

func TestCharge_Timeout_Indeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// шлюз "завис" — клиент должен отвалиться по собственному таймауту
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "txn-late"})
	}))
	defer srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 50*time.Millisecond)

	transactionID, err := client.Charge(context.Background(), 5500, "USD", "tok-abc")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrIndeterminate), "Timeout must surface as indeterminate, not as a decline")
	assert.False(t, errors.Is(err, gateway.ErrDeclined))
	assert.Empty(t, transactionID)
}

func TestCharge_ContextDeadline_Indeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 2*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Charge(ctx, 5500, "USD", "tok-abc")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrIndeterminate))
}

func TestCharge_GatewayUnreachable_Declined(t *testing.T) {
	// закрытый сервер: запрос не уходит, списания точно не было
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 2*time.Second)

	_, err := client.Charge(context.Background(), 5500, "USD", "tok-abc")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrDeclined))
}

func TestCharge_ConnectionLostAfterSend_Indeterminate(t *testing.T) {
	// сервер читает запрос целиком и обрывает соединение без ответа:
	// списание могло пройти, считать это отказом нельзя
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		conn, _, err := w.(http.Hijacker).Hijack()
		assert.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 2*time.Second)

	transactionID, err := client.Charge(context.Background(), 5500, "USD", "tok-abc")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrIndeterminate), "Connection loss after send must surface as indeterminate")
	assert.False(t, errors.Is(err, gateway.ErrDeclined))
	assert.Empty(t, transactionID)
}

func TestCharge_SuccessWithoutTransactionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	client := gateway.NewClient(testLogger(), srv.URL, 2*time.Second)

	_, err := client.Charge(context.Background(), 5500, "USD", "tok-abc")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrIndeterminate))
}
