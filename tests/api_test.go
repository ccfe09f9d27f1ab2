package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

const baseURL = "http://localhost:8080"

// AuthResponse структура ответа при аутентификации
type AuthResponse struct {
	Token string `json:"token"`
}

// AddItemRequest структура запроса на добавление позиции в корзину
type AddItemRequest struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// CartResponse – структура ответа от /api/cart
type CartResponse struct {
	Items []struct {
		ID        int64   `json:"id"`
		ProductID int64   `json:"product_id"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	} `json:"items"`
}

// OrderResponse – структура заказа в ответах API
type OrderResponse struct {
	ID          int64   `json:"id"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

// OrdersResponse – структура ответа от GET /api/orders
type OrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

func authenticateUser(t *testing.T, username, password string) string {
	reqBody := []byte(`{"username": "` + username + `", "password": "` + password + `"}`)
	resp, err := http.Post(baseURL+"/api/auth", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err, "Auth request should not error")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Expected 200 OK for valid auth")

	var authResp AuthResponse
	err = json.NewDecoder(resp.Body).Decode(&authResp)
	assert.NoError(t, err, "Decoding auth response should succeed")
	assert.NotEmpty(t, authResp.Token, "Token should not be empty")
	return authResp.Token
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	return resp
}

// сценарий с успешной аутентификацией пользователя
func TestAuth(t *testing.T) {
	token := authenticateUser(t, "testuser@gmail.com", "testpass123")
	assert.NotEmpty(t, token, "token should be obtained")
}

// сценарий с безуспешной аутентификацией пользователя
func TestAuthInvalid(t *testing.T) {
	reqBody := []byte(`{"username": "", "password": ""}`)
	resp, err := http.Post(baseURL+"/api/auth", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for invalid auth")
}

// сценарий с получением корзины (пользователь не авторизован)
func TestGetCartUnauthorized(t *testing.T) {
	req, err := http.NewRequest("GET", baseURL+"/api/cart", nil)
	assert.NoError(t, err)
	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 unauthorized for missing token")
}

// сценарий добавления позиции в корзину и её чтения
func TestAddToCartAndGet(t *testing.T) {
	token := authenticateUser(t, "cartuser@test.com", "testpass123")

	resp := doJSON(t, "POST", baseURL+"/api/cart/items", token, AddItemRequest{ProductID: 7, Quantity: 2, UnitPrice: 20.0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "expected 201 for adding item to cart")

	respCart := doJSON(t, "GET", baseURL+"/api/cart", token, nil)
	defer respCart.Body.Close()
	assert.Equal(t, http.StatusOK, respCart.StatusCode)

	var cart CartResponse
	assert.NoError(t, json.NewDecoder(respCart.Body).Decode(&cart))

	var found bool
	for _, item := range cart.Items {
		if item.ProductID == 7 && item.Quantity == 2 {
			found = true
			break
		}
	}
	assert.True(t, found, "added line should appear in the cart")
}

// сценарий добавления позиции с некорректным количеством
func TestAddToCartInvalid(t *testing.T) {
	token := authenticateUser(t, "cartuser@test.com", "testpass123")

	resp := doJSON(t, "POST", baseURL+"/api/cart/items", token, AddItemRequest{ProductID: 7, Quantity: 0, UnitPrice: 20.0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for zero quantity")
}

// сценарий удаления несуществующей позиции: no-op, повторный вызов тоже успешен
func TestRemoveFromCartIdempotent(t *testing.T) {
	token := authenticateUser(t, "removeuser@test.com", "testpass123")

	resp := doJSON(t, "DELETE", baseURL+"/api/cart/items/999999", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "expected 204 for removing nonexistent item")

	resp2 := doJSON(t, "DELETE", baseURL+"/api/cart/items/999999", token, nil)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp2.StatusCode, "repeated removal should also succeed")
}

// сценарий оформления заказа: корзина превращается в заказ и очищается
func TestPlaceOrder(t *testing.T) {
	token := authenticateUser(t, "orderuser@test.com", "testpass123")

	respAdd := doJSON(t, "POST", baseURL+"/api/cart/items", token, AddItemRequest{ProductID: 1, Quantity: 2, UnitPrice: 20.0})
	respAdd.Body.Close()
	assert.Equal(t, http.StatusCreated, respAdd.StatusCode)

	respAdd2 := doJSON(t, "POST", baseURL+"/api/cart/items", token, AddItemRequest{ProductID: 2, Quantity: 1, UnitPrice: 15.0})
	respAdd2.Body.Close()
	assert.Equal(t, http.StatusCreated, respAdd2.StatusCode)

	respOrder := doJSON(t, "POST", baseURL+"/api/orders", token, map[string]interface{}{
		"shippingAddress": map[string]string{"city": "Moscow", "street": "Tverskaya 1"},
	})
	defer respOrder.Body.Close()
	assert.Equal(t, http.StatusCreated, respOrder.StatusCode, "expected 201 for placing an order")

	var order OrderResponse
	assert.NoError(t, json.NewDecoder(respOrder.Body).Decode(&order))
	assert.Equal(t, "pending", order.Status, "new order should be pending")
	assert.Equal(t, 55.0, order.TotalAmount, "total should be the sum over cart lines")

	// Корзина после оформления заказа пуста
	respCart := doJSON(t, "GET", baseURL+"/api/cart", token, nil)
	defer respCart.Body.Close()
	var cart CartResponse
	assert.NoError(t, json.NewDecoder(respCart.Body).Decode(&cart))
	assert.Empty(t, cart.Items, "cart should be empty after placing an order")

	// Заказ виден в списке
	respList := doJSON(t, "GET", baseURL+"/api/orders", token, nil)
	defer respList.Body.Close()
	assert.Equal(t, http.StatusOK, respList.StatusCode)

	var orders OrdersResponse
	assert.NoError(t, json.NewDecoder(respList.Body).Decode(&orders))

	var found bool
	for _, o := range orders.Orders {
		if o.ID == order.ID {
			found = true
			break
		}
	}
	assert.True(t, found, "placed order should appear in the listing")
}

// сценарий оформления заказа с пустой корзиной
func TestPlaceOrderEmptyCart(t *testing.T) {
	token := authenticateUser(t, "emptycart@test.com", "testpass123")

	resp := doJSON(t, "POST", baseURL+"/api/orders", token, map[string]interface{}{
		"shippingAddress": map[string]string{"city": "Moscow"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for empty cart")
}

// сценарий оформления заказа без адреса доставки
func TestPlaceOrderMissingAddress(t *testing.T) {
	token := authenticateUser(t, "noaddress@test.com", "testpass123")

	respAdd := doJSON(t, "POST", baseURL+"/api/cart/items", token, AddItemRequest{ProductID: 1, Quantity: 1, UnitPrice: 10.0})
	respAdd.Body.Close()
	assert.Equal(t, http.StatusCreated, respAdd.StatusCode)

	resp := doJSON(t, "POST", baseURL+"/api/orders", token, map[string]interface{}{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for missing shipping address")
}

// сценарий оплаты с некорректным телом запроса
func TestProcessPaymentInvalidBody(t *testing.T) {
	token := authenticateUser(t, "payuser@test.com", "testpass123")

	resp := doJSON(t, "POST", baseURL+"/api/orders/1/payment", token, map[string]interface{}{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for payment without method and token")
}

// сценарий оплаты несуществующего заказа
func TestProcessPaymentOrderNotFound(t *testing.T) {
	token := authenticateUser(t, "payuser@test.com", "testpass123")

	resp := doJSON(t, "POST", baseURL+"/api/orders/999999/payment", token, map[string]interface{}{
		"paymentMethod": "card",
		"paymentToken":  "tok-abc",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "expected 404 for nonexistent order")
}

// сценарий оплаты (пользователь не авторизован)
func TestProcessPaymentUnauthorized(t *testing.T) {
	reqBody := []byte(`{"paymentMethod": "card", "paymentToken": "tok-abc"}`)
	resp, err := http.Post(baseURL+"/api/orders/1/payment", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 unauthorized for missing token")
}
