package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/authz"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/order"
	"storefront/internal/orderdetail"
	"storefront/internal/payment"
	"storefront/internal/store/storetest"
	"storefront/pkg/tokens"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testServerKey = "SB-Mid-server-router"
	testSecret    = "router-secret"
)

type stubGateway struct{ calls int }

func (g *stubGateway) CreateTransaction(_ context.Context, req payment.TransactionRequest) (payment.Transaction, error) {
	g.calls++
	return payment.Transaction{Token: "tok-" + req.OrderID}, nil
}

type testServer struct {
	r   *gin.Engine
	db  *gorm.DB
	gw  *stubGateway
	pub *events.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.New(t)
	storetest.SeedUser(t, db, 1, model.RoleCustomer)
	storetest.SeedUser(t, db, 2, model.RoleCustomer)
	storetest.SeedUser(t, db, 9, model.RoleAdmin)

	pub := &events.Memory{}
	gw := &stubGateway{}
	az := authz.Roles{}

	r := gin.New()
	Setup(r, Deps{
		DB:         db,
		Orders:     order.NewService(db, az, pub, config.PricingLive),
		Details:    orderdetail.NewService(db, az, pub),
		Payments:   payment.NewService(db, gw, az, pub, testServerKey),
		JWTSecret:  []byte(testSecret),
		RateLimit:  100,
		RateWindow: time.Second,
	})
	return &testServer{r: r, db: db, gw: gw, pub: pub}
}

func token(t *testing.T, id uint, role string) string {
	t.Helper()
	tok, err := tokens.Issue([]byte(testSecret), id, "user", "user@example.com", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRequiresLogin(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Login First", body["msg"])
}

func TestOrderEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, 1, model.RoleCustomer)
	bob := token(t, 2, model.RoleCustomer)
	p := storetest.SeedProduct(t, s.db, "kopi", 100, 10)

	w, body := s.do(t, http.MethodPost, "/orders", alice, gin.H{"productId": p.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Order created successfully", body["message"])
	created := body["order"].(map[string]any)
	assert.Equal(t, "unpaid", created["status"])
	assert.Equal(t, "kopi", created["Product"].(map[string]any)["name"])
	orderID := uint(created["id"].(float64))

	w, body = s.do(t, http.MethodPost, "/orders", alice, gin.H{"productId": p.ID, "quantity": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient stock for kopi. Available: 7", body["msg"])
	assert.EqualValues(t, 7, body["available"])

	w, _ = s.do(t, http.MethodPost, "/orders", alice, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPost, "/orders", alice, gin.H{"productId": 999, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product with ID 999 not found", body["msg"])

	w, body = s.do(t, http.MethodPut, "/orders/1", alice, gin.H{"quantity": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order updated successfully", body["message"])
	assert.Equal(t, int64(5), storetest.Stock(t, s.db, p.ID))

	w, _ = s.do(t, http.MethodPut, "/orders/1", bob, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPut, "/orders/abc", alice, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/orders", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, int64(5), mine[0].Quantity)

	w, _ = s.do(t, http.MethodGet, "/admin/orders", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodGet, "/admin/orders", token(t, 9, model.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(t, http.MethodDelete, "/orders/1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order deleted successfully", body["message"])
	assert.Equal(t, int64(10), storetest.Stock(t, s.db, p.ID))
	assert.Equal(t, uint(1), orderID)

	w, body = s.do(t, http.MethodDelete, "/orders/1", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", body["msg"])
}

func TestOrderDetailEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, 1, model.RoleCustomer)
	admin := token(t, 9, model.RoleAdmin)
	p := storetest.SeedProduct(t, s.db, "kopi", 25, 10)

	for i := 0; i < 2; i++ {
		w, _ := s.do(t, http.MethodPost, "/orders", alice, gin.H{"productId": p.ID, "quantity": 2})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, body := s.do(t, http.MethodPost, "/order-details/from-cart", alice, gin.H{"orderNumber": "CART-7"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 2, body["orderCount"])
	assert.Equal(t, "100", body["grandTotal"])
	assert.Len(t, body["orderDetails"], 2)

	w, body = s.do(t, http.MethodPost, "/order-details", alice, gin.H{"orderId": 1, "orderNumber": "INV-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	detail := body["orderDetail"].(map[string]any)
	assert.Equal(t, "pending", detail["status"])
	assert.Equal(t, "50", detail["totalAmount"])

	w, body = s.do(t, http.MethodPost, "/order-details", token(t, 2, model.RoleCustomer), gin.H{"orderId": 1, "orderNumber": "X"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You can only create order details for your own orders", body["msg"])

	w, body = s.do(t, http.MethodPut, "/order-details/1", alice, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", body["orderDetail"].(map[string]any)["status"])

	w, body = s.do(t, http.MethodPut, "/order-details/1", alice, gin.H{"status": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid status", body["msg"])

	w, _ = s.do(t, http.MethodGet, "/revenue-stats", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, http.MethodGet, "/revenue-stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "50", body["totalRevenue"])
	assert.EqualValues(t, 1, body["completedOrders"])
	assert.EqualValues(t, 2, body["pendingOrders"])
	assert.EqualValues(t, 3, body["totalOrders"])

	w, _ = s.do(t, http.MethodGet, "/my-order-details", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/order-details", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodGet, "/order-details/2", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(t, http.MethodDelete, "/order-details/1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order detail deleted successfully", body["message"])
	assert.Equal(t, int64(6), storetest.Stock(t, s.db, p.ID))
}

func TestPaymentEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, 1, model.RoleCustomer)
	p := storetest.SeedProduct(t, s.db, "kopi", 100, 10)

	w, body := s.do(t, http.MethodGet, "/payment/midtrans/initiate", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No pending orders found", body["msg"])
	assert.Zero(t, s.gw.calls)

	w, _ = s.do(t, http.MethodPost, "/orders", alice, gin.H{"productId": p.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body = s.do(t, http.MethodGet, "/payment/midtrans/initiate", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 200, body["amount"])
	gatewayOrderID := body["orderId"].(string)
	assert.Regexp(t, `^ORDER-1-\d+$`, gatewayOrderID)
	assert.Equal(t, "tok-"+gatewayOrderID, body["transactionToken"])

	notif := payment.Notification{
		OrderID: gatewayOrderID, StatusCode: "200", GrossAmount: "200.00",
		TransactionStatus: "settlement", CustomField1: "1", CustomField2: "1",
	}
	notif.SignatureKey = "deadbeef"
	w, body = s.do(t, http.MethodPost, "/payment/midtrans/notification", "", notif)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, gin.H{"status": "error", "message": "Invalid signature"}, gin.H(body))

	notif.SignatureKey = payment.Signature(notif.OrderID, notif.StatusCode, notif.GrossAmount, testServerKey)
	w, body = s.do(t, http.MethodPost, "/payment/midtrans/notification", "", notif)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])

	var o model.Order
	require.NoError(t, s.db.First(&o).Error)
	assert.Equal(t, model.OrderCompleted, o.Status)

	w, body = s.do(t, http.MethodPut, "/payment/status", alice, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No unpaid orders found to update", body["msg"])

	w, _ = s.do(t, http.MethodPost, "/orders", alice, gin.H{"productId": p.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, http.MethodPut, "/payment/status", alice, gin.H{"status": "paid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, body = s.do(t, http.MethodPut, "/payment/status", alice, gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["affectedCount"])
	assert.Equal(t, "cancelled", body["newStatus"])

	w, _ = s.do(t, http.MethodGet, "/payment/midtrans/status/"+gatewayOrderID, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, 9, model.RoleAdmin)
	alice := token(t, 1, model.RoleCustomer)
	cat := model.Category{Name: "drinks"}
	require.NoError(t, s.db.Create(&cat).Error)

	req := gin.H{"name": "es teh", "price": "7500", "stock": 3, "categoryId": cat.ID}
	w, _ := s.do(t, http.MethodPost, "/products", alice, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := s.do(t, http.MethodPost, "/products", admin, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(body["id"].(float64))

	w, _ = s.do(t, http.MethodPost, "/products", admin, gin.H{"name": "x", "price": "-1", "categoryId": cat.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPut, "/products/1", admin, gin.H{"price": "8000", "restock": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p model.Product
	require.NoError(t, s.db.First(&p, id).Error)
	assert.Equal(t, int64(7), p.Stock)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(8000)))

	w, _ = s.do(t, http.MethodGet, "/products", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, body = s.do(t, http.MethodGet, "/products/1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "drinks", body["Category"].(map[string]any)["name"])
	w, _ = s.do(t, http.MethodGet, "/categories/1", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/categories/77", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/products/1", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/products/1", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
