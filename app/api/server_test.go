package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"CamuPos/app/config"
	"CamuPos/app/database"
	"CamuPos/app/models"
	"CamuPos/app/services"
	"CamuPos/app/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers map[string]*models.User

func (m memUsers) FindUser(ctx context.Context, username string) (*models.User, error) {
	if u, ok := m[username]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (m memUsers) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uint(len(m) + 1)
	m[user.Username] = user
	return nil
}

// brokenRemote accepts reads and fails every write
type brokenRemote struct{}

var errRemoteDown = errors.New("remote down")

func (brokenRemote) SelectProducts(ctx context.Context) ([]models.Product, error) { return nil, nil }
func (brokenRemote) SelectTransactions(ctx context.Context) ([]models.Order, error) {
	return nil, nil
}
func (brokenRemote) SelectExpenses(ctx context.Context) ([]models.Expense, error) { return nil, nil }
func (brokenRemote) UpsertProduct(ctx context.Context, p models.Product) error      { return errRemoteDown }
func (brokenRemote) UpsertTransaction(ctx context.Context, o models.Order) error    { return errRemoteDown }
func (brokenRemote) UpsertExpense(ctx context.Context, e models.Expense) error      { return errRemoteDown }
func (brokenRemote) DeleteProduct(ctx context.Context, id string) error             { return errRemoteDown }
func (brokenRemote) DeleteTransaction(ctx context.Context, id string) error         { return errRemoteDown }
func (brokenRemote) DeleteExpense(ctx context.Context, id string) error             { return errRemoteDown }
func (brokenRemote) PatchTransactionStatus(ctx context.Context, id string, status models.OrderStatus) error {
	return errRemoteDown
}
func (brokenRemote) DeleteAllTransactions(ctx context.Context) error { return errRemoteDown }

type testAPI struct {
	handler    http.Handler
	dispatcher *services.Dispatcher
	admin      string
	cashier    string
}

func newTestAPI(t *testing.T, remote services.RemoteTables) *testAPI {
	t.Helper()
	worker := services.NewReplicationWorker(remote, nil, nil)
	worker.Start()
	t.Cleanup(worker.Stop)

	st := store.New(store.NewState(store.DefaultCatalog()), store.NewReducer())
	dispatcher := services.NewDispatcher(st, worker, nil)

	adminHash, _ := services.HashPassword("rahasia")
	users := memUsers{"reza": {ID: 1, Username: "reza", PasswordHash: adminHash, Role: models.RoleAdmin}}
	auth := services.NewAuthService(users, config.AuthConfig{JWTSecret: "test-secret"})

	srv := NewServer(config.ServerConfig{Port: 0}, Deps{
		Dispatcher: dispatcher,
		Orders:     services.NewOrderService(dispatcher, nil, nil),
		Auth:       auth,
		Reports:    services.NewReportService(dispatcher, config.ReportsConfig{FixedCosts: config.DefaultFixedCosts()}),
		Payment:    services.NewPaymentService(config.PaymentConfig{}),
		DailySales: 50,
	})

	admin, _ := auth.IssueToken(&models.User{ID: 1, Username: "reza", Role: models.RoleAdmin})
	cashier, _ := auth.IssueToken(&models.User{ID: 2, Username: "andris", Role: models.RoleCashier})
	return &testAPI{handler: srv.Handler(), dispatcher: dispatcher, admin: admin, cashier: cashier}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndMenu(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"remote":false`) {
		t.Errorf("GET /health = %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/api/menu", "", nil)
	var menu struct {
		Products    []models.Product `json:"products"`
		QRISEnabled bool             `json:"qrisEnabled"`
	}
	decode(t, rec, &menu)
	if len(menu.Products) != len(store.DefaultCatalog()) || menu.QRISEnabled {
		t.Errorf("GET /api/menu = %d products, qris %v", len(menu.Products), menu.QRISEnabled)
	}
}

func TestAuth(t *testing.T) {
	a := newTestAPI(t, nil)
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"no token", http.MethodGet, "/api/state", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/state", "nope", nil, http.StatusUnauthorized},
		{"cashier sees state", http.MethodGet, "/api/state", a.cashier, nil, http.StatusOK},
		{"cashier cannot edit catalog", http.MethodPost, "/api/products", a.cashier, gin.H{"name": "Tahu"}, http.StatusForbidden},
		{"admin reports", http.MethodGet, "/api/reports/summary?period=week", a.admin, nil, http.StatusOK},
		{"bad period", http.MethodGet, "/api/reports/summary?period=year", a.admin, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := a.do(t, tt.method, tt.path, tt.token, tt.body); rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "REZA", "password": "rahasia"})
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.Token == "" || out.User.Role != models.RoleAdmin {
		t.Fatalf("POST /api/login = %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(t, http.MethodGet, "/api/sync/status", out.Token, nil); rec.Code != http.StatusOK {
		t.Errorf("token from login rejected: %d", rec.Code)
	}

	rec = a.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "reza", "password": "salah"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", rec.Code)
	}
}

func TestCounterFlow(t *testing.T) {
	a := newTestAPI(t, nil)

	if rec := a.do(t, http.MethodPost, "/api/orders", a.cashier, gin.H{}); rec.Code != http.StatusBadRequest {
		t.Errorf("checkout with empty cart = %d, want 400", rec.Code)
	}

	a.do(t, http.MethodPost, "/api/cart/items", a.cashier, gin.H{"productId": "1"})
	rec := a.do(t, http.MethodPost, "/api/cart/items", a.cashier, gin.H{"productId": 1})
	var cart struct {
		Cart  []models.CartLine `json:"cart"`
		Total models.Rupiah     `json:"total"`
	}
	decode(t, rec, &cart)
	if len(cart.Cart) != 1 || cart.Cart[0].Qty != 2 || cart.Total != 20000 {
		t.Fatalf("cart = %+v", cart)
	}
	if rec := a.do(t, http.MethodPost, "/api/cart/items", a.cashier, gin.H{"productId": "999"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown product = %d, want 404", rec.Code)
	}

	rec = a.do(t, http.MethodPost, "/api/orders?wait=true", a.cashier, gin.H{"customerName": "Budi", "paymentMethod": "qris"})
	var created struct {
		Order models.Order `json:"order"`
	}
	decode(t, rec, &created)
	if rec.Code != http.StatusCreated || created.Order.Total != 20000 || created.Order.CashierName != "andris" {
		t.Fatalf("POST /api/orders = %d %s", rec.Code, rec.Body.String())
	}
	id := created.Order.ID

	if rec := a.do(t, http.MethodPatch, "/api/orders/"+id+"/status", a.cashier, gin.H{"status": "ready"}); rec.Code != http.StatusOK {
		t.Errorf("status ready = %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(t, http.MethodPatch, "/api/orders/"+id+"/status", a.cashier, gin.H{"status": "new"}); rec.Code != http.StatusConflict {
		t.Errorf("status back to new = %d, want 409", rec.Code)
	}
	if rec := a.do(t, http.MethodPatch, "/api/orders/missing/status", a.cashier, gin.H{"status": "done"}); rec.Code != http.StatusNotFound {
		t.Errorf("status of missing order = %d, want 404", rec.Code)
	}
	if rec := a.do(t, http.MethodGet, "/api/orders/"+id+"/qris.png", a.cashier, nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("qris without merchant payload = %d, want 503", rec.Code)
	}

	if rec := a.do(t, http.MethodDelete, "/api/orders/"+id, a.cashier, nil); rec.Code != http.StatusOK {
		t.Errorf("delete = %d", rec.Code)
	}
	if p, _ := a.dispatcher.State().Product("1"); p.Stock != 50 {
		t.Errorf("stock after delete = %d, want 50", p.Stock)
	}
}

func TestOnlineOrder(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/api/orders/online", "", gin.H{
		"customerName":  "Sari",
		"customerPhone": "0812-3456",
		"paymentMethod": "cash",
		"items":         []gin.H{{"productId": "1", "qty": 2, "price": 1}},
	})
	var created struct {
		Order models.Order `json:"order"`
	}
	decode(t, rec, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/orders/online = %d %s", rec.Code, rec.Body.String())
	}
	if created.Order.Total != 20000 || !strings.HasPrefix(created.Order.ID, models.OnlineOrderPrefix) {
		t.Errorf("order = %+v", created.Order)
	}

	rec = a.do(t, http.MethodGet, "/api/orders/online/"+created.Order.ID, "", nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "0812") {
		t.Errorf("tracking = %d %s", rec.Code, rec.Body.String())
	}

	bad := []gin.H{
		{"customerName": "", "items": []gin.H{{"productId": "1", "qty": 1}}},
		{"customerName": "Sari", "paymentMethod": "unpaid", "items": []gin.H{{"productId": "1", "qty": 1}}},
		{"customerName": "Sari", "items": []gin.H{{"productId": "404", "qty": 1}}},
		{"customerName": "Sari", "items": []gin.H{}},
	}
	for i, body := range bad {
		if rec := a.do(t, http.MethodPost, "/api/orders/online", "", body); rec.Code != http.StatusBadRequest {
			t.Errorf("bad order %d = %d, want 400 (%s)", i, rec.Code, rec.Body.String())
		}
	}
}

func TestSyncFailureIsAccepted(t *testing.T) {
	a := newTestAPI(t, brokenRemote{})

	rec := a.do(t, http.MethodPost, "/api/expenses?wait=true", a.admin, gin.H{"title": "Gas", "amount": 25000})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/expenses = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}
	var out struct {
		Expense   models.Expense `json:"expense"`
		SyncError string         `json:"syncError"`
	}
	decode(t, rec, &out)
	if out.SyncError == "" || out.Expense.ID == "" {
		t.Errorf("response = %+v", out)
	}
	if got := a.dispatcher.State().Expenses; len(got) != 1 {
		t.Errorf("local expenses = %d, want 1", len(got))
	}

	// without wait the failure stays in the background
	rec = a.do(t, http.MethodPost, "/api/expenses", a.admin, gin.H{"title": "Es batu", "amount": 10000})
	if rec.Code != http.StatusCreated {
		t.Errorf("POST /api/expenses without wait = %d, want 201", rec.Code)
	}
}

func TestProductAdmin(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/api/products", a.admin, gin.H{"name": "Tahu Crispy", "price": 8000, "cost": 4000, "stock": 20})
	var created struct {
		Product models.Product `json:"product"`
	}
	decode(t, rec, &created)
	if rec.Code != http.StatusCreated || created.Product.ID == "" {
		t.Fatalf("POST /api/products = %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodPatch, "/api/products/"+created.Product.ID.String(), a.admin, gin.H{"price": 9000})
	var updated struct {
		Product models.Product `json:"product"`
	}
	decode(t, rec, &updated)
	if updated.Product.Price != 9000 || updated.Product.Name != "Tahu Crispy" {
		t.Errorf("patched product = %+v", updated.Product)
	}
	if rec := a.do(t, http.MethodPatch, "/api/products/nope", a.admin, gin.H{"price": 1}); rec.Code != http.StatusNotFound {
		t.Errorf("patch missing = %d, want 404", rec.Code)
	}

	a.do(t, http.MethodDelete, "/api/products/"+created.Product.ID.String(), a.admin, nil)
	if _, ok := a.dispatcher.State().Product(created.Product.ID); ok {
		t.Errorf("product not deleted")
	}

	rec = a.do(t, http.MethodGet, "/api/reports/bep?dailySales=25", a.admin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/reports/bep = %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/api/chat", "", gin.H{})
	var greeting services.ChatReply
	decode(t, rec, &greeting)
	if greeting.Text != services.Greeting {
		t.Errorf("greeting = %q", greeting.Text)
	}

	rec = a.do(t, http.MethodPost, "/api/chat", "", gin.H{"message": "bisa bayar qris?"})
	var reply services.ChatReply
	decode(t, rec, &reply)
	if !strings.HasPrefix(reply.Text, "Bisa bayar") {
		t.Errorf("reply = %q", reply.Text)
	}
}
