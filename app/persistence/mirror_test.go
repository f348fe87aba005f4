package persistence

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"CamuPos/app/models"
	"CamuPos/app/store"
)

type memBlobs struct {
	data   map[string]string
	sets   int
	setErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string]string{}}
}

func (m *memBlobs) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBlobs) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) LogError(message string, err error, details ...string) {
	l.messages = append(l.messages, message)
}

func TestDeserialize_StaleCatalogIsReplaced(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"retired item", `{"products":[{"id":1,"name":"Banana Roll Coklat","stock":5},{"id":2,"name":"Dragon Fruit Smoothie","stock":9}]}`},
		{"missing flagship", `{"products":[{"id":"x","name":"Es Teh","stock":5}]}`},
		{"empty list", `{"products":[]}`},
		{"no products key", `{"expenses":[]}`},
	}
	catalog := store.DefaultCatalog()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Deserialize(tt.blob, catalog)
			if len(s.Products) != len(catalog) {
				t.Fatalf("len(products) = %d, want %d", len(s.Products), len(catalog))
			}
			for i := range catalog {
				if s.Products[i].Name != catalog[i].Name || s.Products[i].Stock != catalog[i].Stock {
					t.Errorf("products[%d] = %s/%d, want %s/%d", i, s.Products[i].Name, s.Products[i].Stock, catalog[i].Name, catalog[i].Stock)
				}
			}
		})
	}
}

func TestDeserialize_CurrentCatalogIsKept(t *testing.T) {
	blob := `{"products":[{"id":"1","name":"Banana Roll Coklat","price":"11000","stock":3}]}`
	s := Deserialize(blob, store.DefaultCatalog())
	if len(s.Products) != 1 {
		t.Fatalf("len(products) = %d, want 1", len(s.Products))
	}
	p := s.Products[0]
	if p.Price != 11000 || p.Stock != 3 {
		t.Errorf("product = %+v", p)
	}
}

func TestDeserialize_HealsImages(t *testing.T) {
	blob := `{"products":[
		{"id":"1","name":"Banana Roll Coklat","image":"🍌","stock":10},
		{"id":"7","name":"Ice Fanta Susu","image":"/custom/fansus.webp","stock":10},
		{"id":"99","name":"Menu Rahasia","image":"🍫","stock":10}
	]}`
	s := Deserialize(blob, store.DefaultCatalog())

	tests := []struct {
		id   models.FlexID
		want string
	}{
		{"1", "/assets/menu/banana_roll.png"},
		{"7", "/custom/fansus.webp"},
		{"99", "🍫"},
	}
	for _, tt := range tests {
		p, ok := s.Product(tt.id)
		if !ok {
			t.Fatalf("product %s missing", tt.id)
		}
		if p.Image != tt.want {
			t.Errorf("product %s image = %q, want %q", tt.id, p.Image, tt.want)
		}
	}
}

func TestDeserialize_StockBackfill(t *testing.T) {
	blob := `{"products":[{"id":"1","name":"Banana Roll Coklat"},{"id":"2","name":"French Fries","stock":0}]}`
	s := Deserialize(blob, store.DefaultCatalog())
	if p, _ := s.Product("1"); p.Stock != models.DefaultStock {
		t.Errorf("missing stock = %d, want %d", p.Stock, models.DefaultStock)
	}
	if p, _ := s.Product("2"); p.Stock != 0 {
		t.Errorf("explicit zero stock = %d, want 0", p.Stock)
	}
}

func TestDeserialize_MalformedFallsBack(t *testing.T) {
	for _, blob := range []string{"", "{not json", `[1,2,3]`, `{"products":"nope"}`} {
		s := Deserialize(blob, store.DefaultCatalog())
		if len(s.Products) != len(store.DefaultCatalog()) {
			t.Errorf("Deserialize(%q) products = %d, want default catalog", blob, len(s.Products))
		}
		if s.OrderCount() != 0 || len(s.Expenses) != 0 {
			t.Errorf("Deserialize(%q) left data behind", blob)
		}
	}
}

func TestDeserialize_OrdersAndLegacyValues(t *testing.T) {
	blob := `{
		"orders":[{"id":"ORD-2","items":[],"total":5000,"status":"ready"},{"id":"ORD-0","total":1,"status":"new"}],
		"transactions":[{"id":"ORD-2","items":[],"total":5000,"status":"ready"},{"id":"ORD-1","total":9000,"status":"completed"}],
		"products":[{"id":"1","name":"Banana Roll Coklat","stock":4}],
		"expenses":[{"id":"EXP-1","title":"Gas","amount":20000,"fundSource":"Modal Awal"},{"id":"EXP-2","title":"Es","amount":"5000","fundSource":"Pendapatan"}],
		"editingOrder":{"id":"ORD-2"},
		"cart":[{"id":"1","qty":3}]
	}`
	s := Deserialize(blob, store.DefaultCatalog())

	if s.EditingOrder != nil {
		t.Errorf("editingOrder restored")
	}
	if len(s.Cart) != 0 {
		t.Errorf("cart restored")
	}
	orders := s.Orders()
	wantIDs := []string{"ORD-2", "ORD-1", "ORD-0"}
	if len(orders) != len(wantIDs) {
		t.Fatalf("len(orders) = %d, want %d", len(orders), len(wantIDs))
	}
	for i, id := range wantIDs {
		if orders[i].ID != id {
			t.Errorf("orders[%d] = %s, want %s", i, orders[i].ID, id)
		}
	}
	if o, _ := s.Order("ORD-1"); o.Status != models.OrderStatusNew {
		t.Errorf("legacy status = %q, want new", o.Status)
	}
	if s.Expenses[0].FundSource != models.FundCapital || s.Expenses[1].FundSource != models.FundRevenue {
		t.Errorf("fund sources = %q/%q", s.Expenses[0].FundSource, s.Expenses[1].FundSource)
	}
	if s.Expenses[1].Amount != 5000 {
		t.Errorf("string amount = %d, want 5000", s.Expenses[1].Amount)
	}
}

func TestSerialize_ExcludesSessionFields(t *testing.T) {
	r := store.Reducer{Now: func() time.Time { return time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC) }, Catalog: store.DefaultCatalog}
	s := store.NewState(store.DefaultCatalog())
	s, _ = r.Reduce(s, store.AddToCart{Product: s.Products[0]})
	s, _ = r.Reduce(s, store.AddOrder{})
	s, _ = r.Reduce(s, store.AddToCart{Product: s.Products[1]})
	o := s.Orders()[0]
	s, _ = r.Reduce(s, store.SetEditOrder{Order: &o})

	blob, err := Serialize(s)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		t.Fatalf("blob is not JSON: %v", err)
	}
	for _, key := range []string{"orders", "transactions", "products", "expenses"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("key %q missing", key)
		}
	}
	for _, key := range []string{"cart", "editingOrder"} {
		if _, ok := raw[key]; ok {
			t.Errorf("key %q persisted", key)
		}
	}

	back := Deserialize(blob, store.DefaultCatalog())
	if back.OrderCount() != 1 {
		t.Errorf("round trip orders = %d, want 1", back.OrderCount())
	}
	if p, _ := back.Product("1"); p.Stock != 49 {
		t.Errorf("round trip stock = %d, want 49", p.Stock)
	}
}

func TestMirror_WritesOnPersistedActions(t *testing.T) {
	blobs := newMemBlobs()
	st := store.New(store.NewState(store.DefaultCatalog()), store.NewReducer())
	NewMirror(blobs, nil).Attach(st)

	p := st.State().Products[0]
	st.Dispatch(store.AddToCart{Product: p})
	st.Dispatch(store.UpdateQty{Key: models.ProductKey(p.ID), Qty: 2})
	if blobs.sets != 0 {
		t.Errorf("cart actions wrote %d times", blobs.sets)
	}

	st.Dispatch(store.AddOrder{})
	if blobs.sets != 1 {
		t.Fatalf("sets = %d, want 1", blobs.sets)
	}
	loaded, err := Load(blobs, store.DefaultCatalog())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.OrderCount() != 1 {
		t.Errorf("loaded orders = %d, want 1", loaded.OrderCount())
	}
}

func TestMirror_LogsWriteFailure(t *testing.T) {
	blobs := newMemBlobs()
	blobs.setErr = errors.New("disk full")
	logger := &recordingLogger{}
	st := store.New(store.NewState(store.DefaultCatalog()), store.NewReducer())
	NewMirror(blobs, logger).Attach(st)

	next, _ := st.Dispatch(store.AddExpense{Expense: models.Expense{Title: "Gas", Amount: 20000}})
	if len(next.Expenses) != 1 {
		t.Errorf("local state not applied")
	}
	if len(logger.messages) != 1 || !strings.Contains(logger.messages[0], "persist") {
		t.Errorf("logged = %v", logger.messages)
	}
}

func TestLoad_EmptyStoreGivesDefaults(t *testing.T) {
	s, err := Load(newMemBlobs(), store.DefaultCatalog())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Products) != len(store.DefaultCatalog()) {
		t.Errorf("products = %d", len(s.Products))
	}
}
