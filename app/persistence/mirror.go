package persistence

import (
	"encoding/json"
	"fmt"

	"CamuPos/app/models"
	"CamuPos/app/store"
)

// StateKey is the single key holding the serialized mirror
const StateKey = "camucamu_state"

// BlobStore is a durable string key/value store
type BlobStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// ErrorLogger receives write failures. LoggerService satisfies it.
type ErrorLogger interface {
	LogError(message string, err error, details ...string)
}

// snapshot is the persisted layout. Cart and editingOrder are not stored.
type snapshot struct {
	Orders       []models.Order   `json:"orders"`
	Transactions []models.Order   `json:"transactions"`
	Products     []models.Product `json:"products"`
	Expenses     []models.Expense `json:"expenses"`
}

// storedProduct tells a missing stock field apart from an explicit zero
type storedProduct struct {
	models.Product
	Stock *int `json:"stock"`
}

type storedSnapshot struct {
	Orders       []models.Order   `json:"orders"`
	Transactions []models.Order   `json:"transactions"`
	Products     []storedProduct  `json:"products"`
	Expenses     []models.Expense `json:"expenses"`
}

// Serialize renders the persisted subset of s
func Serialize(s store.State) (string, error) {
	products := s.Products
	if products == nil {
		products = []models.Product{}
	}
	expenses := s.Expenses
	if expenses == nil {
		expenses = []models.Expense{}
	}
	data, err := json.Marshal(snapshot{
		Orders:       s.Orders(),
		Transactions: s.Transactions(),
		Products:     products,
		Expenses:     expenses,
	})
	if err != nil {
		return "", fmt.Errorf("serialize state: %w", err)
	}
	return string(data), nil
}

// Deserialize rebuilds a state from a stored blob. It never fails: a
// malformed blob or a stale catalog degrades to the default catalog.
func Deserialize(blob string, catalog []models.Product) store.State {
	var stored storedSnapshot
	if blob != "" {
		if err := json.Unmarshal([]byte(blob), &stored); err != nil {
			stored = storedSnapshot{}
		}
	}

	products := make([]models.Product, 0, len(stored.Products))
	for _, sp := range stored.Products {
		p := sp.Product
		if sp.Stock != nil {
			p.Stock = *sp.Stock
		} else {
			p.Stock = models.DefaultStock
		}
		products = append(products, p)
	}
	if store.IsStaleCatalog(products) {
		products = catalog
	}
	products = store.HealImages(products, catalog)

	orders := make([]models.Order, 0, len(stored.Transactions)+len(stored.Orders))
	orders = append(orders, stored.Transactions...)
	orders = append(orders, stored.Orders...)

	s := store.NewState(products).WithOrders(orders)
	for _, e := range stored.Expenses {
		s.Expenses = append(s.Expenses, e.Normalize())
	}
	s.EditingOrder = nil
	return s
}

// Load reads the mirror from bs. A read error is treated as an empty store.
func Load(bs BlobStore, catalog []models.Product) (store.State, error) {
	blob, ok, err := bs.Get(StateKey)
	if err != nil || !ok {
		return Deserialize("", catalog), err
	}
	return Deserialize(blob, catalog), nil
}

// Mirror writes the persisted subset after every action that touches it
type Mirror struct {
	blobs  BlobStore
	logger ErrorLogger
}

// NewMirror creates a mirror writing to blobs
func NewMirror(blobs BlobStore, logger ErrorLogger) *Mirror {
	return &Mirror{blobs: blobs, logger: logger}
}

// Attach subscribes the mirror to st and returns the unsubscribe func
func (m *Mirror) Attach(st *store.Store) func() {
	return st.Subscribe(func(next store.State, a store.Action, _ []store.Intent) {
		if !persists(a) {
			return
		}
		if err := m.Save(next); err != nil && m.logger != nil {
			m.logger.LogError("Failed to persist state", err, "action="+a.Name())
		}
	})
}

// Save writes s under StateKey
func (m *Mirror) Save(s store.State) error {
	blob, err := Serialize(s)
	if err != nil {
		return err
	}
	return m.blobs.Set(StateKey, blob)
}

// persists reports whether a changes any stored collection
func persists(a store.Action) bool {
	switch a.(type) {
	case store.AddToCart, store.UpdateQty, store.RemoveFromCart,
		store.ClearCart, store.SetCart, store.SetEditOrder:
		return false
	}
	return true
}
