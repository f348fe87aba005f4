package store

import (
	"encoding/json"

	"CamuPos/app/models"
)

// State is the aggregate root. It is never mutated in place: every action
// yields a new State and older snapshots stay valid for whoever holds them.
type State struct {
	Cart         []models.CartLine
	Products     []models.Product
	Expenses     []models.Expense
	EditingOrder *models.Order

	book orderBook
}

// NewState builds a state holding the given catalog and nothing else
func NewState(products []models.Product) State {
	return State{
		Cart:     []models.CartLine{},
		Products: cloneProducts(products),
		Expenses: []models.Expense{},
		book:     newOrderBook(nil),
	}
}

// WithOrders returns s with the order book replaced by orders (newest first)
func (s State) WithOrders(orders []models.Order) State {
	s.book = newOrderBook(orders)
	return s
}

// Orders is the order list, newest first
func (s State) Orders() []models.Order {
	return s.book.list()
}

// Transactions is the same record set as Orders. Both views read from one
// canonical book so they can't drift.
func (s State) Transactions() []models.Order {
	return s.book.list()
}

// Order looks up a recorded order by id
func (s State) Order(id string) (models.Order, bool) {
	o, ok := s.book.byID[id]
	if !ok {
		return models.Order{}, false
	}
	return o.Clone(), true
}

// OrderCount is the number of recorded orders
func (s State) OrderCount() int {
	return len(s.book.ids)
}

// Product looks up a catalog product by id
func (s State) Product(id models.FlexID) (models.Product, bool) {
	if i := productIndex(s.Products, id); i >= 0 {
		return s.Products[i], true
	}
	return models.Product{}, false
}

// CartLine looks up a cart line by key
func (s State) CartLine(key models.LineKey) (models.CartLine, bool) {
	for _, l := range s.Cart {
		if l.Key == key {
			return l, true
		}
	}
	return models.CartLine{}, false
}

// CartTotal is Σprice·qty over the cart
func (s State) CartTotal() models.Rupiah {
	total, _, _ := models.Items(s.Cart).Totals()
	return total
}

type stateJSON struct {
	Cart         []models.CartLine `json:"cart"`
	Orders       []models.Order    `json:"orders"`
	Transactions []models.Order    `json:"transactions"`
	Products     []models.Product  `json:"products"`
	Expenses     []models.Expense  `json:"expenses"`
	EditingOrder *models.Order     `json:"editingOrder"`
}

// MarshalJSON renders the full read model
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Cart:         nonNilCart(s.Cart),
		Orders:       s.Orders(),
		Transactions: s.Transactions(),
		Products:     nonNilProducts(s.Products),
		Expenses:     nonNilExpenses(s.Expenses),
		EditingOrder: s.EditingOrder,
	})
}

// orderBook is the single canonical order collection: a map keyed by id
// plus the display order. Mutators return a new book.
type orderBook struct {
	byID map[string]models.Order
	ids  []string
}

func newOrderBook(orders []models.Order) orderBook {
	b := orderBook{byID: make(map[string]models.Order, len(orders)), ids: make([]string, 0, len(orders))}
	for _, o := range orders {
		if _, dup := b.byID[o.ID]; dup {
			continue
		}
		b.byID[o.ID] = o.Clone()
		b.ids = append(b.ids, o.ID)
	}
	return b
}

func (b orderBook) list() []models.Order {
	out := make([]models.Order, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.byID[id].Clone())
	}
	return out
}

func (b orderBook) copy() orderBook {
	c := orderBook{byID: make(map[string]models.Order, len(b.byID)+1), ids: append([]string(nil), b.ids...)}
	for k, v := range b.byID {
		c.byID[k] = v
	}
	return c
}

// prepend records a new order at the front, or replaces it in place
func (b orderBook) prepend(o models.Order) orderBook {
	c := b.copy()
	if _, exists := c.byID[o.ID]; !exists {
		c.ids = append([]string{o.ID}, c.ids...)
	}
	c.byID[o.ID] = o.Clone()
	return c
}

func (b orderBook) replace(o models.Order) orderBook {
	c := b.copy()
	c.byID[o.ID] = o.Clone()
	return c
}

func (b orderBook) remove(id string) orderBook {
	c := b.copy()
	delete(c.byID, id)
	for i, v := range c.ids {
		if v == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return c
}

func productIndex(products []models.Product, id models.FlexID) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneProducts(in []models.Product) []models.Product {
	out := make([]models.Product, len(in))
	copy(out, in)
	return out
}

func nonNilCart(c []models.CartLine) []models.CartLine {
	if c == nil {
		return []models.CartLine{}
	}
	return c
}

func nonNilProducts(p []models.Product) []models.Product {
	if p == nil {
		return []models.Product{}
	}
	return p
}

func nonNilExpenses(e []models.Expense) []models.Expense {
	if e == nil {
		return []models.Expense{}
	}
	return e
}
