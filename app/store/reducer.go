package store

import (
	"strconv"
	"time"

	"CamuPos/app/models"
)

// Reducer applies actions to state. Given the same clock reading it is a
// pure function: no I/O, no shared state.
type Reducer struct {
	Now     func() time.Time
	Catalog func() []models.Product
}

// NewReducer returns a reducer on the wall clock and the default catalog
func NewReducer() Reducer {
	return Reducer{Now: time.Now, Catalog: DefaultCatalog}
}

func (r Reducer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r Reducer) catalog() []models.Product {
	if r.Catalog == nil {
		return DefaultCatalog()
	}
	return r.Catalog()
}

// stamp is the time-derived id suffix (unix milliseconds)
func stamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Reduce returns the next state and the remote calls needed to replicate the
// transition. Unknown or nil actions leave the state unchanged.
func (r Reducer) Reduce(s State, a Action) (State, []Intent) {
	switch a := a.(type) {
	case AddToCart:
		return r.addToCart(s, a), nil
	case UpdateQty:
		if a.Qty <= 0 {
			return removeLine(s, a.Key), nil
		}
		return setLineQty(s, a.Key, a.Qty), nil
	case RemoveFromCart:
		return removeLine(s, a.Key), nil
	case ClearCart:
		s.Cart = []models.CartLine{}
		return s, nil
	case SetCart:
		s.Cart = append([]models.CartLine{}, a.Lines...)
		return s, nil
	case SetEditOrder:
		if a.Order == nil {
			s.EditingOrder = nil
		} else {
			o := a.Order.Clone()
			s.EditingOrder = &o
		}
		return s, nil

	case AddProduct:
		return r.addProduct(s, a)
	case UpdateProduct:
		return updateProduct(s, a)
	case DeleteProduct:
		if i := productIndex(s.Products, a.ID); i >= 0 {
			s.Products = removeProductAt(s.Products, i)
		}
		return s, []Intent{DeleteProductIntent{ID: a.ID}}
	case ResetProducts:
		s.Products = r.catalog()
		return s, nil

	case AddOrder:
		return r.addOrder(s, a)
	case AddOnlineOrder:
		return r.addOnlineOrder(s, a)
	case UpdateOrderStatus:
		return updateOrderStatus(s, a)
	case UpdateOrder:
		return updateOrder(s, a)
	case DeleteOrder:
		return deleteOrder(s, a)
	case ClearTransactions:
		s.book = newOrderBook(nil)
		return s, []Intent{ClearTransactionsIntent{}}

	case AddExpense:
		return r.addExpense(s, a)
	case UpdateExpense:
		return updateExpense(s, a)
	case DeleteExpense:
		s.Expenses = filterExpenses(s.Expenses, a.ID)
		return s, []Intent{DeleteExpenseIntent{ID: a.ID}}

	case SetInitialState:
		return r.setInitialState(s, a), nil
	}
	return s, nil
}

// Cart

func (r Reducer) addToCart(s State, a AddToCart) State {
	var variant *models.Variant
	if a.VariantID != "" {
		if v, ok := a.Product.Variant(a.VariantID); ok {
			variant = &v
		}
	}
	line := models.NewCartLine(a.Product, variant)

	cart := make([]models.CartLine, 0, len(s.Cart)+1)
	merged := false
	for _, l := range s.Cart {
		if l.Key == line.Key {
			l.Qty++
			merged = true
		}
		cart = append(cart, l)
	}
	if !merged {
		cart = append(cart, line)
	}
	s.Cart = cart
	return s
}

func setLineQty(s State, key models.LineKey, qty int) State {
	cart := make([]models.CartLine, 0, len(s.Cart))
	for _, l := range s.Cart {
		if l.Key == key {
			l.Qty = qty
		}
		cart = append(cart, l)
	}
	s.Cart = cart
	return s
}

func removeLine(s State, key models.LineKey) State {
	cart := make([]models.CartLine, 0, len(s.Cart))
	for _, l := range s.Cart {
		if l.Key != key {
			cart = append(cart, l)
		}
	}
	s.Cart = cart
	return s
}

// Products

func (r Reducer) addProduct(s State, a AddProduct) (State, []Intent) {
	p := a.Product
	if p.ID == "" {
		p.ID = models.FlexID(freshID("", r.now(), func(id string) bool {
			return productIndex(s.Products, models.FlexID(id)) >= 0
		}))
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	products := make([]models.Product, 0, len(s.Products)+1)
	products = append(products, s.Products...)
	s.Products = append(products, p)
	return s, []Intent{UpsertProductIntent{Product: p}}
}

func updateProduct(s State, a UpdateProduct) (State, []Intent) {
	i := productIndex(s.Products, a.Patch.ID)
	if i < 0 {
		return s, nil
	}
	products := cloneProducts(s.Products)
	products[i] = a.Patch.Apply(products[i])
	s.Products = products
	return s, []Intent{UpsertProductIntent{Product: products[i]}}
}

func removeProductAt(products []models.Product, i int) []models.Product {
	out := make([]models.Product, 0, len(products)-1)
	out = append(out, products[:i]...)
	return append(out, products[i+1:]...)
}

// Orders

func (r Reducer) addOrder(s State, a AddOrder) (State, []Intent) {
	if len(s.Cart) == 0 {
		return s, nil
	}
	now := r.now()
	meta := a.Checkout
	order := newOrder(s.freshOrderID(models.CounterOrderPrefix, now), models.Items(s.Cart).Clone(), meta, now)
	if order.Type == "" {
		order.Type = models.OrderTypeDineIn
	}
	return commitOrder(s, order)
}

func (r Reducer) addOnlineOrder(s State, a AddOnlineOrder) (State, []Intent) {
	now := r.now()
	meta := a.Checkout.Checkout
	order := newOrder(s.freshOrderID(models.OnlineOrderPrefix, now), a.Checkout.Items.Clone(), meta, now)
	order.Type = models.OrderTypeOnline
	if order.CashierName == "" {
		order.CashierName = models.OnlineCashier
	}
	return commitOrder(s, order)
}

// freshID is prefix plus the epoch millis of now, moved forward past any id
// for which taken reports true
func freshID(prefix string, now time.Time, taken func(string) bool) string {
	id := prefix + stamp(now)
	for taken(id) {
		now = now.Add(time.Millisecond)
		id = prefix + stamp(now)
	}
	return id
}

func (s State) freshOrderID(prefix string, now time.Time) string {
	return freshID(prefix, now, func(id string) bool {
		_, taken := s.book.byID[id]
		return taken
	})
}

func (s State) freshExpenseID(now time.Time) string {
	return freshID("EXP-", now, func(id string) bool {
		for _, e := range s.Expenses {
			if e.ID == id {
				return true
			}
		}
		return false
	})
}

// newOrder stamps identity, defaults and totals derived from items
func newOrder(id string, items models.Items, meta models.Checkout, now time.Time) models.Order {
	if items == nil {
		items = models.Items{}
	}
	total, totalCost, profit := items.Totals()
	order := models.Order{
		ID:            id,
		Items:         items,
		Total:         total,
		TotalCost:     totalCost,
		Profit:        profit,
		CustomerName:  meta.CustomerName,
		CustomerPhone: meta.CustomerPhone,
		Notes:         meta.Notes,
		PaymentMethod: meta.PaymentMethod,
		Type:          meta.Type,
		Status:        models.OrderStatusNew,
		CashierName:   meta.CashierName,
		CreatedAt:     now.UTC(),
	}
	if order.CustomerName == "" {
		order.CustomerName = models.WalkInCustomer
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = models.PaymentCash
	}
	if order.PaymentMethod == models.PaymentCash {
		order.CashReceived = meta.CashReceived
		order.Change = meta.Change
	}
	return order
}

// commitOrder records the order, consumes stock and empties the cart in one step
func commitOrder(s State, order models.Order) (State, []Intent) {
	ledger := newStockLedger(s.Products)
	ledger.consume(order.Items)

	s.book = s.book.prepend(order)
	s.Products = ledger.products
	s.Cart = []models.CartLine{}

	intents := []Intent{UpsertTransactionIntent{Order: order.Clone()}}
	return s, append(intents, ledger.intents()...)
}

func updateOrderStatus(s State, a UpdateOrderStatus) (State, []Intent) {
	order, ok := s.book.byID[a.ID]
	if !ok {
		return s, nil
	}
	status := a.Status.Normalize()
	order = order.Clone()
	order.Status = status
	s.book = s.book.replace(order)
	return s, []Intent{PatchStatusIntent{ID: a.ID, Status: status}}
}

// updateOrder fully reverts the old snapshot before applying the new one, so
// lines present in both net out.
func updateOrder(s State, a UpdateOrder) (State, []Intent) {
	old, ok := s.book.byID[a.Order.ID]
	if !ok {
		return s, nil
	}
	next := a.Order.Clone()
	next.Items = positiveLines(next.Items)
	next.Total, next.TotalCost, next.Profit = next.Items.Totals()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = old.CreatedAt
	}
	if next.Status == "" {
		next.Status = old.Status
	}
	next.Status = next.Status.Normalize()
	if next.Type == "" {
		next.Type = old.Type
	}

	ledger := newStockLedger(s.Products)
	ledger.restore(old.Items)
	ledger.consume(next.Items)

	s.book = s.book.replace(next)
	s.Products = ledger.products
	s.Cart = []models.CartLine{}
	s.EditingOrder = nil

	intents := []Intent{UpsertTransactionIntent{Order: next.Clone()}}
	return s, append(intents, ledger.intents()...)
}

// positiveLines drops lines whose qty is not positive
func positiveLines(items models.Items) models.Items {
	out := make(models.Items, 0, len(items))
	for _, line := range items {
		if line.Qty > 0 {
			out = append(out, line)
		}
	}
	return out
}

func deleteOrder(s State, a DeleteOrder) (State, []Intent) {
	intents := []Intent{DeleteTransactionIntent{ID: a.ID}}
	old, ok := s.book.byID[a.ID]
	if !ok {
		return s, intents
	}
	ledger := newStockLedger(s.Products)
	ledger.restore(old.Items)

	s.book = s.book.remove(a.ID)
	s.Products = ledger.products
	if s.EditingOrder != nil && s.EditingOrder.ID == a.ID {
		s.EditingOrder = nil
	}
	return s, append(intents, ledger.intents()...)
}

// Expenses

func (r Reducer) addExpense(s State, a AddExpense) (State, []Intent) {
	now := r.now()
	e := a.Expense.Normalize()
	e.ID = s.freshExpenseID(now)
	e.CreatedAt = now.UTC()
	if e.Date == "" {
		e.Date = now.Format("2006-01-02")
	}
	expenses := make([]models.Expense, 0, len(s.Expenses)+1)
	expenses = append(expenses, e)
	s.Expenses = append(expenses, s.Expenses...)
	return s, []Intent{UpsertExpenseIntent{Expense: e}}
}

func updateExpense(s State, a UpdateExpense) (State, []Intent) {
	expenses := make([]models.Expense, len(s.Expenses))
	copy(expenses, s.Expenses)
	for i, e := range expenses {
		if e.ID == a.Patch.ID {
			expenses[i] = a.Patch.Apply(e)
			s.Expenses = expenses
			return s, []Intent{UpsertExpenseIntent{Expense: expenses[i]}}
		}
	}
	return s, nil
}

func filterExpenses(expenses []models.Expense, id string) []models.Expense {
	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// Remote load

func (r Reducer) setInitialState(s State, a SetInitialState) State {
	if len(a.Products) > 0 {
		s.Products = HealImages(a.Products, r.catalog())
	}
	if len(a.Transactions) > 0 {
		s.book = newOrderBook(a.Transactions)
	}
	if len(a.Expenses) > 0 {
		expenses := make([]models.Expense, len(a.Expenses))
		for i, e := range a.Expenses {
			expenses[i] = e.Normalize()
		}
		s.Expenses = expenses
	}
	return s
}
