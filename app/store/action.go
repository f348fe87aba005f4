package store

import "CamuPos/app/models"

// Action is the closed set of state transitions. Each variant carries
// exactly the fields its transition needs.
type Action interface {
	Name() string
	action()
}

// AddToCart adds one unit of a product (optionally a variant of it)
type AddToCart struct {
	Product   models.Product
	VariantID string
}

// UpdateQty sets a cart line quantity; qty <= 0 removes the line
type UpdateQty struct {
	Key models.LineKey
	Qty int
}

// RemoveFromCart drops a cart line
type RemoveFromCart struct {
	Key models.LineKey
}

// ClearCart empties the cart
type ClearCart struct{}

// SetCart replaces the cart wholesale
type SetCart struct {
	Lines []models.CartLine
}

// SetEditOrder points the POS at an order being edited; nil clears it
type SetEditOrder struct {
	Order *models.Order
}

// AddProduct appends a catalog product. An empty ID gets a fresh one.
type AddProduct struct {
	Product models.Product
}

// UpdateProduct shallow-merges a patch onto an existing product
type UpdateProduct struct {
	Patch models.ProductPatch
}

// DeleteProduct removes a catalog product; recorded orders keep their snapshots
type DeleteProduct struct {
	ID models.FlexID
}

// ResetProducts restores the compiled-in catalog
type ResetProducts struct{}

// AddOrder commits the current cart as a counter sale
type AddOrder struct {
	Checkout models.Checkout
}

// AddOnlineOrder records a storefront order built outside the cart
type AddOnlineOrder struct {
	Checkout models.OnlineCheckout
}

// UpdateOrderStatus moves an order to another stage
type UpdateOrderStatus struct {
	ID     string
	Status models.OrderStatus
}

// UpdateOrder replaces an order's contents after an edit
type UpdateOrder struct {
	Order models.Order
}

// DeleteOrder removes an order and gives its stock back
type DeleteOrder struct {
	ID string
}

// ClearTransactions drops every recorded order
type ClearTransactions struct{}

// AddExpense records a ledger entry with a fresh id
type AddExpense struct {
	Expense models.Expense
}

// UpdateExpense merges a patch onto a ledger entry
type UpdateExpense struct {
	Patch models.ExpensePatch
}

// DeleteExpense removes a ledger entry
type DeleteExpense struct {
	ID string
}

// SetInitialState merges a remote snapshot. Empty slices leave local data alone.
type SetInitialState struct {
	Products     []models.Product
	Transactions []models.Order
	Expenses     []models.Expense
}

func (AddToCart) Name() string         { return "ADD_TO_CART" }
func (UpdateQty) Name() string         { return "UPDATE_QTY" }
func (RemoveFromCart) Name() string    { return "REMOVE_FROM_CART" }
func (ClearCart) Name() string         { return "CLEAR_CART" }
func (SetCart) Name() string           { return "SET_CART" }
func (SetEditOrder) Name() string      { return "SET_EDIT_ORDER" }
func (AddProduct) Name() string        { return "ADD_PRODUCT" }
func (UpdateProduct) Name() string     { return "UPDATE_PRODUCT" }
func (DeleteProduct) Name() string     { return "DELETE_PRODUCT" }
func (ResetProducts) Name() string     { return "RESET_PRODUCTS" }
func (AddOrder) Name() string          { return "ADD_ORDER" }
func (AddOnlineOrder) Name() string    { return "ADD_ONLINE_ORDER" }
func (UpdateOrderStatus) Name() string { return "UPDATE_ORDER_STATUS" }
func (UpdateOrder) Name() string       { return "UPDATE_ORDER" }
func (DeleteOrder) Name() string       { return "DELETE_ORDER" }
func (ClearTransactions) Name() string { return "CLEAR_TRANSACTIONS" }
func (AddExpense) Name() string        { return "ADD_EXPENSE" }
func (UpdateExpense) Name() string     { return "UPDATE_EXPENSE" }
func (DeleteExpense) Name() string     { return "DELETE_EXPENSE" }
func (SetInitialState) Name() string   { return "SET_INITIAL_STATE" }

func (AddToCart) action()         {}
func (UpdateQty) action()         {}
func (RemoveFromCart) action()    {}
func (ClearCart) action()         {}
func (SetCart) action()           {}
func (SetEditOrder) action()      {}
func (AddProduct) action()        {}
func (UpdateProduct) action()     {}
func (DeleteProduct) action()     {}
func (ResetProducts) action()     {}
func (AddOrder) action()          {}
func (AddOnlineOrder) action()    {}
func (UpdateOrderStatus) action() {}
func (UpdateOrder) action()       {}
func (DeleteOrder) action()       {}
func (ClearTransactions) action() {}
func (AddExpense) action()        {}
func (UpdateExpense) action()     {}
func (DeleteExpense) action()     {}
func (SetInitialState) action()   {}
