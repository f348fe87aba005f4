package store

import "CamuPos/app/models"

// Remote table names
const (
	TableProducts     = "products"
	TableTransactions = "transactions"
	TableExpenses     = "expenses"
)

// IntentKind is the remote operation an intent asks for
type IntentKind string

const (
	KindUpsert      IntentKind = "upsert"
	KindDelete      IntentKind = "delete"
	KindPatchStatus IntentKind = "patch_status"
	KindDeleteAll   IntentKind = "delete_all"
)

// Intent describes one remote call needed to replicate a committed action.
// Intents carry final row values, never deltas, so they can land in any
// order relative to other actions without a read-modify-write.
type Intent interface {
	Table() string
	Kind() IntentKind
	RowID() string
	intent()
}

// UpsertProductIntent writes a product row with its post-action stock
type UpsertProductIntent struct {
	Product models.Product
}

// DeleteProductIntent removes a product row
type DeleteProductIntent struct {
	ID models.FlexID
}

// UpsertTransactionIntent writes a full order row
type UpsertTransactionIntent struct {
	Order models.Order
}

// PatchStatusIntent updates only the status column of an order row
type PatchStatusIntent struct {
	ID     string
	Status models.OrderStatus
}

// DeleteTransactionIntent removes an order row
type DeleteTransactionIntent struct {
	ID string
}

// ClearTransactionsIntent removes every order row
type ClearTransactionsIntent struct{}

// UpsertExpenseIntent writes a ledger row
type UpsertExpenseIntent struct {
	Expense models.Expense
}

// DeleteExpenseIntent removes a ledger row
type DeleteExpenseIntent struct {
	ID string
}

func (UpsertProductIntent) Table() string     { return TableProducts }
func (DeleteProductIntent) Table() string     { return TableProducts }
func (UpsertTransactionIntent) Table() string { return TableTransactions }
func (PatchStatusIntent) Table() string       { return TableTransactions }
func (DeleteTransactionIntent) Table() string { return TableTransactions }
func (ClearTransactionsIntent) Table() string { return TableTransactions }
func (UpsertExpenseIntent) Table() string     { return TableExpenses }
func (DeleteExpenseIntent) Table() string     { return TableExpenses }

func (UpsertProductIntent) Kind() IntentKind     { return KindUpsert }
func (DeleteProductIntent) Kind() IntentKind     { return KindDelete }
func (UpsertTransactionIntent) Kind() IntentKind { return KindUpsert }
func (PatchStatusIntent) Kind() IntentKind       { return KindPatchStatus }
func (DeleteTransactionIntent) Kind() IntentKind { return KindDelete }
func (ClearTransactionsIntent) Kind() IntentKind { return KindDeleteAll }
func (UpsertExpenseIntent) Kind() IntentKind     { return KindUpsert }
func (DeleteExpenseIntent) Kind() IntentKind     { return KindDelete }

func (i UpsertProductIntent) RowID() string     { return i.Product.ID.String() }
func (i DeleteProductIntent) RowID() string     { return i.ID.String() }
func (i UpsertTransactionIntent) RowID() string { return i.Order.ID }
func (i PatchStatusIntent) RowID() string       { return i.ID }
func (i DeleteTransactionIntent) RowID() string { return i.ID }
func (ClearTransactionsIntent) RowID() string   { return "*" }
func (i UpsertExpenseIntent) RowID() string     { return i.Expense.ID }
func (i DeleteExpenseIntent) RowID() string     { return i.ID }

func (UpsertProductIntent) intent()     {}
func (DeleteProductIntent) intent()     {}
func (UpsertTransactionIntent) intent() {}
func (PatchStatusIntent) intent()       {}
func (DeleteTransactionIntent) intent() {}
func (ClearTransactionsIntent) intent() {}
func (UpsertExpenseIntent) intent()     {}
func (DeleteExpenseIntent) intent()     {}
