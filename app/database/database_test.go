package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"CamuPos/app/config"
	"CamuPos/app/models"
)

func openTestLocal(t *testing.T) *LocalDB {
	t.Helper()
	local, err := OpenLocalDB(filepath.Join(t.TempDir(), "nested", "local.db"))
	if err != nil {
		t.Fatalf("OpenLocalDB() error = %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local
}

// openTestRemote uses SQLite as the remote dialect
func openTestRemote(t *testing.T) *RemoteStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "remote.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	t.Cleanup(func() { Close(db) })
	return NewRemoteStore(db)
}

func TestLocalDB_BlobGetSet(t *testing.T) {
	local := openTestLocal(t)

	if _, ok, err := local.Get("camucamu_state"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := local.Set("camucamu_state", `{"orders":[]}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := local.Set("camucamu_state", `{"orders":[1]}`); err != nil {
		t.Fatalf("Set(overwrite) error = %v", err)
	}
	got, ok, err := local.Get("camucamu_state")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if got != `{"orders":[1]}` {
		t.Errorf("Get() = %q, want the latest value", got)
	}
}

func TestLocalDB_SyncLogs(t *testing.T) {
	local := openTestLocal(t)
	base := time.Now().Add(-time.Minute)
	local.LogSync(SyncLog{IntentID: "a", Table: "products", Kind: "upsert", RowID: "1", Status: "success", SyncedAt: base})
	local.LogSync(SyncLog{IntentID: "b", Table: "transactions", Kind: "delete", RowID: "ORD-1", Status: "failed", Error: "timeout", SyncedAt: base.Add(time.Second)})
	local.LogSync(SyncLog{IntentID: "old", Status: "success", SyncedAt: time.Now().AddDate(0, 0, -40)})

	logs, err := local.GetSyncLogs(2)
	if err != nil {
		t.Fatalf("GetSyncLogs() error = %v", err)
	}
	if len(logs) != 2 || logs[0].IntentID != "b" || logs[1].IntentID != "a" {
		t.Errorf("logs = %+v, want b then a", logs)
	}

	if err := local.ClearSyncLogs(30); err != nil {
		t.Fatalf("ClearSyncLogs() error = %v", err)
	}
	logs, _ = local.GetSyncLogs(10)
	if len(logs) != 2 {
		t.Errorf("len(logs) after prune = %d, want 2", len(logs))
	}

	if err := local.UpdateSyncStatus("failed", "timeout", 3); err != nil {
		t.Fatalf("UpdateSyncStatus() error = %v", err)
	}
	status, err := local.GetSyncStatus()
	if err != nil {
		t.Fatalf("GetSyncStatus() error = %v", err)
	}
	if status.Status != "failed" || status.Pending != 3 || status.LastError != "timeout" {
		t.Errorf("status = %+v", status)
	}
}

func TestRemoteStore_ProductsRoundTrip(t *testing.T) {
	ctx := context.Background()
	remote := openTestRemote(t)

	p := models.Product{ID: "2", Name: "French Fries", Price: 10000, Cost: 5000, Stock: 40,
		Variants: models.Variants{{ID: "L", Name: "Large", Price: 3000}}}
	if err := remote.UpsertProduct(ctx, p); err != nil {
		t.Fatalf("UpsertProduct() error = %v", err)
	}
	if err := remote.UpsertProduct(ctx, models.Product{ID: "1", Name: "Banana Roll Coklat", Stock: 50}); err != nil {
		t.Fatalf("UpsertProduct() error = %v", err)
	}
	p.Stock = 38
	if err := remote.UpsertProduct(ctx, p); err != nil {
		t.Fatalf("UpsertProduct(update) error = %v", err)
	}

	products, err := remote.SelectProducts(ctx)
	if err != nil {
		t.Fatalf("SelectProducts() error = %v", err)
	}
	if len(products) != 2 || products[0].Name != "Banana Roll Coklat" {
		t.Fatalf("products = %+v, want 2 ordered by name", products)
	}
	if products[1].Stock != 38 || len(products[1].Variants) != 1 {
		t.Errorf("updated product = %+v", products[1])
	}

	if err := remote.DeleteProduct(ctx, "1"); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	products, _ = remote.SelectProducts(ctx)
	if len(products) != 1 {
		t.Errorf("len(products) after delete = %d, want 1", len(products))
	}
}

func TestRemoteStore_Transactions(t *testing.T) {
	ctx := context.Background()
	remote := openTestRemote(t)
	now := time.Now().UTC()

	older := models.Order{ID: "ORD-1", Items: models.Items{{Key: models.ProductKey("1"), Name: "Banana", Price: 10000, Cost: 6000, Qty: 2}},
		Total: 20000, TotalCost: 12000, Profit: 8000, Status: models.OrderStatusNew, Type: models.OrderTypeDineIn, CreatedAt: now.Add(-time.Hour)}
	newer := models.Order{ID: "ONL-2", Status: models.OrderStatusNew, Type: models.OrderTypeOnline, CreatedAt: now}
	for _, o := range []models.Order{older, newer} {
		if err := remote.UpsertTransaction(ctx, o); err != nil {
			t.Fatalf("UpsertTransaction(%s) error = %v", o.ID, err)
		}
	}
	if err := remote.PatchTransactionStatus(ctx, "ORD-1", models.OrderStatusReady); err != nil {
		t.Fatalf("PatchTransactionStatus() error = %v", err)
	}

	orders, err := remote.SelectTransactions(ctx)
	if err != nil {
		t.Fatalf("SelectTransactions() error = %v", err)
	}
	if len(orders) != 2 || orders[0].ID != "ONL-2" {
		t.Fatalf("orders = %+v, want newest first", orders)
	}
	if orders[1].Status != models.OrderStatusReady || orders[1].Items[0].Qty != 2 || orders[1].Total != 20000 {
		t.Errorf("patched order = %+v", orders[1])
	}

	if err := remote.DeleteTransaction(ctx, "ONL-2"); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := remote.DeleteAllTransactions(ctx); err != nil {
		t.Fatalf("DeleteAllTransactions() error = %v", err)
	}
	orders, _ = remote.SelectTransactions(ctx)
	if len(orders) != 0 {
		t.Errorf("len(orders) = %d, want 0", len(orders))
	}
}

func TestRemoteStore_ExpensesAndUsers(t *testing.T) {
	ctx := context.Background()
	remote := openTestRemote(t)

	for _, e := range []models.Expense{
		{ID: "EXP-1", Type: models.ExpenseTypeExpense, Title: "Gas", Amount: 20000, FundSource: models.FundCapital, Date: "2026-03-01"},
		{ID: "EXP-2", Type: models.ExpenseTypeCapital, Title: "Modal", Amount: 5000000, Date: "2026-03-05"},
	} {
		if err := remote.UpsertExpense(ctx, e); err != nil {
			t.Fatalf("UpsertExpense() error = %v", err)
		}
	}
	expenses, err := remote.SelectExpenses(ctx)
	if err != nil {
		t.Fatalf("SelectExpenses() error = %v", err)
	}
	if len(expenses) != 2 || expenses[0].ID != "EXP-2" || expenses[1].FundSource != models.FundCapital {
		t.Errorf("expenses = %+v", expenses)
	}
	if err := remote.DeleteExpense(ctx, "EXP-1"); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}

	if err := remote.CreateUser(ctx, &models.User{Username: " Admin ", PasswordHash: "x", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	user, err := remote.FindUser(ctx, "ADMIN")
	if err != nil || user.Username != "admin" {
		t.Errorf("FindUser() = %+v, %v", user, err)
	}
	if _, err := remote.FindUser(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindUser(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestOpenRemote_Disabled(t *testing.T) {
	_, err := OpenRemote(context.Background(), config.RemoteConfig{})
	if !errors.Is(err, ErrRemoteDisabled) {
		t.Errorf("OpenRemote(empty) error = %v, want ErrRemoteDisabled", err)
	}
}
