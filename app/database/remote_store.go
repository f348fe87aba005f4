package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"CamuPos/app/models"
)

var (
	// ErrRemoteDisabled is returned when no remote database is configured
	ErrRemoteDisabled = errors.New("remote database not configured")
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("record not found")
)

// RemoteStore is the table-level view of the shared database. Every write is
// keyed by the row's string id and carries final values.
type RemoteStore struct {
	db *gorm.DB
}

// NewRemoteStore wraps an open connection
func NewRemoteStore(db *gorm.DB) *RemoteStore {
	return &RemoteStore{db: db}
}

// SelectProducts returns all products ordered by name
func (r *RemoteStore) SelectProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	return products, err
}

// SelectTransactions returns all orders, newest first
func (r *RemoteStore) SelectTransactions(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// SelectExpenses returns all ledger entries, latest date first
func (r *RemoteStore) SelectExpenses(ctx context.Context) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.WithContext(ctx).Order("date DESC").Order("created_at DESC").Find(&expenses).Error
	return expenses, err
}

func (r *RemoteStore) upsert(ctx context.Context, row interface{}) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// UpsertProduct writes a product row
func (r *RemoteStore) UpsertProduct(ctx context.Context, p models.Product) error {
	return r.upsert(ctx, &p)
}

// UpsertTransaction writes an order row
func (r *RemoteStore) UpsertTransaction(ctx context.Context, o models.Order) error {
	return r.upsert(ctx, &o)
}

// UpsertExpense writes a ledger row
func (r *RemoteStore) UpsertExpense(ctx context.Context, e models.Expense) error {
	return r.upsert(ctx, &e)
}

// DeleteProduct removes a product row
func (r *RemoteStore) DeleteProduct(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// DeleteTransaction removes an order row
func (r *RemoteStore) DeleteTransaction(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}

// DeleteExpense removes a ledger row
func (r *RemoteStore) DeleteExpense(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Expense{}).Error
}

// PatchTransactionStatus updates only the status column
func (r *RemoteStore) PatchTransactionStatus(ctx context.Context, id string, status models.OrderStatus) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status).Error
}

// DeleteAllTransactions removes every order row. The always-true filter
// keeps the statement from being rejected as an unscoped delete.
func (r *RemoteStore) DeleteAllTransactions(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("id <> ?", "0").Delete(&models.Order{}).Error
}

// FindUser looks up an account by username, case-insensitively
func (r *RemoteStore) FindUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts an account
func (r *RemoteStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	return r.db.WithContext(ctx).Create(user).Error
}
