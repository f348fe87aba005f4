package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// LocalDB is the on-device SQLite store: the state mirror blob plus the
// replication history.
type LocalDB struct {
	db     *gorm.DB
	dbPath string
}

// OpenLocalDB opens (creating if needed) the SQLite file at dbPath
func OpenLocalDB(dbPath string) (*LocalDB, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open SQLite connection (CGO-free driver)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to local database: %w", err)
	}

	local := &LocalDB{db: db, dbPath: dbPath}
	if err := local.runMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run local migrations: %w", err)
	}
	return local, nil
}

func (l *LocalDB) runMigrations() error {
	return l.db.AutoMigrate(
		&LocalBlob{},
		&SyncStatus{},
		&SyncLog{},
	)
}

// LocalBlob is one durable key/value entry
type LocalBlob struct {
	Key       string    `gorm:"column:blob_key;primaryKey;size:128"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time
}

// SyncStatus tracks the latest replication outcome
type SyncStatus struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	LastSyncAt *time.Time `json:"last_sync_at"`
	Status     string     `json:"status"` // "synced", "failed", "disabled"
	Pending    int        `json:"pending"`
	LastError  string     `json:"last_error"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SyncLog is one replicated remote call
type SyncLog struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	IntentID string    `gorm:"size:36;index" json:"intent_id"`
	Action   string    `gorm:"size:32" json:"action"`
	Table    string    `gorm:"column:table_name;size:32" json:"table"`
	Kind     string    `gorm:"size:16" json:"kind"`
	RowID    string    `gorm:"size:64" json:"row_id"`
	Status   string    `gorm:"size:16" json:"status"` // "success", "failed"
	Error    string    `json:"error"`
	SyncedAt time.Time `json:"synced_at"`
}

// Get reads a blob. The bool is false when the key was never written.
func (l *LocalDB) Get(key string) (string, bool, error) {
	var blob LocalBlob
	err := l.db.Where("blob_key = ?", key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return blob.Value, true, nil
}

// Set writes a blob, replacing any previous value
func (l *LocalDB) Set(key, value string) error {
	blob := LocalBlob{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
}

// UpdateSyncStatus records the outcome of the latest replication
func (l *LocalDB) UpdateSyncStatus(status string, lastError string, pending int) error {
	var syncStatus SyncStatus
	l.db.FirstOrCreate(&syncStatus)

	now := time.Now()
	syncStatus.LastSyncAt = &now
	syncStatus.Status = status
	syncStatus.LastError = lastError
	syncStatus.Pending = pending
	syncStatus.UpdatedAt = now

	return l.db.Save(&syncStatus).Error
}

// GetSyncStatus gets current sync status
func (l *LocalDB) GetSyncStatus() (*SyncStatus, error) {
	var status SyncStatus
	err := l.db.FirstOrCreate(&status).Error
	return &status, err
}

// LogSync appends a replication entry
func (l *LocalDB) LogSync(entry SyncLog) {
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now()
	}
	l.db.Create(&entry)
}

// GetSyncLogs returns the latest entries, newest first
func (l *LocalDB) GetSyncLogs(limit int) ([]SyncLog, error) {
	var logs []SyncLog
	err := l.db.Order("synced_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// ClearSyncLogs removes entries older than daysOld days
func (l *LocalDB) ClearSyncLogs(daysOld int) error {
	cutoffDate := time.Now().AddDate(0, 0, -daysOld)
	return l.db.Where("synced_at < ?", cutoffDate).Delete(&SyncLog{}).Error
}

// Path is the SQLite file location
func (l *LocalDB) Path() string {
	return l.dbPath
}

// Close closes the local database connection
func (l *LocalDB) Close() error {
	if l.db != nil {
		sqlDB, err := l.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
