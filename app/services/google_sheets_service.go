package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"CamuPos/app/config"
)

// ErrSheetsDisabled is returned when no spreadsheet is configured
var ErrSheetsDisabled = errors.New("Google Sheets export is not configured")

var sheetHeaders = []interface{}{
	"tanggal",
	"jumlah_pesanan",
	"porsi_terjual",
	"omzet",
	"hpp",
	"laba_kotor",
	"pengeluaran",
	"laba_bersih",
	"tunai",
	"qris",
	"terlaris",
}

// SheetValues is the slice of the Sheets API the exporter needs
type SheetValues interface {
	Get(ctx context.Context, rng string) ([][]interface{}, error)
	Update(ctx context.Context, rng string, rows [][]interface{}) error
	Append(ctx context.Context, rng string, rows [][]interface{}) error
}

type sheetsAPI struct {
	srv           *sheets.Service
	spreadsheetID string
}

func (a *sheetsAPI) Get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := a.srv.Spreadsheets.Values.Get(a.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a *sheetsAPI) Update(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := a.srv.Spreadsheets.Values.Update(a.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (a *sheetsAPI) Append(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := a.srv.Spreadsheets.Values.Append(a.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

// NewSheetValues connects to the spreadsheet with a service account key file
func NewSheetValues(ctx context.Context, cfg config.SheetsConfig) (SheetValues, error) {
	if !cfg.Enabled() {
		return nil, ErrSheetsDisabled
	}
	key, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, key, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return &sheetsAPI{srv: srv, spreadsheetID: cfg.SpreadsheetID}, nil
}

// SheetsStatus is the outcome of the last export
type SheetsStatus struct {
	LastSyncAt     *time.Time `json:"lastSyncAt"`
	LastSyncStatus string     `json:"lastSyncStatus"`
	LastSyncError  string     `json:"lastSyncError,omitempty"`
	TotalSyncs     int        `json:"totalSyncs"`
}

// GoogleSheetsService writes one row per day to the report spreadsheet
type GoogleSheetsService struct {
	values    SheetValues
	sheetName string
	reports   *ReportService
	logger    *LoggerService

	mu     sync.Mutex
	status SheetsStatus
}

// NewGoogleSheetsService creates the exporter. A nil values client disables it.
func NewGoogleSheetsService(values SheetValues, cfg config.SheetsConfig, reports *ReportService, logger *LoggerService) *GoogleSheetsService {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	name := cfg.SheetName
	if name == "" {
		name = "Laporan Harian"
	}
	return &GoogleSheetsService{
		values:    values,
		sheetName: name,
		reports:   reports,
		logger:    logger,
		status:    SheetsStatus{LastSyncStatus: "pending"},
	}
}

// Enabled reports whether a spreadsheet is connected
func (s *GoogleSheetsService) Enabled() bool {
	return s.values != nil
}

// Status returns the outcome of the last export
func (s *GoogleSheetsService) Status() SheetsStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func reportRow(r DailyReport) []interface{} {
	return []interface{}{
		r.Date,
		r.Orders,
		r.Items,
		r.Revenue.Int64(),
		r.Cost.Int64(),
		r.Profit.Int64(),
		r.Expenses.Int64(),
		r.NetProfit.Int64(),
		r.Cash.Int64(),
		r.QRIS.Int64(),
		r.TopProduct,
	}
}

// lastColumn is the spreadsheet column letter of the final header
func lastColumn() string {
	return string(rune('A' + len(sheetHeaders) - 1))
}

// findExistingRowIndex returns the 1-based row holding date, or -1
func (s *GoogleSheetsService) findExistingRowIndex(ctx context.Context, date string) (int, error) {
	rows, err := s.values.Get(ctx, fmt.Sprintf("%s!A:A", s.sheetName))
	if err != nil {
		return -1, err
	}
	for i, row := range rows {
		if len(row) > 0 {
			if cell, ok := row[0].(string); ok && cell == date {
				return i + 1, nil
			}
		}
	}
	return -1, nil
}

func (s *GoogleSheetsService) ensureHeaders(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:%s1", s.sheetName, lastColumn())
	rows, err := s.values.Get(ctx, rng)
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) < len(sheetHeaders) {
		return s.values.Update(ctx, rng, [][]interface{}{sheetHeaders})
	}
	return nil
}

// SendReport upserts the row for r.Date
func (s *GoogleSheetsService) SendReport(ctx context.Context, r DailyReport) error {
	if !s.Enabled() {
		return ErrSheetsDisabled
	}
	if err := s.ensureHeaders(ctx); err != nil {
		return fmt.Errorf("failed to ensure headers: %w", err)
	}
	rowIndex, err := s.findExistingRowIndex(ctx, r.Date)
	if err != nil {
		return fmt.Errorf("failed to check existing row: %w", err)
	}

	rows := [][]interface{}{reportRow(r)}
	if rowIndex > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", s.sheetName, rowIndex, lastColumn(), rowIndex)
		if err := s.values.Update(ctx, rng, rows); err != nil {
			return fmt.Errorf("unable to update data: %w", err)
		}
		return nil
	}
	if err := s.values.Append(ctx, fmt.Sprintf("%s!A:%s", s.sheetName, lastColumn()), rows); err != nil {
		return fmt.Errorf("unable to append data: %w", err)
	}
	return nil
}

// SyncDay exports the report of the given day and records the outcome
func (s *GoogleSheetsService) SyncDay(ctx context.Context, day time.Time) error {
	err := s.SendReport(ctx, s.reports.Daily(day))

	s.mu.Lock()
	now := time.Now()
	s.status.LastSyncAt = &now
	if err != nil {
		s.status.LastSyncStatus = "error"
		s.status.LastSyncError = err.Error()
	} else {
		s.status.LastSyncStatus = "success"
		s.status.LastSyncError = ""
		s.status.TotalSyncs++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.LogError("Google Sheets sync failed", err, "date="+day.Format("2006-01-02"))
		return err
	}
	s.logger.LogInfo("Google Sheets sync completed", "date="+day.Format("2006-01-02"))
	return nil
}

// SyncNow exports today's report
func (s *GoogleSheetsService) SyncNow(ctx context.Context) error {
	return s.SyncDay(ctx, s.reports.today())
}
