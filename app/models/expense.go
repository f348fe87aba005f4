package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExpenseType distinguishes spend from capital injections
type ExpenseType string

const (
	ExpenseTypeExpense ExpenseType = "expense"
	ExpenseTypeCapital ExpenseType = "capital"
)

// FundSource is where an expense was paid from
type FundSource string

const (
	FundRevenue FundSource = "revenue"
	FundCapital FundSource = "capital"
)

// legacy labels found in stored data
const (
	legacyFundRevenue = "Pendapatan"
	legacyFundCapital = "Modal Awal"
)

// ParseFundSource maps current and legacy labels. Unknown values are revenue.
func ParseFundSource(raw string) FundSource {
	switch raw {
	case string(FundCapital), legacyFundCapital:
		return FundCapital
	case "":
		return ""
	}
	return FundRevenue
}

func (f *FundSource) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*f = ""
		return nil
	}
	*f = ParseFundSource(*raw)
	return nil
}

func (f *FundSource) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*f = ""
	case string:
		*f = ParseFundSource(v)
	case []byte:
		*f = ParseFundSource(string(v))
	default:
		return fmt.Errorf("unsupported fund source type %T", value)
	}
	return nil
}

func (f FundSource) Value() (driver.Value, error) {
	return string(f), nil
}

// Expense is a ledger entry. Capital entries have no fund source.
type Expense struct {
	ID         string      `gorm:"primaryKey;size:64" json:"id"`
	Type       ExpenseType `gorm:"size:16" json:"type"`
	Title      string      `json:"title"`
	Amount     Rupiah      `json:"amount"`
	Category   string      `gorm:"size:32" json:"category"`
	FundSource FundSource  `gorm:"size:16" json:"fundSource,omitempty"`
	Notes      string      `gorm:"type:text" json:"notes,omitempty"`
	Date       string      `gorm:"size:10;index" json:"date"` // YYYY-MM-DD
	CreatedAt  time.Time   `json:"createdAt"`
}

// TableName keeps the remote table name stable
func (Expense) TableName() string {
	return "expenses"
}

// IsCapital reports a capital injection
func (e Expense) IsCapital() bool {
	return e.Type == ExpenseTypeCapital
}

// IsOperating reports spend paid out of revenue, which reduces net profit
func (e Expense) IsOperating() bool {
	return !e.IsCapital() && e.FundSource != FundCapital
}

// SpendsCapital reports spend paid out of the initial capital
func (e Expense) SpendsCapital() bool {
	return !e.IsCapital() && e.FundSource == FundCapital
}

// Normalize fills the type and fund source defaults
func (e Expense) Normalize() Expense {
	if e.Type == "" {
		e.Type = ExpenseTypeExpense
	}
	if e.IsCapital() {
		e.FundSource = ""
	} else if e.FundSource == "" {
		e.FundSource = FundRevenue
	}
	return e
}

// ExpensePatch carries the fields of an UpdateExpense action
type ExpensePatch struct {
	ID         string       `json:"id"`
	Type       *ExpenseType `json:"type,omitempty"`
	Title      *string      `json:"title,omitempty"`
	Amount     *Rupiah      `json:"amount,omitempty"`
	Category   *string      `json:"category,omitempty"`
	FundSource *FundSource  `json:"fundSource,omitempty"`
	Notes      *string      `json:"notes,omitempty"`
	Date       *string      `json:"date,omitempty"`
}

// Apply returns e with the patch merged on top
func (patch ExpensePatch) Apply(e Expense) Expense {
	if patch.Type != nil {
		e.Type = *patch.Type
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.FundSource != nil {
		e.FundSource = *patch.FundSource
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	return e.Normalize()
}
