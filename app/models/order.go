package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents the pickup stage of an order
type OrderStatus string

const (
	OrderStatusNew   OrderStatus = "new"
	OrderStatusReady OrderStatus = "ready"
	OrderStatusDone  OrderStatus = "done"
)

// legacy stored value, read as new
const orderStatusCompleted = "completed"

func (s OrderStatus) String() string {
	return string(s)
}

// Normalize maps legacy and empty values onto the current vocabulary
func (s OrderStatus) Normalize() OrderStatus {
	switch s {
	case "", orderStatusCompleted:
		return OrderStatusNew
	}
	return s
}

// Valid reports whether s is one of the known stages
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusReady, OrderStatusDone:
		return true
	}
	return false
}

func (s OrderStatus) rank() int {
	switch s.Normalize() {
	case OrderStatusNew:
		return 0
	case OrderStatusReady:
		return 1
	case OrderStatusDone:
		return 2
	}
	return -1
}

// CanTransition reports whether an admin may move an order from s to next.
// Stages only move forward.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if !s.Normalize().Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = OrderStatus(raw).Normalize()
	return nil
}

func (s *OrderStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = OrderStatusNew
	case string:
		*s = OrderStatus(v).Normalize()
	case []byte:
		*s = OrderStatus(string(v)).Normalize()
	default:
		return fmt.Errorf("unsupported status type %T", value)
	}
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentMethod is how the customer settles the order
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentQRIS   PaymentMethod = "qris"
	PaymentUnpaid PaymentMethod = "unpaid"
)

// OrderType is where the order is consumed
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeOnline   OrderType = "online"
)

// Order id prefixes by origin
const (
	CounterOrderPrefix = "ORD-"
	OnlineOrderPrefix  = "ONL-"
)

// WalkInCustomer is the name recorded for anonymous counter sales
const WalkInCustomer = "Walk-in"

// OnlineCashier is the cashier name recorded for storefront orders
const OnlineCashier = "System"

// Order represents a recorded sale. Items are a frozen snapshot; only Status
// changes after creation, except through the edit flow.
type Order struct {
	ID            string        `gorm:"primaryKey;size:64" json:"id"`
	Items         Items         `gorm:"type:text" json:"items"`
	Total         Rupiah        `json:"total"`
	TotalCost     Rupiah        `json:"totalCost"`
	Profit        Rupiah        `json:"profit"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `gorm:"size:32" json:"customerPhone"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`
	PaymentMethod PaymentMethod `gorm:"size:16" json:"paymentMethod"`
	CashReceived  *Rupiah       `json:"cashReceived"`
	Change        *Rupiah       `json:"change"`
	Type          OrderType     `gorm:"column:order_type;size:16" json:"type"`
	Status        OrderStatus   `gorm:"size:16;index" json:"status"`
	CashierName   string        `gorm:"size:64" json:"cashierName,omitempty"`
	CreatedAt     time.Time     `gorm:"index" json:"createdAt"`
}

// TableName keeps the remote table name stable
func (Order) TableName() string {
	return "transactions"
}

// IsOnline reports whether the order came from the storefront
func (o Order) IsOnline() bool {
	return o.Type == OrderTypeOnline || strings.HasPrefix(o.ID, OnlineOrderPrefix)
}

// PhoneDigits is the customer phone normalized for messaging
func (o Order) PhoneDigits() string {
	return NormalizePhone(o.CustomerPhone)
}

// Clone deep-copies the mutable parts of the order
func (o Order) Clone() Order {
	o.Items = o.Items.Clone()
	if o.CashReceived != nil {
		v := *o.CashReceived
		o.CashReceived = &v
	}
	if o.Change != nil {
		v := *o.Change
		o.Change = &v
	}
	return o
}

// Checkout is the customer and payment metadata of a counter sale
type Checkout struct {
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	Notes         string        `json:"notes,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CashReceived  *Rupiah       `json:"cashReceived,omitempty"`
	Change        *Rupiah       `json:"change,omitempty"`
	Type          OrderType     `json:"type"`
	CashierName   string        `json:"cashierName,omitempty"`
}

// OnlineCheckout is a storefront order whose lines were built outside the cart
type OnlineCheckout struct {
	Checkout
	Items Items `json:"items"`
}
