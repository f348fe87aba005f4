package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// LineKey identifies a cart line: a product, optionally narrowed to one of
// its variants. On the wire it keeps the legacy "<productId>-<variantId>" form.
type LineKey struct {
	ProductID string
	VariantID string
}

// ProductKey is the key of a plain product line
func ProductKey(id FlexID) LineKey {
	return LineKey{ProductID: id.String()}
}

// ParseLineKey splits a legacy composite id at the first '-'
func ParseLineKey(raw string) LineKey {
	if i := strings.IndexByte(raw, '-'); i >= 0 {
		return LineKey{ProductID: raw[:i], VariantID: raw[i+1:]}
	}
	return LineKey{ProductID: raw}
}

// BaseProductID is the id of the catalog product this line decrements
func (k LineKey) BaseProductID() FlexID {
	return FlexID(k.ProductID)
}

func (k LineKey) String() string {
	if k.VariantID == "" {
		return k.ProductID
	}
	return k.ProductID + "-" + k.VariantID
}

func (k LineKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *LineKey) UnmarshalJSON(data []byte) error {
	var id FlexID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*k = ParseLineKey(id.String())
	return nil
}

// CartLine is a product snapshot plus quantity. Once copied into an order
// it is frozen: later catalog edits do not change it.
type CartLine struct {
	Key         LineKey `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category,omitempty"`
	Price       Rupiah  `json:"price"`
	Cost        Rupiah  `json:"cost"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Qty         int     `json:"qty"`
}

// NewCartLine snapshots p (and variant v, when given) with qty 1
func NewCartLine(p Product, v *Variant) CartLine {
	line := CartLine{
		Key:         ProductKey(p.ID),
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Cost:        p.Cost,
		Description: p.Description,
		Image:       p.Image,
		Qty:         1,
	}
	if v != nil {
		line.Key.VariantID = v.ID.String()
		line.Name = p.Name + " (" + v.Name + ")"
		line.Price = p.Price + v.Price
	}
	return line
}

// Subtotal is price × qty
func (l CartLine) Subtotal() Rupiah {
	return l.Price * Rupiah(l.Qty)
}

// CostTotal is cost × qty
func (l CartLine) CostTotal() Rupiah {
	return l.Cost * Rupiah(l.Qty)
}

// Items is an order's frozen line list, stored as a JSON column
type Items []CartLine

func (it *Items) Scan(value interface{}) error {
	return scanJSON(value, it)
}

func (it Items) Value() (driver.Value, error) {
	if it == nil {
		return "[]", nil
	}
	return valueJSON(it)
}

// Totals returns Σprice·qty, Σcost·qty and their difference
func (it Items) Totals() (total, totalCost, profit Rupiah) {
	for _, l := range it {
		total += l.Subtotal()
		totalCost += l.CostTotal()
	}
	return total, totalCost, total - totalCost
}

// Clone copies the slice so the snapshot can't be aliased
func (it Items) Clone() Items {
	if it == nil {
		return nil
	}
	return append(Items(nil), it...)
}
