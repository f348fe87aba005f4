package models

import (
	"database/sql/driver"
	"strings"
)

// Product categories
const (
	CategoryFood  = "makanan"
	CategoryDrink = "minuman"
)

// DefaultStock is assumed for products stored without a stock field
const DefaultStock = 100

// Product represents a sellable menu item
type Product struct {
	ID          FlexID   `gorm:"primaryKey;size:64" json:"id"`
	Name        string   `gorm:"not null" json:"name"`
	Category    string   `gorm:"size:32" json:"category"`
	Price       Rupiah   `json:"price"`
	Cost        Rupiah   `json:"cost"` // HPP, unit cost basis
	Description string   `gorm:"type:text" json:"description"`
	Image       string   `gorm:"type:text" json:"image"` // emoji glyph or asset path
	Popular     bool     `json:"popular"`
	Stock       int      `json:"stock"`
	Variants    Variants `gorm:"type:text" json:"variants,omitempty"`
}

// TableName keeps the remote table name stable
func (Product) TableName() string {
	return "products"
}

// HasImagePath reports whether Image points to an asset rather than a glyph
func (p Product) HasImagePath() bool {
	return strings.HasPrefix(p.Image, "/")
}

// Variant returns the variant with the given id
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID.String() == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Margin is the per-unit contribution
func (p Product) Margin() Rupiah {
	return p.Price - p.Cost
}

// Variant is a priced option of a product (size, topping)
type Variant struct {
	ID    FlexID `json:"id"`
	Name  string `json:"name"`
	Price Rupiah `json:"price"` // added to the product price
}

// Variants is stored as a JSON column
type Variants []Variant

func (v *Variants) Scan(value interface{}) error {
	return scanJSON(value, v)
}

func (v Variants) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	return valueJSON(v)
}

// ProductPatch carries the fields of an UpdateProduct action. Nil fields
// are left untouched.
type ProductPatch struct {
	ID          FlexID    `json:"id"`
	Name        *string   `json:"name,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Price       *Rupiah   `json:"price,omitempty"`
	Cost        *Rupiah   `json:"cost,omitempty"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `json:"image,omitempty"`
	Popular     *bool     `json:"popular,omitempty"`
	Stock       *int      `json:"stock,omitempty"`
	Variants    *Variants `json:"variants,omitempty"`
}

// Apply returns p with the patch merged on top
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Cost != nil {
		p.Cost = *patch.Cost
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Popular != nil {
		p.Popular = *patch.Popular
	}
	if patch.Stock != nil {
		stock := *patch.Stock
		if stock < 0 {
			stock = 0
		}
		p.Stock = stock
	}
	if patch.Variants != nil {
		p.Variants = append(Variants(nil), (*patch.Variants)...)
	}
	return p
}
