package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the kind of thing a menu item is.
type Category string

const (
	CategoryPizza    Category = "pizza"
	CategorySide     Category = "side"
	CategoryMain     Category = "main"
	CategoryKids     Category = "kids"
	CategoryDessert  Category = "dessert"
	CategoryBeverage Category = "beverage"
	CategoryDip      Category = "dip"
	CategorySauce    Category = "sauce"
	CategoryCrust    Category = "crust"
	CategoryDeal     Category = "deal"
)

// Categories lists every item category in display order.
var Categories = []Category{
	CategoryPizza, CategorySide, CategoryMain, CategoryKids, CategoryDessert,
	CategoryBeverage, CategoryDip, CategorySauce, CategoryCrust,
}

// Variant is a sellable size of a menu item.
type Variant struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// MenuItem is a catalog row. Items without variants sell at BasePrice.
type MenuItem struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	Section     string          `json:"section"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Variants    []Variant       `json:"variants,omitempty"`
}

// PriceFor resolves the price of a variant, matched case-insensitively.
func (m MenuItem) PriceFor(variant string) (decimal.Decimal, string, bool) {
	if len(m.Variants) == 0 {
		if variant == "" {
			return m.BasePrice, "", true
		}
		return decimal.Zero, "", false
	}
	for _, v := range m.Variants {
		if strings.EqualFold(v.Name, variant) {
			return v.Price, v.Name, true
		}
	}
	return decimal.Zero, "", false
}

// VariantNames lists the variant names in catalog order.
func (m MenuItem) VariantNames() []string {
	names := make([]string, 0, len(m.Variants))
	for _, v := range m.Variants {
		names = append(names, v.Name)
	}
	return names
}

// Deal is a bundled offer sold at a fixed price.
type Deal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	ItemsIncluded string          `json:"itemsIncluded"`
	Availability  string          `json:"availability"`
	Price         decimal.Decimal `json:"price"`
}

// MenuCategory is a display grouping of the menu.
type MenuCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// RestaurantInfo describes the restaurant itself.
type RestaurantInfo struct {
	Name           string   `json:"name"`
	Country        string   `json:"country"`
	Description    string   `json:"description"`
	Services       []string `json:"services"`
	PaymentMethods []string `json:"paymentMethods"`
}

// RefKind says which catalog table an ItemRef points into.
type RefKind string

const (
	RefItem RefKind = "item"
	RefDeal RefKind = "deal"
)

// ItemRef identifies a sellable catalog entry.
type ItemRef struct {
	Kind RefKind `json:"kind"`
	ID   string  `json:"id"`
}
