package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 99

// CartLine is one selection in the cart. UnitPrice is a snapshot taken from the catalog.
type CartLine struct {
	Ref       ItemRef         `json:"ref"`
	Name      string          `json:"name"`
	Category  Category        `json:"category"`
	Variant   string          `json:"variant,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// LineTotal is unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DisplayName renders the name with its variant, e.g. "Wicked Blend (Small)".
func (l CartLine) DisplayName() string {
	if l.Variant != "" {
		return fmt.Sprintf("%s (%s)", l.Name, l.Variant)
	}
	return l.Name
}

func (l CartLine) sameSelection(ref ItemRef, variant string) bool {
	return l.Ref == ref && strings.EqualFold(l.Variant, variant)
}

// Cart is the ordered list of lines owned by one conversation. It has no stored total.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Merge appends line or adds its quantity to the existing line for the same selection.
// The cart is untouched when the result would break the quantity limits.
func (c *Cart) Merge(line CartLine) (CartLine, error) {
	if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
		return CartLine{}, &ValidationError{Field: "quantity", Reason: fmt.Sprintf("quantity must be between 1 and %d", MaxLineQuantity)}
	}
	for i := range c.Lines {
		if !c.Lines[i].sameSelection(line.Ref, line.Variant) {
			continue
		}
		if c.Lines[i].Quantity+line.Quantity > MaxLineQuantity {
			return CartLine{}, &ValidationError{Field: "quantity", Reason: fmt.Sprintf("at most %d of %s per order", MaxLineQuantity, line.DisplayName())}
		}
		c.Lines[i].Quantity += line.Quantity
		return c.Lines[i], nil
	}
	c.Lines = append(c.Lines, line)
	return line, nil
}

// Remove decrements the matching line by quantity, dropping it at zero.
// A quantity of zero or more than the line holds removes the whole line.
func (c *Cart) Remove(ref ItemRef, variant string, quantity int) (CartLine, error) {
	for i := range c.Lines {
		if !c.Lines[i].sameSelection(ref, variant) {
			continue
		}
		line := c.Lines[i]
		if quantity <= 0 || quantity >= line.Quantity {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return line, nil
		}
		c.Lines[i].Quantity -= quantity
		line.Quantity = quantity
		return line, nil
	}
	return CartLine{}, &NotFoundError{What: "cart line", Query: strings.TrimSpace(ref.ID + " " + variant)}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = nil
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount sums the quantities of all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total is recomputed from the lines on every call.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Summary renders a numbered listing of the lines followed by the total.
func (c Cart) Summary(currency string) string {
	if c.IsEmpty() {
		return "Your cart is empty."
	}
	var sb strings.Builder
	sb.WriteString("Your cart:\n")
	for i, l := range c.Lines {
		fmt.Fprintf(&sb, "%d. %s x%d - %s\n", i+1, l.DisplayName(), l.Quantity, FormatMoney(currency, l.LineTotal()))
	}
	fmt.Fprintf(&sb, "Total: %s", FormatMoney(currency, c.Total()))
	return sb.String()
}

// Clone returns a deep copy so a turn can mutate freely and commit or discard.
func (c Cart) Clone() Cart {
	if c.Lines == nil {
		return Cart{}
	}
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// FormatMoney renders an amount with the configured currency prefix.
func FormatMoney(currency string, amount decimal.Decimal) string {
	value := amount.StringFixed(2)
	if amount.Equal(amount.Truncate(0)) {
		value = amount.Truncate(0).String()
	}
	if currency == "" {
		return value
	}
	return currency + " " + value
}
