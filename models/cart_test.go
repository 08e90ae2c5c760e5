package models

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id, variant string, qty int, price int64) CartLine {
	return CartLine{
		Ref:       ItemRef{Kind: RefItem, ID: id},
		Name:      id,
		Category:  CategoryPizza,
		Variant:   variant,
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(price),
	}
}

func TestCartMergeSameSelection(t *testing.T) {
	var c Cart

	_, err := c.Merge(line("wicked", "Small", 1, 949))
	require.NoError(t, err)
	merged, err := c.Merge(line("wicked", "small", 2, 949))
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, merged.Quantity)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(2847)))

	_, err = c.Merge(line("wicked", "Large", 1, 1518))
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
}

func TestCartMergeRejectsBadQuantity(t *testing.T) {
	var c Cart
	_, err := c.Merge(line("bread", "", 0, 299))
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "quantity", vErr.Field)

	_, err = c.Merge(line("bread", "", 98, 299))
	require.NoError(t, err)
	_, err = c.Merge(line("bread", "", 2, 299))
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 98, c.Lines[0].Quantity, "failed merge must not change the line")
}

func TestCartRemove(t *testing.T) {
	var c Cart
	_, _ = c.Merge(line("wings", "", 3, 549))

	removed, err := c.Remove(ItemRef{Kind: RefItem, ID: "wings"}, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed.Quantity)
	assert.Equal(t, 2, c.Lines[0].Quantity)

	removed, err = c.Remove(ItemRef{Kind: RefItem, ID: "wings"}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, removed.Quantity)
	assert.True(t, c.IsEmpty())

	_, err = c.Remove(ItemRef{Kind: RefItem, ID: "wings"}, "", 1)
	var nfErr *NotFoundError
	assert.True(t, errors.As(err, &nfErr))
}

func TestCartTotalNeverDrifts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d"}
	variants := []string{"", "Small", "Large"}
	prices := map[string]int64{"a": 299, "b": 949, "c": 1599, "d": 50}

	var c Cart
	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		variant := variants[rng.Intn(len(variants))]
		qty := rng.Intn(4) + 1
		if rng.Intn(3) == 0 {
			_, _ = c.Remove(ItemRef{Kind: RefItem, ID: id}, variant, qty)
		} else {
			_, _ = c.Merge(line(id, variant, qty, prices[id]))
		}

		expected := decimal.Zero
		for _, l := range c.Lines {
			expected = expected.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		require.True(t, expected.Equal(c.Total()), "step %d: want %s got %s", i, expected, c.Total())
	}
}

func TestCartClearIsIdempotent(t *testing.T) {
	var c Cart
	_, _ = c.Merge(line("a", "", 2, 100))
	_, _ = c.Merge(line("b", "Large", 1, 1500))

	c.Clear()
	c.Clear()

	assert.True(t, c.Total().IsZero())
	assert.Equal(t, "Your cart is empty.", c.Summary("Rs."))
	assert.Equal(t, 0, c.ItemCount())
}

func TestCartSummaryDoesNotMutate(t *testing.T) {
	var c Cart
	_, _ = c.Merge(line("Wicked Blend", "Small", 1, 949))
	_, _ = c.Merge(line("Garlic Bread", "", 2, 299))

	before := c.Clone()
	summary := c.Summary("Rs.")

	assert.Equal(t, "Your cart:\n1. Wicked Blend (Small) x1 - Rs. 949\n2. Garlic Bread x2 - Rs. 598\nTotal: Rs. 1547", summary)
	assert.Equal(t, before, c)
}

func TestCartCloneIsDeep(t *testing.T) {
	var c Cart
	_, _ = c.Merge(line("a", "", 1, 100))

	cp := c.Clone()
	cp.Lines[0].Quantity = 5

	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "Rs. 949", FormatMoney("Rs.", decimal.NewFromInt(949)))
	assert.Equal(t, "Rs. 12.50", FormatMoney("Rs.", decimal.RequireFromString("12.5")))
	assert.Equal(t, "7", FormatMoney("", decimal.NewFromInt(7)))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "0300****567", MaskPhone("03001234567"))
	assert.Equal(t, "123", MaskPhone("123"))
}
