package ai

import (
	"testing"

	"broadway/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	name, err := NormalizeName("  ali   KHAN ")
	require.NoError(t, err)
	assert.Equal(t, "Ali Khan", name)

	for _, bad := range []string{"", "a", "R2D2", "Ali!", "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"} {
		_, err := NormalizeName(bad)
		var ve *models.ValidationError
		require.ErrorAs(t, err, &ve, bad)
		assert.Equal(t, "name", ve.Field)
	}
}

func TestNormalizePhone(t *testing.T) {
	good := map[string]string{
		"0300-1234567":  "03001234567",
		"0300 123 4567": "03001234567",
		"+923001234567": "+923001234567",
		"923211234567":  "923211234567",
		"3451234567":    "3451234567",
	}
	for in, want := range good {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"12345", "04001234567", "0300123456", "phone"} {
		_, err := NormalizePhone(bad)
		var ve *models.ValidationError
		require.ErrorAs(t, err, &ve, bad)
		assert.Equal(t, "phone", ve.Field)
	}
}

func cartWithBread() models.Cart {
	return models.Cart{Lines: []models.CartLine{{
		Ref:       models.ItemRef{Kind: models.RefItem, ID: "item_gbread"},
		Name:      "Garlic Bread",
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(299),
	}}}
}

func TestCheckoutWalksGuardsInOrder(t *testing.T) {
	st := models.NewConversationState("s")
	st.Cart = cartWithBread()

	step := startCheckout(st, "Rs.")
	assert.NoError(t, step.err)
	assert.Equal(t, models.StageCollectingName, st.Stage)

	step = provideFields(st, Intent{Name: "sara"}, "Rs.")
	assert.NoError(t, step.err)
	assert.Equal(t, models.StageCollectingPhone, st.Stage)

	step = provideFields(st, Intent{Phone: "03211234567"}, "Rs.")
	assert.NoError(t, step.err)
	assert.Equal(t, models.StageAwaitingConfirmation, st.Stage)
	assert.Contains(t, step.directive, "0321****567")
	assert.Contains(t, step.directive, "Rs. 299")

	step = confirmOrder(st, "Rs.")
	assert.True(t, step.place)
}

func TestConfirmOrderMovesToMissingField(t *testing.T) {
	st := models.NewConversationState("s")
	st.Cart = cartWithBread()
	st.CustomerName = "Sara"

	step := confirmOrder(st, "Rs.")
	var ve *models.ValidationError
	require.ErrorAs(t, step.err, &ve)
	assert.Equal(t, "phone", ve.Field)
	assert.Equal(t, models.StageCollectingPhone, st.Stage)
	assert.False(t, step.place)
}

func TestFieldsOutsideCheckoutAreJustStored(t *testing.T) {
	st := models.NewConversationState("s")

	step := provideFields(st, Intent{Name: "sara", Phone: "0321-1234567"}, "Rs.")
	assert.NoError(t, step.err)
	assert.Equal(t, models.StageIdle, st.Stage)
	assert.Equal(t, "Sara", st.CustomerName)
	assert.Equal(t, "03211234567", st.CustomerPhone)
}

func TestAfterCartChange(t *testing.T) {
	st := models.NewConversationState("s")
	st.Cart = cartWithBread()

	st.Stage = models.StageAwaitingConfirmation
	afterCartChange(st)
	assert.Equal(t, models.StageIdle, st.Stage)

	st.Stage = models.StagePlaced
	afterCartChange(st)
	assert.Equal(t, models.StageIdle, st.Stage)

	st.Stage = models.StageCollectingPhone
	afterCartChange(st)
	assert.Equal(t, models.StageCollectingPhone, st.Stage)

	st.Cart.Clear()
	afterCartChange(st)
	assert.Equal(t, models.StageIdle, st.Stage)
}
