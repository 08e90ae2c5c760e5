// File: services/intelligence/checkout.go
package ai

import (
	"fmt"
	"regexp"
	"strings"

	"broadway/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z ]+$`)
	phonePattern = regexp.MustCompile(`^(\+?92|0)?3\d{2}\d{7}$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "")
	titleCaser   = cases.Title(language.English)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("customer_name", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pk_mobile", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// NormalizeName collapses whitespace, validates and title-cases a customer name.
func NormalizeName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if err := validate.Var(name, "required,min=2,max=50,customer_name"); err != nil {
		return "", &models.ValidationError{Field: "name", Reason: "please share a name of 2 to 50 letters"}
	}
	return titleCaser.String(strings.ToLower(name)), nil
}

// NormalizePhone strips spaces and dashes and validates a Pakistani mobile number.
func NormalizePhone(raw string) (string, error) {
	phone := phoneNoise.Replace(strings.TrimSpace(raw))
	if err := validate.Var(phone, "required,pk_mobile"); err != nil {
		return "", &models.ValidationError{Field: "phone", Reason: "please share a valid mobile number like 03001234567"}
	}
	return phone, nil
}

// checkoutStep is what the FSM decided for this turn.
type checkoutStep struct {
	directive string
	err       error
	place     bool
}

// nextCheckoutStage walks the guards in order and returns the first stage still pending.
func nextCheckoutStage(st *models.ConversationState) models.Stage {
	switch {
	case st.CustomerName == "":
		return models.StageCollectingName
	case st.CustomerPhone == "":
		return models.StageCollectingPhone
	default:
		return models.StageAwaitingConfirmation
	}
}

// promptFor is the directive that asks for whatever stage st is now in.
func promptFor(st *models.ConversationState, currency string) string {
	switch st.Stage {
	case models.StageCollectingName:
		return "Ask the customer for their name to complete the order."
	case models.StageCollectingPhone:
		return fmt.Sprintf("Thank %s and ask for their mobile phone number.", st.CustomerName)
	case models.StageAwaitingConfirmation:
		return fmt.Sprintf("Read back the order for %s (phone %s), cart total %s, and ask them to confirm with yes or cancel with no.",
			st.CustomerName, models.MaskPhone(st.CustomerPhone), models.FormatMoney(currency, st.Cart.Total()))
	default:
		return ""
	}
}

// startCheckout moves a non-empty cart into the first pending checkout stage.
func startCheckout(st *models.ConversationState, currency string) checkoutStep {
	if st.Cart.IsEmpty() {
		if st.Stage == models.StagePlaced {
			st.Stage = models.StageIdle
		}
		return checkoutStep{
			directive: "The cart is empty, so nothing can be checked out. Ask what they would like to order.",
			err:       &models.ValidationError{Field: "cart", Reason: "your cart is empty"},
		}
	}
	st.Stage = nextCheckoutStage(st)
	return checkoutStep{directive: promptFor(st, currency)}
}

// provideFields stores the name and phone found in an utterance and advances checkout.
func provideFields(st *models.ConversationState, in Intent, currency string) checkoutStep {
	var saved []string
	if in.Name != "" {
		name, err := NormalizeName(in.Name)
		if err != nil {
			return checkoutStep{directive: "The name given was not valid. Ask again for a name of 2 to 50 letters.", err: err}
		}
		st.CustomerName = name
		saved = append(saved, "name "+name)
	}
	if in.Phone != "" {
		phone, err := NormalizePhone(in.Phone)
		if err != nil {
			return checkoutStep{directive: "The phone number was not valid. Ask again for a Pakistani mobile number such as 03001234567.", err: err}
		}
		st.CustomerPhone = phone
		saved = append(saved, "phone "+models.MaskPhone(phone))
	}
	noted := "Noted the customer's " + strings.Join(saved, " and ") + "."

	if !st.Stage.InCheckout() {
		return checkoutStep{directive: noted + " Acknowledge it and help them continue ordering."}
	}
	if st.Cart.IsEmpty() {
		st.Stage = models.StageIdle
		return checkoutStep{directive: noted + " The cart is empty; ask what they would like to order."}
	}
	st.Stage = nextCheckoutStage(st)
	return checkoutStep{directive: noted + " " + promptFor(st, currency)}
}

// confirmOrder checks every precondition; only a confirmation at awaiting_confirmation places the order.
func confirmOrder(st *models.ConversationState, currency string) checkoutStep {
	if st.Cart.IsEmpty() {
		if st.Stage != models.StagePlaced {
			st.Stage = models.StageIdle
		}
		return checkoutStep{
			directive: "There is nothing in the cart to confirm. Ask what they would like to order.",
			err:       &models.ValidationError{Field: "cart", Reason: "your cart is empty"},
		}
	}
	if st.CustomerName == "" {
		st.Stage = models.StageCollectingName
		return checkoutStep{
			directive: "The order cannot be confirmed without a name. " + promptFor(st, currency),
			err:       &models.ValidationError{Field: "name", Reason: "a name is required to place the order"},
		}
	}
	if st.CustomerPhone == "" {
		st.Stage = models.StageCollectingPhone
		return checkoutStep{
			directive: "The order cannot be confirmed without a phone number. " + promptFor(st, currency),
			err:       &models.ValidationError{Field: "phone", Reason: "a phone number is required to place the order"},
		}
	}
	if st.Stage != models.StageAwaitingConfirmation {
		st.Stage = models.StageAwaitingConfirmation
		return checkoutStep{directive: promptFor(st, currency)}
	}
	return checkoutStep{place: true}
}

// cancelCheckout backs out of checkout but keeps the cart.
func cancelCheckout(st *models.ConversationState) checkoutStep {
	if !st.Stage.InCheckout() {
		return checkoutStep{directive: "There is no checkout in progress. Offer to help with the menu."}
	}
	st.Stage = models.StageIdle
	return checkoutStep{directive: "Checkout was cancelled; the cart is kept. Ask if they want to change anything."}
}

// afterCartChange applies the stage rules for a successful cart mutation.
func afterCartChange(st *models.ConversationState) {
	switch st.Stage {
	case models.StageAwaitingConfirmation, models.StagePlaced:
		st.Stage = models.StageIdle
	}
	if st.Cart.IsEmpty() && st.Stage != models.StageIdle {
		st.Stage = models.StageIdle
	}
}
