// File: services/intelligence/intent.go
package ai

import (
	"regexp"
	"strings"

	"broadway/models"
	"broadway/services/catalog"
)

// IntentKind is the class of a customer utterance.
type IntentKind string

const (
	IntentBrowse         IntentKind = "browse"
	IntentAskDeal        IntentKind = "ask_deal"
	IntentAddItem        IntentKind = "add_item"
	IntentRemoveItem     IntentKind = "remove_item"
	IntentViewCart       IntentKind = "view_cart"
	IntentClearCart      IntentKind = "clear_cart"
	IntentCheckoutStart  IntentKind = "checkout_start"
	IntentProvideField   IntentKind = "provide_field"
	IntentConfirmOrder   IntentKind = "confirm_order"
	IntentCancelCheckout IntentKind = "cancel_checkout"
	IntentInfo           IntentKind = "info"
	IntentFallback       IntentKind = "fallback"
)

// Intent is a classified utterance plus whatever fields were pulled out of it.
type Intent struct {
	Kind     IntentKind
	Text     string
	Category models.Category
	Name     string
	Phone    string
}

var (
	phoneCandidate = regexp.MustCompile(`\+?\d[\d\s-]{8,14}\d`)
	nameCue        = regexp.MustCompile(`(?i)\b(?:my name is|name is|this is|call me|name's)\s+([a-z][a-z ]*)`)
	selfCue        = regexp.MustCompile(`(?i)^\s*(?:i am|i'm|im|it's|its)\s+([a-z][a-z ]*)`)
	nameStop       = regexp.MustCompile(`(?i)\s+(?:and|my|phone|number|mobile|cell)\b.*$`)
)

// phrase lists are matched as contiguous token runs.
var (
	yesPhrases      = phrases("yes", "yeah", "yep", "yup", "sure", "ok", "okay", "correct", "confirm", "go ahead", "place it", "sounds good", "do it")
	noPhrases       = phrases("no", "nope", "cancel", "not yet", "wait", "hold on", "never mind", "nevermind")
	clearPhrases    = phrases("clear cart", "clear my cart", "clear the cart", "empty cart", "empty my cart", "remove all", "remove everything", "start over", "cancel order", "cancel my order", "clear")
	checkoutPhrases = phrases("checkout", "check out", "place order", "place my order", "place the order", "i m done", "im done", "i am done", "that s all", "thats all", "finalize", "done ordering", "proceed", "that will be all")
	confirmPhrases  = phrases("confirm")
	removePhrases   = phrases("remove", "delete", "take off", "drop", "minus", "don t want", "dont want")
	addPhrases      = phrases("add", "want", "i ll have", "ill have", "give me", "get me", "order", "i d like", "id like", "can i get", "can i have", "i ll take", "ill take", "one more", "another")
	strongAdd       = phrases("add", "give me", "get me", "i ll have", "ill have", "can i get", "can i have", "i ll take", "ill take")
	viewPhrases     = phrases("my cart", "view cart", "show cart", "the cart", "my order", "what did i order", "my basket", "cart")
	dealPhrases     = phrases("deal", "deals", "offer", "offers", "combo", "combos", "discount", "discounts")
	infoPhrases     = phrases("delivery", "deliver", "payment", "payments", "pay", "service", "services", "location", "locations", "contact", "about", "hours", "open", "timing", "timings", "branch", "branches", "cash", "card", "takeaway", "dine in", "catering")
	browsePhrases   = phrases("menu", "show", "list", "what do you have", "what do you serve", "options", "recommend", "suggest", "popular")
)

// categoryWords maps browse vocabulary onto item categories.
var categoryWords = map[string]models.Category{
	"pizza": models.CategoryPizza, "pizzas": models.CategoryPizza,
	"side": models.CategorySide, "sides": models.CategorySide, "starter": models.CategorySide, "starters": models.CategorySide,
	"appetizer": models.CategorySide, "appetizers": models.CategorySide, "wings": models.CategorySide,
	"main": models.CategoryMain, "mains": models.CategoryMain, "pasta": models.CategoryMain, "pastas": models.CategoryMain,
	"calzone": models.CategoryMain, "calzones": models.CategoryMain,
	"kids": models.CategoryKids, "kid": models.CategoryKids, "children": models.CategoryKids,
	"dessert": models.CategoryDessert, "desserts": models.CategoryDessert, "sweet": models.CategoryDessert, "sweets": models.CategoryDessert,
	"drink": models.CategoryBeverage, "drinks": models.CategoryBeverage, "beverage": models.CategoryBeverage,
	"beverages": models.CategoryBeverage, "soda": models.CategoryBeverage,
	"dip": models.CategoryDip, "dips": models.CategoryDip,
	"sauce": models.CategorySauce, "sauces": models.CategorySauce,
	"crust": models.CategoryCrust, "crusts": models.CategoryCrust,
}

func phrases(list ...string) [][]string {
	out := make([][]string, 0, len(list))
	for _, p := range list {
		out = append(out, catalog.Tokenize(p))
	}
	return out
}

// hasPhrase reports whether any phrase occurs as a contiguous run in tokens.
func hasPhrase(tokens []string, list [][]string) bool {
	for _, p := range list {
		if len(p) == 0 || len(p) > len(tokens) {
			continue
		}
		for i := 0; i+len(p) <= len(tokens); i++ {
			match := true
			for j := range p {
				if tokens[i+j] != p[j] {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

// RuleResolver classifies utterances with ordered, stage-aware phrase rules.
type RuleResolver struct{}

func NewRuleResolver() *RuleResolver { return &RuleResolver{} }

func (r *RuleResolver) Resolve(text string, stage models.Stage) Intent {
	tokens := catalog.Tokenize(text)
	in := Intent{Kind: IntentFallback, Text: text}
	mutates := hasPhrase(tokens, removePhrases) || hasPhrase(tokens, strongAdd)

	switch {
	case stage.InCheckout() && !mutates && hasPhrase(tokens, noPhrases):
		in.Kind = IntentCancelCheckout
	case stage == models.StageAwaitingConfirmation && !mutates && hasPhrase(tokens, yesPhrases):
		in.Kind = IntentConfirmOrder
	case hasPhrase(tokens, clearPhrases):
		in.Kind = IntentClearCart
	case hasPhrase(tokens, checkoutPhrases):
		in.Kind = IntentCheckoutStart
	case hasPhrase(tokens, confirmPhrases):
		in.Kind = IntentConfirmOrder
	case hasPhrase(tokens, removePhrases):
		in.Kind = IntentRemoveItem
	case hasPhrase(tokens, viewPhrases) && !hasPhrase(tokens, strongAdd):
		in.Kind = IntentViewCart
	case hasPhrase(tokens, addPhrases):
		in.Kind = IntentAddItem
	}
	if in.Kind != IntentFallback {
		return in
	}

	in.Name, in.Phone = extractFields(text, stage)
	if in.Name != "" || in.Phone != "" {
		in.Kind = IntentProvideField
		return in
	}

	switch {
	case hasPhrase(tokens, dealPhrases):
		in.Kind = IntentAskDeal
	case hasPhrase(tokens, infoPhrases):
		in.Kind = IntentInfo
	case hasPhrase(tokens, browsePhrases):
		in.Kind = IntentBrowse
		in.Category = categoryOf(tokens)
	case isQuestion(text):
		if c := categoryOf(tokens); c != "" {
			in.Kind, in.Category = IntentBrowse, c
		}
	}
	if in.Kind != IntentFallback {
		return in
	}

	// Bare answers while a checkout field is pending.
	trimmed := strings.TrimSpace(text)
	switch stage {
	case models.StageCollectingName:
		if trimmed != "" && !hasAnyPhrase(tokens) {
			in.Kind, in.Name = IntentProvideField, trimmed
		}
	case models.StageCollectingPhone:
		if strings.ContainsAny(trimmed, "0123456789") {
			in.Kind, in.Phone = IntentProvideField, trimmed
		}
	}
	if in.Kind == IntentFallback {
		if c := categoryOf(tokens); c != "" && len(tokens) <= 2 {
			in.Kind, in.Category = IntentBrowse, c
		}
	}
	return in
}

// phraseLists are every vocabulary the rules react to; none of them is a bare name.
var phraseLists = [][][]string{
	yesPhrases, noPhrases, clearPhrases, checkoutPhrases, confirmPhrases, removePhrases,
	addPhrases, viewPhrases, dealPhrases, infoPhrases, browsePhrases,
}

func hasAnyPhrase(tokens []string) bool {
	for _, list := range phraseLists {
		if hasPhrase(tokens, list) {
			return true
		}
	}
	return false
}

func isQuestion(text string) bool {
	return strings.Contains(text, "?")
}

func categoryOf(tokens []string) models.Category {
	for _, t := range tokens {
		if c, ok := categoryWords[t]; ok {
			return c
		}
	}
	return ""
}

// extractFields pulls an explicitly introduced name and a phone-like number out of text.
func extractFields(text string, stage models.Stage) (name, phone string) {
	if m := phoneCandidate.FindString(text); m != "" {
		phone = strings.TrimSpace(m)
	}
	if m := nameCue.FindStringSubmatch(text); m != nil {
		name = cleanName(m[1])
	} else if stage == models.StageCollectingName {
		if m := selfCue.FindStringSubmatch(text); m != nil {
			name = cleanName(m[1])
		}
	}
	return name, phone
}

func cleanName(raw string) string {
	return strings.TrimSpace(nameStop.ReplaceAllString(raw, ""))
}
