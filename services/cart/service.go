package cart

import (
	"context"
	"fmt"
	"strings"

	"broadway/models"
	"broadway/services/catalog"
)

// CartService applies free-text add and remove requests to a session cart.
type CartService interface {
	AddItem(ctx context.Context, c *models.Cart, utterance string) (models.CartLine, error)
	RemoveItem(ctx context.Context, c *models.Cart, utterance string) (models.CartLine, error)
}

// DefaultCartService resolves additions against the catalog and removals against the cart itself.
type DefaultCartService struct {
	catalog catalog.CatalogService
}

func NewDefaultCartService(catalogSvc catalog.CatalogService) *DefaultCartService {
	return &DefaultCartService{catalog: catalogSvc}
}

// AddItem prices the referenced entity from the catalog and merges it into c.
func (s *DefaultCartService) AddItem(ctx context.Context, c *models.Cart, utterance string) (models.CartLine, error) {
	sel, err := s.catalog.Resolve(ctx, utterance)
	if err != nil {
		return models.CartLine{}, err
	}
	return c.Merge(sel.Line())
}

// RemoveItem drops a line, or part of it when a quantity is named.
func (s *DefaultCartService) RemoveItem(ctx context.Context, c *models.Cart, utterance string) (models.CartLine, error) {
	if c.IsEmpty() {
		return models.CartLine{}, &models.ValidationError{Field: "cart", Reason: "your cart is empty"}
	}

	tokens := catalog.Tokenize(utterance)
	m := catalog.MatchEntities(tokens, lineEntities(c))
	if !m.Found() {
		return models.CartLine{}, &models.NotFoundError{What: "cart line", Query: strings.TrimSpace(utterance), Suggestions: m.Suggestions(3)}
	}
	e := m.Best[0]

	candidates := []models.CartLine{}
	for _, l := range c.Lines {
		if l.Ref == e.Ref {
			candidates = append(candidates, l)
		}
	}

	variant := candidates[0].Variant
	if len(candidates) > 1 {
		v, ok := catalog.MatchVariant(tokens, e.Variants)
		if !ok {
			names := make([]string, 0, len(candidates))
			for _, l := range candidates {
				names = append(names, l.DisplayName())
			}
			return models.CartLine{}, &models.ValidationError{
				Field:  "variant",
				Reason: fmt.Sprintf("which one should I remove: %s?", strings.Join(names, " or ")),
			}
		}
		variant = v.Name
	}

	qty, given, err := catalog.ParseQuantity(tokens, e.Name, variant)
	if err != nil {
		return models.CartLine{}, err
	}
	if !given {
		qty = 0
	}
	return c.Remove(e.Ref, variant, qty)
}

// lineEntities turns the distinct cart references into a match space, carrying each line's variant.
func lineEntities(c *models.Cart) []catalog.Entity {
	byRef := map[models.ItemRef]int{}
	out := []catalog.Entity{}
	for _, l := range c.Lines {
		i, ok := byRef[l.Ref]
		if !ok {
			i = len(out)
			byRef[l.Ref] = i
			out = append(out, catalog.Entity{Ref: l.Ref, Name: l.Name, Category: l.Category})
		}
		if l.Variant != "" {
			out[i].Variants = append(out[i].Variants, models.Variant{Name: l.Variant, Price: l.UnitPrice})
		}
	}
	return out
}
