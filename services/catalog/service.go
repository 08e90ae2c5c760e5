package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	catalogRepo "broadway/database/repository/catalog"
	"broadway/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxSuggestions = 3

// Selection is a fully priced catalog reference ready to go into a cart.
type Selection struct {
	Ref           models.ItemRef
	Name          string
	Category      models.Category
	Variant       string
	UnitPrice     decimal.Decimal
	Quantity      int
	QuantityGiven bool
}

// Line converts the selection into a cart line.
func (s Selection) Line() models.CartLine {
	return models.CartLine{
		Ref:       s.Ref,
		Name:      s.Name,
		Category:  s.Category,
		Variant:   s.Variant,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice,
	}
}

// Facts are catalog records relevant to an utterance, used to ground a reply.
type Facts struct {
	Items []models.MenuItem
	Deals []models.Deal
}

// CatalogService resolves free-text references against the menu.
type CatalogService interface {
	Resolve(ctx context.Context, utterance string) (*Selection, error)
	Find(ctx context.Context, utterance string) (*Facts, error)
	Menu(ctx context.Context, category models.Category) ([]models.MenuItem, error)
	Item(ctx context.Context, id string) (*models.MenuItem, error)
	Deal(ctx context.Context, id string) (*models.Deal, error)
	Categories(ctx context.Context) ([]models.MenuCategory, error)
	Deals(ctx context.Context) ([]models.Deal, error)
	Info(ctx context.Context) (*models.RestaurantInfo, error)
}

// DefaultCatalogService caches the menu in memory; it is immutable once seeded.
type DefaultCatalogService struct {
	repo     catalogRepo.CatalogRepository
	currency string
	ttl      time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	items    []models.MenuItem
	deals    []models.Deal
	loadedAt time.Time
}

func NewDefaultCatalogService(repo catalogRepo.CatalogRepository, currency string, ttl time.Duration, logger *zap.Logger) *DefaultCatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultCatalogService{repo: repo, currency: currency, ttl: ttl, logger: logger}
}

func (s *DefaultCatalogService) snapshot(ctx context.Context) ([]models.MenuItem, []models.Deal, error) {
	s.mu.RLock()
	if s.items != nil && time.Since(s.loadedAt) < s.ttl {
		items, deals := s.items, s.deals
		s.mu.RUnlock()
		return items, deals, nil
	}
	s.mu.RUnlock()

	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, nil, &models.PersistenceError{Op: "list menu items", Err: err}
	}
	deals, err := s.repo.ListDeals(ctx)
	if err != nil {
		return nil, nil, &models.PersistenceError{Op: "list deals", Err: err}
	}

	s.mu.Lock()
	s.items, s.deals, s.loadedAt = items, deals, time.Now()
	s.mu.Unlock()
	s.logger.Debug("catalog snapshot loaded", zap.Int("items", len(items)), zap.Int("deals", len(deals)))
	return items, deals, nil
}

// Resolve picks one sellable entity, its variant and quantity out of an utterance.
func (s *DefaultCatalogService) Resolve(ctx context.Context, utterance string) (*Selection, error) {
	items, deals, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	tokens := Tokenize(utterance)
	m := MatchEntities(tokens, EntitiesFrom(items, deals))
	if !m.Found() {
		return nil, &models.NotFoundError{What: "menu item", Query: strings.TrimSpace(utterance), Suggestions: m.Suggestions(maxSuggestions)}
	}
	e := m.Best[0]

	sel := &Selection{Ref: e.Ref, Name: e.Name, Category: e.Category, UnitPrice: e.Price}
	var variantName string
	switch {
	case len(e.Variants) == 1:
		sel.Variant, sel.UnitPrice = e.Variants[0].Name, e.Variants[0].Price
		variantName = e.Variants[0].Name
	case len(e.Variants) > 1:
		v, ok := MatchVariant(tokens, e.Variants)
		if !ok {
			return nil, &models.ValidationError{
				Field:  "variant",
				Reason: fmt.Sprintf("which size of %s would you like? %s", e.Name, s.describeVariants(e.Variants)),
			}
		}
		sel.Variant, sel.UnitPrice = v.Name, v.Price
		variantName = v.Name
	}

	qty, given, err := ParseQuantity(tokens, e.Name, variantName)
	if err != nil {
		return nil, err
	}
	sel.Quantity, sel.QuantityGiven = qty, given
	return sel, nil
}

func (s *DefaultCatalogService) describeVariants(variants []models.Variant) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, fmt.Sprintf("%s (%s)", v.Name, models.FormatMoney(s.currency, v.Price)))
	}
	return strings.Join(parts, ", ")
}

// Find returns the items and deals an utterance names, falling back to close candidates.
func (s *DefaultCatalogService) Find(ctx context.Context, utterance string) (*Facts, error) {
	items, deals, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m := MatchEntities(Tokenize(utterance), EntitiesFrom(items, deals))

	picked := m.Best
	if len(picked) == 0 {
		picked = m.Partial
		if len(picked) > maxSuggestions {
			picked = picked[:maxSuggestions]
		}
	}
	if len(picked) == 0 {
		return s.search(ctx, utterance)
	}

	byItem := make(map[string]models.MenuItem, len(items))
	for _, it := range items {
		byItem[it.ID] = it
	}
	byDeal := make(map[string]models.Deal, len(deals))
	for _, d := range deals {
		byDeal[d.ID] = d
	}

	facts := &Facts{}
	for _, e := range picked {
		switch e.Ref.Kind {
		case models.RefItem:
			facts.Items = append(facts.Items, byItem[e.Ref.ID])
		case models.RefDeal:
			facts.Deals = append(facts.Deals, byDeal[e.Ref.ID])
		}
	}
	return facts, nil
}

// search falls back to a substring search over descriptions for each content word.
func (s *DefaultCatalogService) search(ctx context.Context, utterance string) (*Facts, error) {
	facts := &Facts{}
	seenItems, seenDeals := map[string]bool{}, map[string]bool{}
	for _, t := range Tokenize(utterance) {
		if len(t) < 4 || genericTokens[t] || fillerTokens[t] {
			continue
		}
		items, err := s.repo.SearchItems(ctx, t)
		if err != nil {
			return nil, &models.PersistenceError{Op: "search menu items", Err: err}
		}
		for _, it := range items {
			if !seenItems[it.ID] && len(facts.Items) < maxSuggestions {
				seenItems[it.ID] = true
				facts.Items = append(facts.Items, it)
			}
		}
		deals, err := s.repo.SearchDeals(ctx, t)
		if err != nil {
			return nil, &models.PersistenceError{Op: "search deals", Err: err}
		}
		for _, d := range deals {
			if !seenDeals[d.ID] && len(facts.Deals) < maxSuggestions {
				seenDeals[d.ID] = true
				facts.Deals = append(facts.Deals, d)
			}
		}
	}
	return facts, nil
}

// Menu lists items, optionally restricted to one category.
func (s *DefaultCatalogService) Menu(ctx context.Context, category models.Category) ([]models.MenuItem, error) {
	if category == "" {
		items, _, err := s.snapshot(ctx)
		return items, err
	}
	items, err := s.repo.ItemsByCategory(ctx, category)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list category " + string(category), Err: err}
	}
	return items, nil
}

func (s *DefaultCatalogService) Item(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	return item, classify("load menu item", err)
}

func (s *DefaultCatalogService) Deal(ctx context.Context, id string) (*models.Deal, error) {
	deal, err := s.repo.GetDeal(ctx, id)
	return deal, classify("load deal", err)
}

// classify keeps NotFound errors as they are and marks everything else as a store failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return &models.PersistenceError{Op: op, Err: err}
}

func (s *DefaultCatalogService) Categories(ctx context.Context) ([]models.MenuCategory, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list categories", Err: err}
	}
	return cats, nil
}

func (s *DefaultCatalogService) Deals(ctx context.Context) ([]models.Deal, error) {
	_, deals, err := s.snapshot(ctx)
	return deals, err
}

func (s *DefaultCatalogService) Info(ctx context.Context) (*models.RestaurantInfo, error) {
	info, err := s.repo.RestaurantInfo(ctx)
	if err != nil {
		return nil, classify("load restaurant info", err)
	}
	return info, nil
}
