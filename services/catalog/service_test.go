package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"broadway/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogRepo struct {
	items     []models.MenuItem
	deals     []models.Deal
	listCalls int
	err       error
}

func (f *fakeCatalogRepo) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	return []models.MenuCategory{{ID: "cat_pizza", Name: "Pizzas", Type: "pizza"}}, f.err
}

func (f *fakeCatalogRepo) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	f.listCalls++
	return f.items, f.err
}

func (f *fakeCatalogRepo) ItemsByCategory(ctx context.Context, category models.Category) ([]models.MenuItem, error) {
	out := []models.MenuItem{}
	for _, it := range f.items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out, f.err
}

func (f *fakeCatalogRepo) SearchItems(ctx context.Context, query string) ([]models.MenuItem, error) {
	out := []models.MenuItem{}
	for _, it := range f.items {
		if strings.Contains(strings.ToLower(it.Name+" "+it.Description), strings.ToLower(query)) {
			out = append(out, it)
		}
	}
	return out, f.err
}

func (f *fakeCatalogRepo) GetItem(ctx context.Context, id string) (*models.MenuItem, error) {
	for _, it := range f.items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, &models.NotFoundError{What: "menu item", Query: id}
}

func (f *fakeCatalogRepo) ListDeals(ctx context.Context) ([]models.Deal, error) {
	return f.deals, f.err
}

func (f *fakeCatalogRepo) SearchDeals(ctx context.Context, query string) ([]models.Deal, error) {
	return []models.Deal{}, f.err
}

func (f *fakeCatalogRepo) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	for _, d := range f.deals {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, &models.NotFoundError{What: "deal", Query: id}
}

func (f *fakeCatalogRepo) RestaurantInfo(ctx context.Context) (*models.RestaurantInfo, error) {
	return &models.RestaurantInfo{Name: "Broadway Pizza"}, f.err
}

func sized(small, medium, large int64) []models.Variant {
	return []models.Variant{
		{Name: "Small", Price: decimal.NewFromInt(small)},
		{Name: "Medium", Price: decimal.NewFromInt(medium)},
		{Name: "Large", Price: decimal.NewFromInt(large)},
	}
}

func testRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		items: []models.MenuItem{
			{ID: "item_pepperoni", Category: models.CategoryPizza, Name: "Pepperoni Pizza", BasePrice: decimal.NewFromInt(900), Variants: sized(900, 1170, 1440)},
			{ID: "item_wickedblend", Category: models.CategoryPizza, Name: "Wicked Blend", Description: "Chicken tikka and fajita", BasePrice: decimal.NewFromInt(949), Variants: sized(949, 1234, 1518)},
			{ID: "item_kingchicken", Category: models.CategoryPizza, Name: "King Crust Chicken", BasePrice: decimal.NewFromInt(1599), Variants: []models.Variant{{Name: "Large", Price: decimal.NewFromInt(1599)}}},
			{ID: "item_gbread", Category: models.CategorySide, Name: "Garlic Bread", BasePrice: decimal.NewFromInt(299)},
			{ID: "dip_garlic", Category: models.CategoryDip, Name: "Garlic Mayo", BasePrice: decimal.NewFromInt(50)},
			{ID: "dip_bbq", Category: models.CategoryDip, Name: "BBQ Ranch", BasePrice: decimal.NewFromInt(50)},
			{ID: "item_bbqpasta", Category: models.CategoryMain, Name: "BBQ Ranch Pasta", BasePrice: decimal.NewFromInt(649)},
			{ID: "item_plainwings", Category: models.CategorySide, Name: "Plain Wings", BasePrice: decimal.NewFromInt(549)},
			{ID: "item_habanerowings", Category: models.CategorySide, Name: "Habanero Wings", BasePrice: decimal.NewFromInt(599)},
		},
		deals: []models.Deal{
			{ID: "deal_mybox", Name: "My Box", Price: decimal.NewFromInt(799)},
		},
	}
}

func newTestService(repo *fakeCatalogRepo) *DefaultCatalogService {
	return NewDefaultCatalogService(repo, "Rs.", time.Minute, nil)
}

func TestResolveLargePepperoniUsesLargePrice(t *testing.T) {
	svc := newTestService(testRepo())

	sel, err := svc.Resolve(context.Background(), "large Pepperoni Pizza")
	require.NoError(t, err)
	assert.Equal(t, "item_pepperoni", sel.Ref.ID)
	assert.Equal(t, "Large", sel.Variant)
	assert.True(t, decimal.NewFromInt(1440).Equal(sel.UnitPrice))
	assert.Equal(t, 1, sel.Quantity)
	assert.False(t, sel.QuantityGiven)
}

func TestResolveSmallWickedBlend(t *testing.T) {
	svc := newTestService(testRepo())

	sel, err := svc.Resolve(context.Background(), "I want a small Wicked Blend pizza")
	require.NoError(t, err)
	line := sel.Line()
	assert.Equal(t, models.ItemRef{Kind: models.RefItem, ID: "item_wickedblend"}, line.Ref)
	assert.Equal(t, "Small", line.Variant)
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, decimal.NewFromInt(949).Equal(line.UnitPrice))
}

func TestResolveQuantity(t *testing.T) {
	svc := newTestService(testRepo())

	cases := []struct {
		text string
		want int
	}{
		{"2 garlic bread", 2},
		{"three garlic bread please", 3},
		{"garlic bread", 1},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			sel, err := svc.Resolve(context.Background(), tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sel.Quantity)
		})
	}

	_, err := svc.Resolve(context.Background(), "150 garlic bread")
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quantity", ve.Field)
}

func TestResolveSingleVariantIsImplicit(t *testing.T) {
	svc := newTestService(testRepo())

	sel, err := svc.Resolve(context.Background(), "king crust chicken")
	require.NoError(t, err)
	assert.Equal(t, "Large", sel.Variant)
	assert.True(t, decimal.NewFromInt(1599).Equal(sel.UnitPrice))
}

func TestResolveMissingSizeAsksWithPrices(t *testing.T) {
	svc := newTestService(testRepo())

	_, err := svc.Resolve(context.Background(), "wicked blend")
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "variant", ve.Field)
	assert.Contains(t, ve.Reason, "Small (Rs. 949)")
	assert.Contains(t, ve.Reason, "Large (Rs. 1518)")
}

func TestResolveLongestNameWins(t *testing.T) {
	svc := newTestService(testRepo())

	sel, err := svc.Resolve(context.Background(), "bbq ranch pasta")
	require.NoError(t, err)
	assert.Equal(t, "item_bbqpasta", sel.Ref.ID)

	sel, err = svc.Resolve(context.Background(), "a bbq ranch dip")
	require.NoError(t, err)
	assert.Equal(t, "dip_bbq", sel.Ref.ID)
}

func TestResolveUnknownSuggestsCandidates(t *testing.T) {
	svc := newTestService(testRepo())

	_, err := svc.Resolve(context.Background(), "some wings")
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ElementsMatch(t, []string{"Plain Wings", "Habanero Wings"}, nf.Suggestions)

	_, err = svc.Resolve(context.Background(), "sushi")
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, nf.Suggestions)
}

func TestResolveAmbiguousTieIsNotFound(t *testing.T) {
	svc := newTestService(testRepo())

	_, err := svc.Resolve(context.Background(), "plain wings and habanero wings")
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ElementsMatch(t, []string{"Plain Wings", "Habanero Wings"}, nf.Suggestions)
}

func TestResolveDeal(t *testing.T) {
	svc := newTestService(testRepo())

	sel, err := svc.Resolve(context.Background(), "add the my box deal")
	require.NoError(t, err)
	assert.Equal(t, models.RefDeal, sel.Ref.Kind)
	assert.Equal(t, models.CategoryDeal, sel.Category)
	assert.Empty(t, sel.Variant)
}

func TestSnapshotIsCached(t *testing.T) {
	repo := testRepo()
	svc := newTestService(repo)

	_, err := svc.Resolve(context.Background(), "garlic bread")
	require.NoError(t, err)
	_, err = svc.Find(context.Background(), "garlic bread")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestFindFallsBackToSearch(t *testing.T) {
	svc := newTestService(testRepo())

	facts, err := svc.Find(context.Background(), "anything with fajita?")
	require.NoError(t, err)
	require.Len(t, facts.Items, 1)
	assert.Equal(t, "Wicked Blend", facts.Items[0].Name)
}

func TestStoreFailureIsPersistenceError(t *testing.T) {
	repo := testRepo()
	repo.err = errors.New("connection refused")
	svc := newTestService(repo)

	_, err := svc.Resolve(context.Background(), "garlic bread")
	var pe *models.PersistenceError
	require.ErrorAs(t, err, &pe)
}

func TestItemNotFoundStaysNotFound(t *testing.T) {
	svc := newTestService(testRepo())

	_, err := svc.Item(context.Background(), "nope")
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestResolveFoldsPlurals(t *testing.T) {
	repo := testRepo()
	repo.items = append(repo.items, models.MenuItem{
		ID: "item_drinks", Category: models.CategoryBeverage, Name: "Soft Drinks", BasePrice: decimal.NewFromInt(120),
		Variants: []models.Variant{{Name: "Regular", Price: decimal.NewFromInt(120)}, {Name: "Large", Price: decimal.NewFromInt(180)}},
	})
	svc := newTestService(repo)

	sel, err := svc.Resolve(context.Background(), "one habanero wing")
	require.NoError(t, err)
	assert.Equal(t, "Habanero Wings", sel.Name)

	sel, err = svc.Resolve(context.Background(), "a large drink")
	require.NoError(t, err)
	assert.Equal(t, "Soft Drinks", sel.Name)
	assert.Equal(t, "Large", sel.Variant)
	assert.True(t, decimal.NewFromInt(180).Equal(sel.UnitPrice))
}

func TestMatchEntitiesHeadNounNeedsUniqueCandidate(t *testing.T) {
	entities := EntitiesFrom(testRepo().items, nil)

	m := MatchEntities(Tokenize("a bread"), entities)
	require.True(t, m.Found())
	assert.Equal(t, "Garlic Bread", m.Best[0].Name)

	m = MatchEntities(Tokenize("garlic"), entities)
	assert.False(t, m.Found())
	assert.ElementsMatch(t, []string{"Garlic Bread", "Garlic Mayo"}, m.Suggestions(3))

	m = MatchEntities(Tokenize("wing"), entities)
	assert.False(t, m.Found())
}
