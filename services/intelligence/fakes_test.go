package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"broadway/models"
	"broadway/services/cart"
	"broadway/services/catalog"

	"github.com/shopspring/decimal"
)

type memCatalogRepo struct {
	items []models.MenuItem
	deals []models.Deal
}

func (r *memCatalogRepo) ListCategories(ctx context.Context) ([]models.MenuCategory, error) {
	return []models.MenuCategory{{ID: "cat_royale_pizza", Name: "Royale Flavors", Type: "pizza"}, {ID: "cat_starters", Name: "Appetizers & Starters", Type: "side"}}, nil
}
func (r *memCatalogRepo) ListItems(ctx context.Context) ([]models.MenuItem, error) { return r.items, nil }
func (r *memCatalogRepo) ItemsByCategory(ctx context.Context, c models.Category) ([]models.MenuItem, error) {
	out := []models.MenuItem{}
	for _, it := range r.items {
		if it.Category == c {
			out = append(out, it)
		}
	}
	return out, nil
}
func (r *memCatalogRepo) SearchItems(ctx context.Context, q string) ([]models.MenuItem, error) {
	out := []models.MenuItem{}
	for _, it := range r.items {
		if strings.Contains(strings.ToLower(it.Name+" "+it.Description), strings.ToLower(q)) {
			out = append(out, it)
		}
	}
	return out, nil
}
func (r *memCatalogRepo) GetItem(ctx context.Context, id string) (*models.MenuItem, error) {
	return nil, &models.NotFoundError{What: "menu item", Query: id}
}
func (r *memCatalogRepo) ListDeals(ctx context.Context) ([]models.Deal, error) { return r.deals, nil }
func (r *memCatalogRepo) SearchDeals(ctx context.Context, q string) ([]models.Deal, error) {
	return []models.Deal{}, nil
}
func (r *memCatalogRepo) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	return nil, &models.NotFoundError{What: "deal", Query: id}
}
func (r *memCatalogRepo) RestaurantInfo(ctx context.Context) (*models.RestaurantInfo, error) {
	return &models.RestaurantInfo{
		Name:           "Broadway Pizza",
		Country:        "Pakistan",
		Description:    "Pizza chain",
		Services:       []string{"Home Delivery", "Takeaway"},
		PaymentMethods: []string{"Cash on Delivery"},
	}, nil
}

func testMenu() *memCatalogRepo {
	return &memCatalogRepo{
		items: []models.MenuItem{
			{ID: "item_wickedblend", Category: models.CategoryPizza, Section: "Royale Flavors", Name: "Wicked Blend", Description: "Chicken Tikka, Fajita, Smoked Chicken.", BasePrice: decimal.NewFromInt(949),
				Variants: []models.Variant{{Name: "Small", Price: decimal.NewFromInt(949)}, {Name: "Medium", Price: decimal.NewFromInt(1234)}, {Name: "Large", Price: decimal.NewFromInt(1518)}}},
			{ID: "item_pepperoni", Category: models.CategoryPizza, Section: "Specialty Pizzas", Name: "Pepperoni Pizza", BasePrice: decimal.NewFromInt(900),
				Variants: []models.Variant{{Name: "Small", Price: decimal.NewFromInt(900)}, {Name: "Medium", Price: decimal.NewFromInt(1170)}, {Name: "Large", Price: decimal.NewFromInt(1440)}}},
			{ID: "item_gbread", Category: models.CategorySide, Section: "Appetizers & Starters", Name: "Garlic Bread", Description: "Fresh bread with garlic butter.", BasePrice: decimal.NewFromInt(299)},
		},
		deals: []models.Deal{
			{ID: "deal_mybox", Name: "My Box", Description: "Regular Pizza + Fries", ItemsIncluded: "Regular Pizza, Fries", Availability: "All Day", Price: decimal.NewFromInt(799)},
		},
	}
}

type memStore struct {
	mu     sync.Mutex
	states map[string]models.ConversationState
	setErr error
	sets   int
}

func newMemStore() *memStore {
	return &memStore{states: map[string]models.ConversationState{}}
}

func (s *memStore) Get(ctx context.Context, id string) (*models.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		return models.NewConversationState(id), nil
	}
	return st.Clone(), nil
}

func (s *memStore) Set(ctx context.Context, st *models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return &models.PersistenceError{Op: "save conversation state", Err: s.setErr}
	}
	s.sets++
	s.states[st.SessionID] = *st.Clone()
	return nil
}

func (s *memStore) Clear(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
	return nil
}

type fakeModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	prompts []string
	history [][]models.ChatMessage
	summary string
	priors  []string
}

func (m *fakeModel) Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.history = append(m.history, history)
	block, reply, err := m.block, m.reply, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = "Sure thing!"
	}
	return reply, nil
}

func (m *fakeModel) Summarize(ctx context.Context, prior string, msgs []models.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priors = append(m.priors, prior)
	if m.err != nil {
		return "", m.err
	}
	return m.summary, nil
}

func (m *fakeModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

type memLedger struct {
	mu     sync.Mutex
	orders []models.Order
	err    error
}

func (l *memLedger) Insert(ctx context.Context, o *models.Order) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	placed := *o
	placed.ID = int64(len(l.orders) + 1)
	placed.PlacedAt = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	l.orders = append(l.orders, placed)
	return &placed, nil
}

type memMemory struct {
	mu        sync.Mutex
	messages  map[string][]models.ChatMessage
	linked    map[string]string
	threshold int64
	err       error
}

func newMemMemory() *memMemory {
	return &memMemory{messages: map[string][]models.ChatMessage{}, linked: map[string]string{}, threshold: 4}
}

func (m *memMemory) Window(ctx context.Context, id string) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.ChatMessage(nil), m.messages[id]...), nil
}

func (m *memMemory) Record(ctx context.Context, id string, msgs ...models.ChatMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = append(m.messages[id], msgs...)
	return int64(len(m.messages[id])), nil
}

func (m *memMemory) History(ctx context.Context, id string) ([]models.ChatMessage, error) {
	return m.Window(ctx, id)
}

func (m *memMemory) LinkCustomer(ctx context.Context, id, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linked[id] = phone
	return nil
}

func (m *memMemory) Forget(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	return nil
}

func (m *memMemory) ShouldSummarize(count int64) bool { return count >= m.threshold }

type recordingScheduler struct {
	mu       sync.Mutex
	sessions []string
}

func (s *recordingScheduler) ScheduleSummary(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, id)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.OrderPlacedEvent
	err    error
}

func (n *recordingNotifier) PublishOrderPlaced(ctx context.Context, e models.OrderPlacedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

type harness struct {
	orch      *Orchestrator
	store     *memStore
	model     *fakeModel
	ledger    *memLedger
	memory    *memMemory
	scheduler *recordingScheduler
	notifier  *recordingNotifier
}

func newHarness() *harness {
	h := &harness{
		store:     newMemStore(),
		model:     &fakeModel{},
		ledger:    &memLedger{},
		memory:    newMemMemory(),
		scheduler: &recordingScheduler{},
		notifier:  &recordingNotifier{},
	}
	catalogSvc := catalog.NewDefaultCatalogService(testMenu(), "Rs.", time.Minute, nil)
	h.orch = NewOrchestrator(Deps{
		Store:     h.store,
		Catalog:   catalogSvc,
		Cart:      cart.NewDefaultCartService(catalogSvc),
		Model:     h.model,
		Memory:    h.memory,
		Ledger:    h.ledger,
		Notifier:  h.notifier,
		Scheduler: h.scheduler,
	}, Options{
		Currency:          "Rs.",
		ModelTimeout:      time.Second,
		ContextMaxChars:   6000,
		MaxUtteranceChars: 1000,
	}, nil)
	return h
}

var errBoom = errors.New("boom")
