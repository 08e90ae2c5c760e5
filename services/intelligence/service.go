// File: services/intelligence/service.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"broadway/models"
	"broadway/services/cart"
	"broadway/services/catalog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApologyReply is returned whenever a turn could not be completed and nothing was committed.
const ApologyReply = "Sorry, I'm having trouble right now. Nothing was changed, please try again in a moment."

// Error codes surfaced in ChatResponse.Error.
const (
	ErrCodeNotFound    = "not_found"
	ErrCodeValidation  = "validation"
	ErrCodeUpstream    = "upstream"
	ErrCodePersistence = "persistence"
)

var segmentSplit = regexp.MustCompile(`(?i)\s*(?:,|&|;|\band\b|\bplus\b|\balso\b|\bwith\b)\s*`)

// segmentFiller words carry no catalog meaning when a segment holds nothing else.
var segmentFiller = map[string]bool{
	"a": true, "an": true, "the": true, "please": true, "too": true, "some": true, "me": true,
	"i": true, "want": true, "add": true, "to": true, "my": true, "cart": true, "order": true,
	"thanks": true, "thank": true, "you": true, "it": true, "that": true, "s": true, "all": true,
}

// Options tunes the orchestrator.
type Options struct {
	Currency          string
	ModelTimeout      time.Duration
	ContextMaxChars   int
	MaxUtteranceChars int
}

// Orchestrator runs one customer turn end to end: classify, act on a cloned state, ground the
// model, then commit the order and state only after the model replied.
type Orchestrator struct {
	store     StateStore
	intents   IntentResolver
	catalog   catalog.CatalogService
	cart      cart.CartService
	model     Model
	memory    Memory
	ledger    Ledger
	notifier  Notifier
	scheduler SummaryScheduler
	opts      Options
	logger    *zap.Logger
	locks     *sessionLocks
}

// Deps are the collaborators of an Orchestrator. Memory, Notifier and Scheduler are optional.
type Deps struct {
	Store     StateStore
	Intents   IntentResolver
	Catalog   catalog.CatalogService
	Cart      cart.CartService
	Model     Model
	Memory    Memory
	Ledger    Ledger
	Notifier  Notifier
	Scheduler SummaryScheduler
}

func NewOrchestrator(d Deps, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.Intents == nil {
		d.Intents = NewRuleResolver()
	}
	return &Orchestrator{
		store:     d.Store,
		intents:   d.Intents,
		catalog:   d.Catalog,
		cart:      d.Cart,
		model:     d.Model,
		memory:    d.Memory,
		ledger:    d.Ledger,
		notifier:  d.Notifier,
		scheduler: d.Scheduler,
		opts:      opts,
		logger:    logger,
		locks:     newSessionLocks(),
	}
}

// turn accumulates what one utterance did to the working state.
type turn struct {
	state     *models.ConversationState
	intent    Intent
	facts     []string
	directive []string
	clarify   error
	fatal     error
	place     bool
}

func (t *turn) say(format string, args ...any) {
	t.directive = append(t.directive, fmt.Sprintf(format, args...))
}

// note appends a directive verbatim.
func (t *turn) note(directive string) {
	t.directive = append(t.directive, directive)
}

// ProcessTurn returns an error only for malformed requests; every other failure is a reply.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &models.ValidationError{Field: "text", Reason: "message must not be empty"}
	}
	if o.opts.MaxUtteranceChars > 0 && utf8.RuneCountInString(text) > o.opts.MaxUtteranceChars {
		return nil, &models.ValidationError{Field: "text", Reason: fmt.Sprintf("message must be at most %d characters", o.opts.MaxUtteranceChars)}
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := o.locks.lock(sessionID)
	defer unlock()
	logger := o.logger.With(zap.String("session", sessionID))

	current, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return o.failure(logger, models.NewConversationState(sessionID), Intent{Kind: IntentFallback}, err), nil
	}

	t := &turn{state: current.Clone()}
	t.intent = o.refine(ctx, o.intents.Resolve(text, t.state.Stage))
	logger.Debug("classified turn", zap.String("intent", string(t.intent.Kind)), zap.String("stage", string(t.state.Stage)))

	o.apply(ctx, t)
	if t.fatal != nil {
		return o.failure(logger, current, t.intent, t.fatal), nil
	}

	var pending *models.Order
	if t.place {
		pending = o.prepareOrder(t)
	}

	history := o.window(ctx, logger, sessionID)
	prompt := grounding{
		cart:      t.state.Cart.Summary(o.opts.Currency),
		stage:     t.state.Stage,
		directive: strings.Join(t.directive, " "),
		message:   text,
		facts:     t.facts,
	}.render(o.opts.ContextMaxChars)

	mctx, cancel := context.WithTimeout(ctx, o.opts.ModelTimeout)
	reply, err := o.model.Generate(mctx, prompt, history)
	cancel()
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		return o.failure(logger, current, t.intent, &models.UpstreamError{Op: "generate reply", Err: err}), nil
	}
	reply = strings.TrimSpace(reply)

	var placed *models.Order
	if pending != nil {
		placed, err = o.ledger.Insert(ctx, pending)
		if err != nil {
			return o.failure(logger, current, t.intent, &models.PersistenceError{Op: "insert order", Err: err}), nil
		}
		t.state.LastOrderID = placed.ID
		logger.Info("order placed", zap.Int64("order_id", placed.ID), zap.String("total", placed.Total.String()))
	}

	if err := o.store.Set(ctx, t.state); err != nil {
		if placed == nil {
			return o.failure(logger, current, t.intent, err), nil
		}
		// The order is already in the ledger; report it rather than hide it.
		logger.Error("failed to save state after placing order", zap.Int64("order_id", placed.ID), zap.Error(err))
	}

	o.afterCommit(ctx, logger, sessionID, text, reply, placed)

	resp := &models.ChatResponse{
		SessionID: sessionID,
		Intent:    string(t.intent.Kind),
		Stage:     t.state.Stage,
		Reply:     reply,
		Cart:      models.NewCartView(t.state.Cart, o.opts.Currency),
		Actions:   actionsFor(t.state),
		Error:     errorCode(t.clarify),
	}
	if placed != nil {
		resp.Order = placed.Confirmation()
	}
	return resp, nil
}

// refine turns a weak add such as "I want to see the menu" into browsing when it names nothing on the menu.
func (o *Orchestrator) refine(ctx context.Context, in Intent) Intent {
	if in.Kind != IntentAddItem {
		return in
	}
	tokens := catalog.Tokenize(in.Text)
	if !hasPhrase(tokens, browsePhrases) || hasPhrase(tokens, strongAdd) {
		return in
	}
	facts, err := o.catalog.Find(ctx, in.Text)
	if err != nil || len(facts.Items)+len(facts.Deals) > 0 {
		return in
	}
	in.Kind, in.Category = IntentBrowse, categoryOf(tokens)
	return in
}

// apply runs the intent against the working state.
func (o *Orchestrator) apply(ctx context.Context, t *turn) {
	st := t.state
	cur := o.opts.Currency

	switch t.intent.Kind {
	case IntentBrowse:
		o.browse(ctx, t)

	case IntentAskDeal:
		deals, err := o.catalog.Deals(ctx)
		if err != nil {
			t.fatal = err
			return
		}
		for _, d := range deals {
			t.facts = append(t.facts, dealFact(d, cur))
		}
		t.say("Present the deals from MENU FACTS with their prices.")

	case IntentInfo:
		info, err := o.catalog.Info(ctx)
		if err != nil {
			if isClarification(err) {
				t.say("Restaurant details are not available; apologise briefly and offer help with the menu.")
				return
			}
			t.fatal = err
			return
		}
		if facts, ferr := o.catalog.Find(ctx, t.intent.Text); ferr == nil {
			o.addFacts(t, facts)
		}
		t.facts = append(t.facts, infoFacts(info)...)
		t.say("Answer the question using the menu items and restaurant details in MENU FACTS.")

	case IntentAddItem:
		o.addItems(ctx, t)

	case IntentRemoveItem:
		line, err := o.cart.RemoveItem(ctx, &st.Cart, t.intent.Text)
		if err != nil {
			o.clarify(ctx, t, err)
			return
		}
		afterCartChange(st)
		t.say("Removed %s x%d from the cart. Show the updated cart and ask what else they need.", line.DisplayName(), line.Quantity)

	case IntentViewCart:
		if st.Cart.IsEmpty() {
			t.say("Say the cart is empty and suggest the menu or deals.")
		} else {
			t.say("Show the cart exactly as in [CART] and ask if they would like to checkout.")
		}

	case IntentClearCart:
		st.Cart.Clear()
		afterCartChange(st)
		t.say("The cart has been cleared. Ask what they would like to order.")

	case IntentCheckoutStart:
		o.step(t, startCheckout(st, cur))

	case IntentProvideField:
		o.step(t, provideFields(st, t.intent, cur))

	case IntentConfirmOrder:
		o.step(t, confirmOrder(st, cur))

	case IntentCancelCheckout:
		o.step(t, cancelCheckout(st))

	default:
		facts, err := o.catalog.Find(ctx, t.intent.Text)
		if err != nil {
			t.fatal = err
			return
		}
		o.addFacts(t, facts)
		t.say("Answer helpfully using only MENU FACTS. If the message is unrelated to food or ordering, steer back to the menu.")
		if p := promptFor(st, cur); p != "" && st.Stage != models.StageAwaitingConfirmation {
			t.note(p)
		}
	}
}

func (o *Orchestrator) step(t *turn, s checkoutStep) {
	if s.err != nil {
		t.clarify = s.err
	}
	if s.directive != "" {
		t.note(s.directive)
	}
	t.place = s.place
}

func (o *Orchestrator) browse(ctx context.Context, t *turn) {
	cur := o.opts.Currency
	if c := t.intent.Category; c != "" {
		items, err := o.catalog.Menu(ctx, c)
		if err != nil {
			t.fatal = err
			return
		}
		if len(items) == 0 {
			t.say("There are no %s items on the menu right now; suggest other sections.", c)
			return
		}
		for _, it := range items {
			t.facts = append(t.facts, itemFact(it, cur))
		}
		t.say("Present the %s options from MENU FACTS with their prices and ask which one they would like.", c)
		return
	}

	cats, err := o.catalog.Categories(ctx)
	if err != nil {
		t.fatal = err
		return
	}
	items, err := o.catalog.Menu(ctx, "")
	if err != nil {
		t.fatal = err
		return
	}
	t.facts = append(t.facts, categoriesFact(cats))
	for _, it := range items {
		t.facts = append(t.facts, itemFact(it, cur))
	}
	t.say("Give a short overview of the menu sections with a few highlights and ask what they are in the mood for.")
}

// addItems resolves each "and"-separated part of the utterance into a scratch cart.
// The working cart only changes when every part resolved.
func (o *Orchestrator) addItems(ctx context.Context, t *turn) {
	st := t.state
	scratch := st.Cart.Clone()
	var added []string
	for _, seg := range splitSegments(t.intent.Text) {
		line, err := o.cart.AddItem(ctx, &scratch, seg)
		if err != nil {
			o.clarify(ctx, t, err)
			if t.fatal != nil {
				return
			}
			continue
		}
		added = append(added, fmt.Sprintf("%s x%d (%s each)", line.DisplayName(), line.Quantity, models.FormatMoney(o.opts.Currency, line.UnitPrice)))
	}
	if t.clarify != nil {
		if len(added) > 0 {
			t.say("Nothing was added yet. Once that is settled, these can be added: %s.", strings.Join(added, ", "))
		}
		return
	}
	if len(added) == 0 {
		return
	}
	st.Cart = scratch
	afterCartChange(st)
	t.say("Added to the cart: %s. Confirm this and ask if they want anything else or want to checkout.", strings.Join(added, ", "))
	if p := promptFor(st, o.opts.Currency); p != "" {
		t.note(p)
	}
}

// clarify turns a NotFound or Validation error into a directive; anything else is fatal.
func (o *Orchestrator) clarify(ctx context.Context, t *turn, err error) {
	if !isClarification(err) {
		t.fatal = err
		return
	}
	t.clarify = err

	var nf *models.NotFoundError
	var ve *models.ValidationError
	switch {
	case errors.As(err, &nf):
		if len(nf.Suggestions) > 0 {
			t.say("Could not find %q. Ask whether they meant one of: %s.", nf.Query, strings.Join(nf.Suggestions, ", "))
		} else {
			t.say("Could not find %q on the menu. Say so and suggest browsing the menu.", nf.Query)
		}
		if nf.What != "cart line" {
			if facts, ferr := o.catalog.Find(ctx, nf.Query); ferr == nil {
				o.addFacts(t, facts)
			}
		}
	case errors.As(err, &ve) && ve.Field == "cart":
		t.say("The cart is empty, so there is nothing to change. Suggest the menu or deals.")
	case errors.As(err, &ve):
		t.say("Ask the customer: %s.", ve.Reason)
	}
}

func (o *Orchestrator) addFacts(t *turn, facts *catalog.Facts) {
	if facts == nil {
		return
	}
	for _, it := range facts.Items {
		t.facts = append(t.facts, itemFact(it, o.opts.Currency))
	}
	for _, d := range facts.Deals {
		t.facts = append(t.facts, dealFact(d, o.opts.Currency))
	}
}

// prepareOrder snapshots the cart into an order and moves the working state to placed.
func (o *Orchestrator) prepareOrder(t *turn) *models.Order {
	st := t.state
	snapshot := st.Cart.Clone()
	order := &models.Order{
		SessionID:     st.SessionID,
		CustomerName:  st.CustomerName,
		CustomerPhone: st.CustomerPhone,
		Lines:         snapshot.Lines,
		Total:         snapshot.Total(),
		Status:        models.OrderPending,
	}
	t.say("The order for %s (phone %s) has been placed with status pending. Items:\n%s\nThank them warmly and say it is being prepared.",
		st.CustomerName, models.MaskPhone(st.CustomerPhone), snapshot.Summary(o.opts.Currency))

	st.Cart.Clear()
	st.Stage = models.StagePlaced
	return order
}

func (o *Orchestrator) window(ctx context.Context, logger *zap.Logger, sessionID string) []models.ChatMessage {
	if o.memory == nil {
		return nil
	}
	history, err := o.memory.Window(ctx, sessionID)
	if err != nil {
		logger.Warn("failed to load transcript window", zap.Error(err))
		return nil
	}
	return history
}

// afterCommit does the bookkeeping that must never undo a committed turn.
func (o *Orchestrator) afterCommit(ctx context.Context, logger *zap.Logger, sessionID, text, reply string, placed *models.Order) {
	if o.memory != nil {
		now := time.Now().UTC()
		count, err := o.memory.Record(ctx, sessionID,
			models.ChatMessage{SessionID: sessionID, Role: models.RoleUser, Content: text, Timestamp: now},
			models.ChatMessage{SessionID: sessionID, Role: models.RoleAssistant, Content: reply, Timestamp: now.Add(time.Millisecond)},
		)
		if err != nil {
			logger.Warn("failed to record transcript", zap.Error(err))
		} else if o.scheduler != nil && o.memory.ShouldSummarize(count) {
			if err := o.scheduler.ScheduleSummary(ctx, sessionID); err != nil {
				logger.Warn("failed to schedule summary", zap.Error(err))
			}
		}
		if placed != nil {
			if err := o.memory.LinkCustomer(ctx, sessionID, placed.CustomerPhone); err != nil {
				logger.Warn("failed to link customer to session", zap.Error(err))
			}
		}
	}

	if placed != nil && o.notifier != nil {
		event := models.OrderPlacedEvent{
			OrderID:      placed.ID,
			CustomerName: placed.CustomerName,
			Items:        placed.Lines,
			Total:        placed.Total,
			Status:       placed.Status,
			PlacedAt:     placed.PlacedAt,
		}
		if err := o.notifier.PublishOrderPlaced(ctx, event); err != nil {
			logger.Warn("failed to publish order event", zap.Int64("order_id", placed.ID), zap.Error(err))
		}
	}
}

// failure answers with the fixed apology and the last committed state.
func (o *Orchestrator) failure(logger *zap.Logger, committed *models.ConversationState, in Intent, err error) *models.ChatResponse {
	logger.Error("turn failed", zap.String("intent", string(in.Kind)), zap.Error(err))
	return &models.ChatResponse{
		SessionID: committed.SessionID,
		Intent:    string(in.Kind),
		Stage:     committed.Stage,
		Reply:     ApologyReply,
		Cart:      models.NewCartView(committed.Cart, o.opts.Currency),
		Actions:   actionsFor(committed),
		Error:     errorCode(err),
	}
}

// Cart returns the committed state of a session.
func (o *Orchestrator) Cart(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	return o.store.Get(ctx, sessionID)
}

func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	if o.memory == nil {
		return []models.ChatMessage{}, nil
	}
	return o.memory.History(ctx, sessionID)
}

// Reset drops the session's state and transcript.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	unlock := o.locks.lock(sessionID)
	defer unlock()

	if err := o.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	if o.memory != nil {
		if err := o.memory.Forget(ctx, sessionID); err != nil {
			return &models.PersistenceError{Op: "forget transcript", Err: err}
		}
	}
	return nil
}

func isClarification(err error) bool {
	var nf *models.NotFoundError
	var ve *models.ValidationError
	return errors.As(err, &nf) || errors.As(err, &ve)
}

func errorCode(err error) string {
	var (
		nf *models.NotFoundError
		ve *models.ValidationError
		ue *models.UpstreamError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nf):
		return ErrCodeNotFound
	case errors.As(err, &ve):
		return ErrCodeValidation
	case errors.As(err, &ue):
		return ErrCodeUpstream
	default:
		return ErrCodePersistence
	}
}

func actionsFor(st *models.ConversationState) []models.ChatAction {
	switch {
	case st.Stage == models.StageAwaitingConfirmation:
		return []models.ChatAction{{Label: "Confirm order", Text: "yes"}, {Label: "Cancel", Text: "no"}}
	case st.Stage == models.StageCollectingName || st.Stage == models.StageCollectingPhone:
		return nil
	case st.Stage == models.StagePlaced && st.Cart.IsEmpty():
		return []models.ChatAction{{Label: "Start a new order", Text: "show me the menu"}}
	case !st.Cart.IsEmpty():
		return []models.ChatAction{{Label: "Checkout", Text: "checkout"}, {Label: "View cart", Text: "show my cart"}}
	default:
		return []models.ChatAction{{Label: "See menu", Text: "show me the menu"}, {Label: "Deals", Text: "what deals do you have"}}
	}
}

// splitSegments breaks a multi-item request apart, dropping parts with no content words.
func splitSegments(text string) []string {
	parts := segmentSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, tok := range catalog.Tokenize(p) {
			if !segmentFiller[tok] {
				out = append(out, p)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// sessionLocks serializes turns per session and forgets idle sessions.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &sessionLock{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}
