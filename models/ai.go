package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChatRequest is the payload coming from the chat widget into /api/chat/turn.
type ChatRequest struct {
	SessionID string `json:"session_id"` // empty on the first turn
	Text      string `json:"text"`       // user's message (typed or transcribed)
}

// ChatAction is a quick-reply button the widget may render under the reply.
type ChatAction struct {
	Label string `json:"label"`
	Text  string `json:"text"` // utterance sent when tapped
}

// CartView is the authoritative cart state rendered next to every reply.
type CartView struct {
	Lines     []CartLine      `json:"lines"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
	Summary   string          `json:"summary"`
}

// NewCartView snapshots a cart for the UI.
func NewCartView(c Cart, currency string) CartView {
	lines := c.Lines
	if lines == nil {
		lines = []CartLine{}
	}
	return CartView{
		Lines:     lines,
		ItemCount: c.ItemCount(),
		Total:     c.Total(),
		Summary:   c.Summary(currency),
	}
}

// ChatResponse is what the turn endpoint returns to the widget.
type ChatResponse struct {
	SessionID string             `json:"session_id"`
	Intent    string             `json:"intent"`
	Stage     Stage              `json:"stage"`
	Reply     string             `json:"response"` // natural-language reply
	Cart      CartView           `json:"cart"`
	Order     *OrderConfirmation `json:"order,omitempty"`
	Actions   []ChatAction       `json:"actions,omitempty"`
	Error     string             `json:"error,omitempty"` // not_found, validation, upstream, persistence
}

// Stage is the checkout lifecycle position of a conversation.
type Stage string

const (
	StageIdle                 Stage = "idle"
	StageCollectingName       Stage = "collecting_name"
	StageCollectingPhone      Stage = "collecting_phone"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StagePlaced               Stage = "placed"
)

// InCheckout reports whether a checkout is under way.
func (s Stage) InCheckout() bool {
	switch s {
	case StageCollectingName, StageCollectingPhone, StageAwaitingConfirmation:
		return true
	}
	return false
}

// ConversationState is everything one session owns between turns.
type ConversationState struct {
	SessionID     string    `json:"sessionId"`
	Cart          Cart      `json:"cart"`
	CustomerName  string    `json:"customerName,omitempty"`
	CustomerPhone string    `json:"customerPhone,omitempty"`
	Stage         Stage     `json:"stage"`
	LastOrderID   int64     `json:"lastOrderId,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewConversationState starts an empty, idle conversation.
func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{SessionID: sessionID, Stage: StageIdle}
}

// Clone deep-copies the state, including the cart lines.
func (s *ConversationState) Clone() *ConversationState {
	cp := *s
	cp.Cart = s.Cart.Clone()
	return &cp
}

// ChatRole is the author of a transcript message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one persisted transcript entry.
type ChatMessage struct {
	SessionID string    `json:"sessionId" bson:"session_id"`
	Role      ChatRole  `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// SummarizePayload is the background job payload for transcript summarization.
type SummarizePayload struct {
	SessionID string `json:"session_id"`
}

// ChatSession links a session to the customer phone collected at checkout.
type ChatSession struct {
	SessionID     string    `json:"sessionId" bson:"session_id"`
	CustomerPhone string    `json:"customerPhone,omitempty" bson:"customer_phone,omitempty"`
	StartedAt     time.Time `json:"startedAt" bson:"started_at"`
}

// ChatSummary is a rolling summary of older transcript messages.
type ChatSummary struct {
	SessionID     string    `json:"sessionId" bson:"session_id"`
	CustomerPhone string    `json:"customerPhone,omitempty" bson:"customer_phone,omitempty"`
	Summary       string    `json:"summary" bson:"summary"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updated_at"`
}
