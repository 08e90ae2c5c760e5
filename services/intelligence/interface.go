// File: services/intelligence/interface.go
package ai

import (
	"context"

	"broadway/models"
)

// Model produces natural-language replies from a grounded prompt.
type Model interface {
	Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)
	Summarize(ctx context.Context, prior string, messages []models.ChatMessage) (string, error)
}

// StateStore owns the per-session ConversationState between turns.
type StateStore interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationState, error)
	Set(ctx context.Context, state *models.ConversationState) error
	Clear(ctx context.Context, sessionID string) error
}

// IntentResolver classifies an utterance given the current checkout stage.
type IntentResolver interface {
	Resolve(text string, stage models.Stage) Intent
}

// Memory is the transcript-backed context window for the model.
type Memory interface {
	Window(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	Record(ctx context.Context, sessionID string, msgs ...models.ChatMessage) (int64, error)
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	LinkCustomer(ctx context.Context, sessionID, phone string) error
	Forget(ctx context.Context, sessionID string) error
	ShouldSummarize(count int64) bool
}

// Ledger records confirmed orders.
type Ledger interface {
	Insert(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Notifier announces committed orders to downstream consumers.
type Notifier interface {
	PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error
}

// SummaryScheduler queues background transcript summarization.
type SummaryScheduler interface {
	ScheduleSummary(ctx context.Context, sessionID string) error
}

// ChatService is the turn-level entry point used by the HTTP handlers.
type ChatService interface {
	ProcessTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Cart(ctx context.Context, sessionID string) (*models.ConversationState, error)
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	Reset(ctx context.Context, sessionID string) error
}
