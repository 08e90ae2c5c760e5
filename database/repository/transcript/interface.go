package transcriptRepo

import (
	"context"

	"broadway/models"
)

// TranscriptRepository persists chat sessions, messages and their rolling summaries.
type TranscriptRepository interface {
	EnsureSession(ctx context.Context, sessionID string) error
	AssociateCustomer(ctx context.Context, sessionID, phone string) error
	CustomerPhone(ctx context.Context, sessionID string) (string, error)

	Append(ctx context.Context, msgs ...models.ChatMessage) error
	// Recent returns the last n messages in chronological order.
	Recent(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error)
	All(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	Count(ctx context.Context, sessionID string) (int64, error)
	Oldest(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Summary prefers the latest summary for the customer's phone, falling back to the session's own.
	Summary(ctx context.Context, sessionID string) (string, error)
	UpsertSummary(ctx context.Context, sessionID, summary string) error
}
