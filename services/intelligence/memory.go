// File: services/intelligence/memory.go
package ai

import (
	"context"
	"fmt"

	transcriptRepo "broadway/database/repository/transcript"
	"broadway/models"

	"go.uber.org/zap"
)

const (
	memoryPreamble = "LONG TERM MEMORY (PREVIOUS CONVERSATIONS):\n%s\n\n(Use this to remember user context, orders, and name)"
	memoryAck      = "Understood. I have the context."
	noSummary      = "No previous summary."
)

// TranscriptMemory builds the model's context window from the transcript store and keeps its summary fresh.
type TranscriptMemory struct {
	repo       transcriptRepo.TranscriptRepository
	model      Model
	bufferSize int
	threshold  int
	logger     *zap.Logger
}

func NewTranscriptMemory(repo transcriptRepo.TranscriptRepository, model Model, bufferSize, threshold int, logger *zap.Logger) *TranscriptMemory {
	return &TranscriptMemory{repo: repo, model: model, bufferSize: bufferSize, threshold: threshold, logger: logger}
}

// Window is the optional summary exchange followed by the last bufferSize messages.
func (m *TranscriptMemory) Window(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	summary, err := m.repo.Summary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	recent, err := m.repo.Recent(ctx, sessionID, m.bufferSize)
	if err != nil {
		return nil, err
	}

	window := make([]models.ChatMessage, 0, len(recent)+2)
	if summary != "" {
		window = append(window,
			models.ChatMessage{SessionID: sessionID, Role: models.RoleUser, Content: fmt.Sprintf(memoryPreamble, summary)},
			models.ChatMessage{SessionID: sessionID, Role: models.RoleAssistant, Content: memoryAck},
		)
	}
	return append(window, recent...), nil
}

// Record appends messages and returns the session's message count afterwards.
func (m *TranscriptMemory) Record(ctx context.Context, sessionID string, msgs ...models.ChatMessage) (int64, error) {
	if err := m.repo.EnsureSession(ctx, sessionID); err != nil {
		return 0, err
	}
	if err := m.repo.Append(ctx, msgs...); err != nil {
		return 0, err
	}
	return m.repo.Count(ctx, sessionID)
}

func (m *TranscriptMemory) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return m.repo.All(ctx, sessionID)
}

func (m *TranscriptMemory) LinkCustomer(ctx context.Context, sessionID, phone string) error {
	return m.repo.AssociateCustomer(ctx, sessionID, phone)
}

func (m *TranscriptMemory) Forget(ctx context.Context, sessionID string) error {
	return m.repo.DeleteSession(ctx, sessionID)
}

// ShouldSummarize reports whether a message count has reached the summary threshold.
func (m *TranscriptMemory) ShouldSummarize(count int64) bool {
	return count >= int64(m.threshold)
}

// Summarize folds everything older than the live buffer into the stored summary.
func (m *TranscriptMemory) Summarize(ctx context.Context, sessionID string) error {
	count, err := m.repo.Count(ctx, sessionID)
	if err != nil {
		return err
	}
	if !m.ShouldSummarize(count) {
		m.logger.Debug("skipping summarization", zap.String("session", sessionID), zap.Int64("messages", count))
		return nil
	}
	limit := int(count) - m.bufferSize
	if limit <= 0 {
		return nil
	}

	prior, err := m.repo.Summary(ctx, sessionID)
	if err != nil {
		return err
	}
	if prior == "" {
		prior = noSummary
	}
	older, err := m.repo.Oldest(ctx, sessionID, limit)
	if err != nil {
		return err
	}
	if len(older) == 0 {
		return nil
	}

	summary, err := m.model.Summarize(ctx, prior, older)
	if err != nil {
		return &models.UpstreamError{Op: "summarize transcript", Err: err}
	}
	if err := m.repo.UpsertSummary(ctx, sessionID, summary); err != nil {
		return err
	}
	m.logger.Info("updated transcript summary", zap.String("session", sessionID), zap.Int("summarized", len(older)))
	return nil
}
