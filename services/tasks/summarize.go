package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"broadway/utils"

	"github.com/hibiken/asynq"
)

const TypeSummarizeTranscript = "transcript:summarize"

// SummarizePayload names the session whose transcript should be folded into its summary.
type SummarizePayload struct {
	SessionID string `json:"session_id"`
}

func NewSummarizeTask(sessionID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(SummarizePayload{SessionID: sessionID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSummarizeTranscript, b)
	opts := []asynq.Option{
		asynq.Unique(utils.SummaryTaskUniqueness),
		asynq.MaxRetry(3),
	}

	return task, opts, nil
}

// ParseSummarizePayload decodes a task built by NewSummarizeTask.
func ParseSummarizePayload(task *asynq.Task) (SummarizePayload, error) {
	var p SummarizePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, err
	}
	if p.SessionID == "" {
		return p, fmt.Errorf("summarize task without session id")
	}
	return p, nil
}

// Enqueuer is the part of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqScheduler queues summarization jobs on the background queue.
type AsynqScheduler struct {
	client Enqueuer
}

func NewAsynqScheduler(client Enqueuer) *AsynqScheduler {
	return &AsynqScheduler{client: client}
}

// ScheduleSummary enqueues a summarization; one already pending for the session is not an error.
func (s *AsynqScheduler) ScheduleSummary(ctx context.Context, sessionID string) error {
	task, opts, err := NewSummarizeTask(sessionID)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue summarize task: %w", err)
	}
	return nil
}
