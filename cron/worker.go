package cron

import (
	"context"
	"fmt"
	"time"

	"broadway/services/tasks"
	"broadway/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Summarizer folds a session's older transcript into its stored summary.
type Summarizer interface {
	Summarize(ctx context.Context, sessionID string) error
}

// SummaryWorker runs the background transcript summarization queue.
type SummaryWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	opt    asynq.RedisClientOpt
	logger *zap.Logger
}

func NewSummaryWorker(opt asynq.RedisClientOpt, summarizer Summarizer, logger *zap.Logger) *SummaryWorker {
	srv := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSummarizeTranscript, handleSummarizeTask(summarizer, logger))

	return &SummaryWorker{srv: srv, mux: mux, opt: opt, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *SummaryWorker) Start(ctx context.Context) {
	go w.monitorRedisConnection(ctx)

	go func() {
		w.logger.Info("starting summary worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("summary worker failed to start",
				zap.Int("attempt", attempts), zap.Int("max", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("summary worker gave up; transcripts will not be summarized")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
}

// Shutdown drains in-flight tasks and stops the server.
func (w *SummaryWorker) Shutdown() {
	w.srv.Shutdown()
}

func handleSummarizeTask(summarizer Summarizer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseSummarizePayload(task)
		if err != nil {
			logger.Error("invalid summarize payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		if err := summarizer.Summarize(ctx, p.SessionID); err != nil {
			logger.Warn("transcript summarization failed", zap.String("session", p.SessionID), zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings the queue database periodically to surface outages in the logs.
func (w *SummaryWorker) monitorRedisConnection(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     w.opt.Addr,
		Password: w.opt.Password,
		DB:       w.opt.DB,
	})
	defer client.Close()

	ticker := time.NewTicker(utils.QueueHealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				w.logger.Warn("queue redis connection lost", zap.Error(err))
			}
		}
	}
}
