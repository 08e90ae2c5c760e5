// File: services/intelligence/contextStore.go
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"broadway/models"
	"broadway/utils"

	"github.com/go-redis/redis/v8"
)

// RedisStateStore keeps ConversationState as JSON under chat:state:<session> with a sliding TTL.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Get(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, utils.SessionStatePrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewConversationState(sessionID), nil
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "load conversation state", Err: err}
	}
	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &models.PersistenceError{Op: "decode conversation state", Err: err}
	}
	if state.Stage == "" {
		state.Stage = models.StageIdle
	}
	state.SessionID = sessionID
	return &state, nil
}

func (s *RedisStateStore) Set(ctx context.Context, state *models.ConversationState) error {
	state.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(state)
	if err != nil {
		return &models.PersistenceError{Op: "encode conversation state", Err: err}
	}
	if err := s.client.Set(ctx, utils.SessionStatePrefix+state.SessionID, b, s.ttl).Err(); err != nil {
		return &models.PersistenceError{Op: "save conversation state", Err: err}
	}
	return nil
}

func (s *RedisStateStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, utils.SessionStatePrefix+sessionID).Err(); err != nil {
		return &models.PersistenceError{Op: "clear conversation state", Err: err}
	}
	return nil
}
