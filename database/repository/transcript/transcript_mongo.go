package transcriptRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"broadway/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	sessionsCollection  = "chat_sessions"
	messagesCollection  = "chat_messages"
	summariesCollection = "chat_summaries"
)

// MongoTranscriptRepo implements TranscriptRepository using MongoDB.
type MongoTranscriptRepo struct {
	sessions  *mongo.Collection
	messages  *mongo.Collection
	summaries *mongo.Collection
	logger    *zap.Logger
}

// NewMongoTranscriptRepo creates the repository and makes sure its indexes exist.
func NewMongoTranscriptRepo(db *mongo.Database, logger *zap.Logger) TranscriptRepository {
	repo := &MongoTranscriptRepo{
		sessions:  db.Collection(sessionsCollection),
		messages:  db.Collection(messagesCollection),
		summaries: db.Collection(summariesCollection),
		logger:    logger,
	}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create transcript indexes", zap.Error(err))
	}
	return repo
}

func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoTranscriptRepo) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := r.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_phone", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if _, err := r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
	}); err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	if _, err := r.summaries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer_phone", Value: 1}, {Key: "updated_at", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("summaries: %w", err)
	}
	return nil
}

func (r *MongoTranscriptRepo) EnsureSession(ctx context.Context, sessionID string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	_, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$setOnInsert": bson.M{"session_id": sessionID, "started_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure session %s: %w", sessionID, err)
	}
	return nil
}

func (r *MongoTranscriptRepo) AssociateCustomer(ctx context.Context, sessionID, phone string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	_, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$set":         bson.M{"customer_phone": phone},
			"$setOnInsert": bson.M{"started_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to link session %s to customer: %w", sessionID, err)
	}
	_, err = r.summaries.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"customer_phone": phone}},
	)
	if err != nil {
		return fmt.Errorf("failed to tag summary for session %s: %w", sessionID, err)
	}
	return nil
}

func (r *MongoTranscriptRepo) CustomerPhone(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var s models.ChatSession
	err := r.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return s.CustomerPhone, nil
}

func (r *MongoTranscriptRepo) Append(ctx context.Context, msgs ...models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	docs := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now().UTC()
		}
		docs = append(docs, m)
	}
	if _, err := r.messages.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

func (r *MongoTranscriptRepo) Recent(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return []models.ChatMessage{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(n))
	msgs, err := r.find(ctx, sessionID, opts)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *MongoTranscriptRepo) All(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return r.find(ctx, sessionID, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r *MongoTranscriptRepo) Oldest(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return []models.ChatMessage{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(n))
	return r.find(ctx, sessionID, opts)
}

func (r *MongoTranscriptRepo) find(ctx context.Context, sessionID string, opts *options.FindOptions) ([]models.ChatMessage, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.messages.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	msgs := []models.ChatMessage{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages for %s: %w", sessionID, err)
	}
	return msgs, nil
}

func (r *MongoTranscriptRepo) Count(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	n, err := r.messages.CountDocuments(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count messages for %s: %w", sessionID, err)
	}
	return n, nil
}

func (r *MongoTranscriptRepo) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"session_id": sessionID}
	if _, err := r.messages.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete messages for %s: %w", sessionID, err)
	}
	if _, err := r.summaries.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete summary for %s: %w", sessionID, err)
	}
	if _, err := r.sessions.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (r *MongoTranscriptRepo) Summary(ctx context.Context, sessionID string) (string, error) {
	phone, err := r.CustomerPhone(ctx, sessionID)
	if err != nil {
		return "", err
	}

	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"session_id": sessionID}
	if phone != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{"customer_phone": phone},
			bson.M{"session_id": sessionID},
		}}
	}
	var s models.ChatSummary
	err = r.summaries.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load summary for %s: %w", sessionID, err)
	}
	return s.Summary, nil
}

func (r *MongoTranscriptRepo) UpsertSummary(ctx context.Context, sessionID, summary string) error {
	phone, err := r.CustomerPhone(ctx, sessionID)
	if err != nil {
		return err
	}

	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"summary": summary, "updated_at": time.Now().UTC()}
	if phone != "" {
		set["customer_phone"] = phone
	}
	_, err = r.summaries.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"session_id": sessionID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary for %s: %w", sessionID, err)
	}
	return nil
}
