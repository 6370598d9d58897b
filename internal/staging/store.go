// Package staging holds parsed rubric batches between upload and the reviewer's policy choice.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

const keyPrefix = "rubric:staged:"

// DefaultTTL is used when the store is built without an explicit lifetime.
const DefaultTTL = 30 * time.Minute

var (
	// ErrBatchNotFound indicates an unknown, consumed or expired token.
	ErrBatchNotFound = errors.New("staged batch not found")
	// ErrInvalidToken indicates a token that is not a UUID.
	ErrInvalidToken = errors.New("invalid staging token")
)

// Batch is a parsed rubric waiting for a reconciliation policy.
type Batch struct {
	ExamID     uint                 `json:"exam_id"`
	ActorID    uint                 `json:"actor_id"`
	SourceName string               `json:"source_name"`
	Metrics    []models.Metric      `json:"metrics"`
	Dropped    []rubric.DroppedLine `json:"dropped"`
	StagedAt   time.Time            `json:"staged_at"`
}

// StagedBatch is a batch addressed by its opaque token.
type StagedBatch struct {
	Token     string    `json:"token"`
	Batch     Batch     `json:"batch"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps staged batches for a bounded time.
type Store interface {
	Stage(ctx context.Context, batch Batch) (StagedBatch, error)
	Retrieve(ctx context.Context, token string) (StagedBatch, error)
	Discard(ctx context.Context, token string) error
	Restore(ctx context.Context, staged StagedBatch) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore builds a Store backed by Redis keys with a TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *redisStore) Stage(ctx context.Context, batch Batch) (StagedBatch, error) {
	now := s.now().UTC()
	if batch.StagedAt.IsZero() {
		batch.StagedAt = now
	}

	staged := StagedBatch{
		Token:     uuid.NewString(),
		Batch:     batch,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.write(ctx, staged, s.ttl); err != nil {
		return StagedBatch{}, err
	}
	return staged, nil
}

func (s *redisStore) Retrieve(ctx context.Context, token string) (StagedBatch, error) {
	if err := validateToken(token); err != nil {
		return StagedBatch{}, err
	}

	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return StagedBatch{}, ErrBatchNotFound
	}
	if err != nil {
		return StagedBatch{}, fmt.Errorf("read staged batch: %w", err)
	}

	var staged StagedBatch
	if err := json.Unmarshal(payload, &staged); err != nil {
		return StagedBatch{}, fmt.Errorf("decode staged batch: %w", err)
	}
	return staged, nil
}

// Discard removes the batch. Only one caller can discard a given token; the others
// observe ErrBatchNotFound.
func (s *redisStore) Discard(ctx context.Context, token string) error {
	if err := validateToken(token); err != nil {
		return err
	}

	removed, err := s.client.Del(ctx, keyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("discard staged batch: %w", err)
	}
	if removed == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// Restore puts a discarded batch back for its remaining lifetime.
func (s *redisStore) Restore(ctx context.Context, staged StagedBatch) error {
	if err := validateToken(staged.Token); err != nil {
		return err
	}

	remaining := staged.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return ErrBatchNotFound
	}
	return s.write(ctx, staged, remaining)
}

func (s *redisStore) write(ctx context.Context, staged StagedBatch, ttl time.Duration) error {
	payload, err := json.Marshal(staged)
	if err != nil {
		return fmt.Errorf("encode staged batch: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+staged.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store staged batch: %w", err)
	}
	return nil
}

func validateToken(token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	return nil
}
