package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	errx "github.com/tanpawarit/research-agent/internal/core/error"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

// RedisConversationRepository stores each checkpoint as one JSON document.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) conversationKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:checkpoint", conversationID)
}

func (r *RedisConversationRepository) Load(ctx context.Context, conversationID string) (*model.Checkpoint, error) {
	key := r.conversationKey(conversationID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation from redis")
		return nil, errx.WrapRedis(err)
	}

	var cp model.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to unmarshal checkpoint")
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (r *RedisConversationRepository) Save(ctx context.Context, conversationID string, messages []*schema.Message) (*model.Checkpoint, error) {
	prev, err := r.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	cp := &model.Checkpoint{
		ConversationID: conversationID,
		Messages:       messages,
		Step:           model.NextStep(prev),
		UpdatedAt:      time.Now().UTC(),
	}
	b, err := json.Marshal(cp)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to marshal checkpoint")
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}

	key := r.conversationKey(conversationID)
	// A zero ttl keeps the key forever.
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save checkpoint to redis")
		return nil, errx.WrapRedis(err)
	}
	return cp, nil
}

func (r *RedisConversationRepository) Delete(ctx context.Context, conversationID string) error {
	key := r.conversationKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
