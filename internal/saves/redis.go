package saves

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "deepfall:save"

// RedisRepository persists saves in Redis, one JSON value per slot.
type RedisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository wraps an existing client; the caller owns its
// lifecycle.
func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

var _ Repository = (*RedisRepository)(nil)

func redisKey(playerID string, slot int) string {
	return fmt.Sprintf("%s:%s:%d", redisKeyPrefix, playerID, slot)
}

func (r *RedisRepository) Save(ctx context.Context, data SaveData) (int, error) {
	existing, err := r.List(ctx, data.PlayerID)
	if err != nil {
		return 0, err
	}
	slot := pickSlot(existing)
	if err := r.SaveSlot(ctx, slot, data); err != nil {
		return 0, err
	}
	return slot, nil
}

func (r *RedisRepository) SaveSlot(ctx context.Context, slot int, data SaveData) error {
	if !validSlot(slot) {
		return ErrInvalidSlot
	}
	data.SchemaVersion = SchemaVersion
	if data.SavedAt.IsZero() {
		data.SavedAt = time.Now()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(data.PlayerID, slot), payload, 0).Err(); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	return nil
}

func (r *RedisRepository) Load(ctx context.Context, playerID string, slot int) (SaveData, error) {
	if !validSlot(slot) {
		return SaveData{}, ErrInvalidSlot
	}
	raw, err := r.client.Get(ctx, redisKey(playerID, slot)).Bytes()
	if err == redis.Nil {
		return SaveData{}, ErrNoSlot
	}
	if err != nil {
		return SaveData{}, fmt.Errorf("read save: %w", err)
	}
	var data SaveData
	if err := json.Unmarshal(raw, &data); err != nil {
		// Unreadable records count as absent, same as a version mismatch.
		return SaveData{}, ErrNoSlot
	}
	if !usable(&data) {
		return SaveData{}, ErrNoSlot
	}
	return data, nil
}

func (r *RedisRepository) List(ctx context.Context, playerID string) ([SlotCount]*SaveData, error) {
	var out [SlotCount]*SaveData
	for slot := 0; slot < SlotCount; slot++ {
		data, err := r.Load(ctx, playerID, slot)
		if err == ErrNoSlot {
			continue
		}
		if err != nil {
			return out, err
		}
		copied := data
		out[slot] = &copied
	}
	return out, nil
}

func (r *RedisRepository) Delete(ctx context.Context, playerID string, slot int) error {
	if !validSlot(slot) {
		return ErrInvalidSlot
	}
	if err := r.client.Del(ctx, redisKey(playerID, slot)).Err(); err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	return nil
}
