package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/aldr/autonomi-service/internal/model"
)

// Redis keeps each record as a JSON string under <prefix>:record:<id> and
// tracks ids in the set <prefix>:records.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "autonomi"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) recordKey(id string) string { return r.prefix + ":record:" + id }
func (r *Redis) indexKey() string           { return r.prefix + ":records" }

func (r *Redis) Put(ctx context.Context, rec model.HealthRecord) (model.Receipt, error) {
	id, err := Address(rec)
	if err != nil {
		return model.Receipt{}, err
	}
	body, err := json.Marshal(rec.WithID(id))
	if err != nil {
		return model.Receipt{}, fmt.Errorf("marshal record: %w", err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.recordKey(id), body, 0)
	pipe.SAdd(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.Receipt{}, fmt.Errorf("redis put %s: %w", id, err)
	}
	return model.Receipt{ID: id, Stored: true}, nil
}

func (r *Redis) Get(ctx context.Context, id string) (model.HealthRecord, error) {
	bs, err := r.rdb.Get(ctx, r.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.HealthRecord{}, ErrNotFound
	}
	if err != nil {
		return model.HealthRecord{}, fmt.Errorf("redis get %s: %w", id, err)
	}
	var rec model.HealthRecord
	if err := json.Unmarshal(bs, &rec); err != nil {
		return model.HealthRecord{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

func (r *Redis) List(ctx context.Context) ([]model.HealthRecord, error) {
	ids, err := r.rdb.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	sort.Strings(ids)
	out := make([]model.HealthRecord, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// id left in the index after its key expired or was deleted
			continue
		}
		var rec model.HealthRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
