package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"venuecal/internal/app/middleware"
)

const keyPrefix = "venuecal:idempotency:"

// IdempotencyStore shares command results across instances. Entries expire after ttl.
type IdempotencyStore struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

func NewIdempotencyStore(rdb goredis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

type idempotencyEntry struct {
	Command    string `json:"command"`
	Payload    []byte `json:"payload,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	var entry idempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{
		Key:        key,
		Command:    entry.Command,
		Payload:    entry.Payload,
		OccurredAt: time.UnixMilli(entry.OccurredAt).UTC(),
	}, true, nil
}

// Save keeps the first result stored under a key; a concurrent duplicate does not overwrite it.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(idempotencyEntry{
		Command:    rec.Command,
		Payload:    rec.Payload,
		OccurredAt: rec.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return s.rdb.SetNX(ctx, keyPrefix+rec.Key, raw, s.ttl).Err()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
