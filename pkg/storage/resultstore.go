package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitalpath-ai/platform/pkg/assessment"
	"github.com/vitalpath-ai/platform/pkg/common/logger"
)

const resultKeyPrefix = "assessment:result:"

// ResultStore caches terminal assessment records in Redis so pollers
// stop hitting Postgres once a job settles.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ assessment.ResultCache = (*ResultStore)(nil)

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func resultKey(id string) string {
	return resultKeyPrefix + id
}

// Save writes the record with the configured TTL. Non-terminal records
// are skipped; they change too fast to be worth caching.
func (s *ResultStore) Save(ctx context.Context, rec *assessment.Record) error {
	if !rec.State.Terminal() {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", rec.ID, err)
	}
	return s.client.Set(ctx, resultKey(rec.ID), payload, s.ttl).Err()
}

// Get fetches a cached record; a miss is not an error.
func (s *ResultStore) Get(ctx context.Context, id string) (*assessment.Record, bool, error) {
	payload, err := s.client.Get(ctx, resultKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec assessment.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		logger.Log.WithError(err).WithField("job_id", id).Warn("Dropping undecodable cached result")
		s.client.Del(ctx, resultKey(id))
		return nil, false, nil
	}
	return &rec, true, nil
}

// Invalidate removes a cached record.
func (s *ResultStore) Invalidate(ctx context.Context, id string) error {
	return s.client.Del(ctx, resultKey(id)).Err()
}
