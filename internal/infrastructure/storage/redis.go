package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/triage"
)

const (
	adjudicatedSetKey = "digest:adjudicated"
	digestKeyPrefix   = "digest:day:"
)

// RedisRepository keeps decision membership and digest snapshots in
// Redis. Decisions live in one set keyed by arXiv ID, digests as JSON
// strings per day.
type RedisRepository struct {
	client *redis.Client
}

var _ ports.DigestRepository = (*RedisRepository)(nil)

// NewRedisRepository builds a repository from connection details.
func NewRedisRepository(addr, password string, db int) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// AlreadyAdjudicated checks set membership for each ID in one round trip.
func (r *RedisRepository) AlreadyAdjudicated(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.client == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	hits, err := r.client.SMIsMember(ctx, adjudicatedSetKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("check adjudicated set: %w", err)
	}

	result := make(map[string]bool, len(ids))
	for i, id := range ids {
		if i < len(hits) && hits[i] {
			result[id] = true
		}
	}
	return result, nil
}

// SaveDecisions records the IDs as adjudicated.
func (r *RedisRepository) SaveDecisions(ctx context.Context, day string, papers []triage.ScoredPaper) error {
	if r.client == nil || len(papers) == 0 {
		return nil
	}

	members := make([]any, 0, len(papers))
	for _, p := range papers {
		if p.ArxivID != "" {
			members = append(members, p.ArxivID)
		}
	}
	if len(members) == 0 {
		return nil
	}

	if err := r.client.SAdd(ctx, adjudicatedSetKey, members...).Err(); err != nil {
		return fmt.Errorf("add adjudicated ids: %w", err)
	}
	return nil
}

// SaveDigest stores the digest JSON under its day key.
func (r *RedisRepository) SaveDigest(ctx context.Context, digest *triage.Digest) error {
	if r.client == nil || digest == nil {
		return nil
	}

	payload, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	if err := r.client.Set(ctx, digestKeyPrefix+digest.Day, payload, 0).Err(); err != nil {
		return fmt.Errorf("store digest %s: %w", digest.Day, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
