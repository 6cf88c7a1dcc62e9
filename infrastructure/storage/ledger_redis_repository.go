package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"swear-jar/contract"
	"swear-jar/domain"

	"github.com/redis/go-redis/v9"
)

var _ contract.LedgerRepository = (*RedisLedgerRepository)(nil)

// topKScript reads the k best scores and every member tied with the k-th one
// in a single atomic script, so ID ordering on ties is decided in Go.
var topKScript = redis.NewScript(`
local top = redis.call('ZREVRANGE', KEYS[1], 0, tonumber(ARGV[1]) - 1, 'WITHSCORES')
if #top == 0 then
  return {}
end
return redis.call('ZRANGEBYSCORE', KEYS[1], top[#top], '+inf', 'WITHSCORES')
`)

// RedisLedgerRepository stores the ledger in a sorted set shared by every agent process.
type RedisLedgerRepository struct {
	client redis.UniversalClient
	key    string
}

func NewRedisLedgerRepository(client redis.UniversalClient, prefix string) *RedisLedgerRepository {
	return &RedisLedgerRepository{client: client, key: prefix + ":ledger"}
}

// Increment relies on ZINCRBY being atomic per member.
func (r *RedisLedgerRepository) Increment(ctx context.Context, participant domain.ParticipantID, delta uint64) (uint64, error) {
	score, err := r.client.ZIncrBy(ctx, r.key, float64(delta), string(participant)).Result()
	if err != nil {
		return 0, fmt.Errorf("ledger increment failed: %w", err)
	}
	return uint64(score), nil
}

func (r *RedisLedgerRepository) Get(ctx context.Context, participant domain.ParticipantID) (uint64, error) {
	score, err := r.client.ZScore(ctx, r.key, string(participant)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger read failed: %w", err)
	}
	return uint64(score), nil
}

func (r *RedisLedgerRepository) TopK(ctx context.Context, k int) ([]domain.LedgerEntry, error) {
	if k <= 0 {
		return []domain.LedgerEntry{}, nil
	}
	values, err := topKScript.Run(ctx, r.client, []string{r.key}, k).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("ledger scan failed: %w", err)
	}
	entries, err := parseScores(values)
	if err != nil {
		return nil, err
	}
	return domain.RankEntries(entries, k), nil
}

// parseScores turns a WITHSCORES reply (member, score, member, score...) into entries.
func parseScores(values []string) ([]domain.LedgerEntry, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("unexpected sorted set reply of %d values", len(values))
	}
	entries := make([]domain.LedgerEntry, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		score, err := strconv.ParseFloat(values[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score for %s: %w", values[i], err)
		}
		entries = append(entries, domain.LedgerEntry{
			Participant: domain.ParticipantID(values[i]),
			Count:       uint64(score),
		})
	}
	return entries, nil
}
