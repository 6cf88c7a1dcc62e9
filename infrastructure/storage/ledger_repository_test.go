package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"swear-jar/contract"
	"swear-jar/domain"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// SetupTestDB initializes a temporary Badger instance for testing
func SetupTestDB(t *testing.T) (*badger.DB, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	return db, func() {
		db.Close()
	}
}

type substrate struct {
	name  string
	setup func(t *testing.T) (contract.LedgerRepository, func())
}

func substrates() []substrate {
	return []substrate{
		{
			name: "memory",
			setup: func(t *testing.T) (contract.LedgerRepository, func()) {
				return NewMemoryLedgerRepository(), func() {}
			},
		},
		{
			name: "badger",
			setup: func(t *testing.T) (contract.LedgerRepository, func()) {
				db, cleanup := SetupTestDB(t)
				return NewBadgerLedgerRepository(db, logs.GetLoggerFromLevel(slog.LevelInfo)), cleanup
			},
		},
		{
			name: "redis",
			setup: func(t *testing.T) (contract.LedgerRepository, func()) {
				addr := os.Getenv("REDIS_ADDR")
				if addr == "" {
					t.Skip("REDIS_ADDR not set")
				}
				client := redis.NewClient(&redis.Options{Addr: addr})
				prefix := "swearjar-test-" + uuid.NewString()
				return NewRedisLedgerRepository(client, prefix), func() {
					client.Del(context.Background(), prefix+":ledger")
					_ = client.Close()
				}
			},
		},
	}
}

func TestLedgerRepository_IncrementAndGet(t *testing.T) {
	for _, s := range substrates() {
		t.Run(s.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			repo, cleanup := s.setup(t)
			defer cleanup()

			// Given an unknown participant
			count, err := repo.Get(ctx, "nobody")
			// Then the count is zero and no error is returned
			req.NoError(err)
			req.Zero(count)

			// When incrementing twice
			total, err := repo.Increment(ctx, "alice", 2)
			req.NoError(err)
			req.Equal(uint64(2), total)
			total, err = repo.Increment(ctx, "alice", 3)
			req.NoError(err)

			// Then the new total is returned and persisted
			req.Equal(uint64(5), total)
			count, err = repo.Get(ctx, "alice")
			req.NoError(err)
			req.Equal(uint64(5), count)
		})
	}
}

func TestLedgerRepository_ConcurrentIncrements(t *testing.T) {
	for _, s := range substrates() {
		t.Run(s.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			repo, cleanup := s.setup(t)
			defer cleanup()

			participants := []domain.ParticipantID{"alice", "bob", "carol"}
			goroutines := 20
			increments := 25

			// Given many goroutines incrementing the same keys with different deltas
			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < increments; i++ {
						for _, p := range participants {
							_, err := repo.Increment(ctx, p, uint64(g%3+1))
							if err != nil {
								t.Errorf("increment failed: %v", err)
								return
							}
						}
					}
				}(g)
			}
			wg.Wait()

			// Then the final value equals the sum of all deltas
			var expected uint64
			for g := 0; g < goroutines; g++ {
				expected += uint64(increments * (g%3 + 1))
			}
			for _, p := range participants {
				count, err := repo.Get(ctx, p)
				req.NoError(err)
				req.Equal(expected, count, "participant=%s", p)
			}
		})
	}
}

func TestLedgerRepository_TopK(t *testing.T) {
	for _, s := range substrates() {
		t.Run(s.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			repo, cleanup := s.setup(t)
			defer cleanup()

			// Given participants with ties on the boundary
			seed := map[domain.ParticipantID]uint64{
				"dave":  3,
				"bob":   10,
				"carol": 3,
				"alice": 3,
				"erin":  1,
			}
			for p, c := range seed {
				_, err := repo.Increment(ctx, p, c)
				req.NoError(err)
			}

			// When asking for the top 3
			top, err := repo.TopK(ctx, 3)
			req.NoError(err)

			// Then entries are sorted by count descending then ID ascending
			req.Equal([]domain.LedgerEntry{
				{Participant: "bob", Count: 10},
				{Participant: "alice", Count: 3},
				{Participant: "carol", Count: 3},
			}, top)

			all, err := repo.TopK(ctx, 10)
			req.NoError(err)
			req.Len(all, len(seed))
			req.Equal(domain.ParticipantID("erin"), all[len(all)-1].Participant)

			none, err := repo.TopK(ctx, 0)
			req.NoError(err)
			req.Empty(none)
		})
	}
}

func TestLedgerRepository_TopKWhileIncrementing(t *testing.T) {
	for _, s := range substrates() {
		t.Run(s.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			repo, cleanup := s.setup(t)
			defer cleanup()

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 200; i++ {
					_, _ = repo.Increment(ctx, domain.ParticipantID(fmt.Sprintf("p%02d", i%10)), 1)
				}
			}()

			// Then every snapshot is sorted and bounded, whatever the interleaving
			for {
				top, err := repo.TopK(ctx, 5)
				req.NoError(err)
				req.LessOrEqual(len(top), 5)
				for i := 1; i < len(top); i++ {
					prev, cur := top[i-1], top[i]
					req.True(prev.Count > cur.Count ||
						(prev.Count == cur.Count && prev.Participant < cur.Participant))
				}
				select {
				case <-done:
					return
				default:
				}
			}
		})
	}
}

func TestBadgerLedgerRepository_Encoding(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	repo := NewBadgerLedgerRepository(db, slog.Default())

	_, err := repo.Increment(context.Background(), "alice", 7)
	req.NoError(err)

	// The raw value is an 8-byte big-endian counter under the ledger prefix
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("ledger:alice"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			count, err := DecodeCount(val)
			req.Equal(uint64(7), count)
			return err
		})
	})
	req.NoError(err)

	_, err = DecodeCount([]byte{1, 2, 3})
	req.Error(err)
}

func TestBadgerLedgerRepository_CanceledContext(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()
	repo := NewBadgerLedgerRepository(db, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Increment(ctx, "alice", 1)
	req.ErrorIs(err, context.Canceled)
}

func TestParseScores(t *testing.T) {
	req := require.New(t)
	entries, err := parseScores([]string{"alice", "3", "bob", "10"})
	req.NoError(err)
	req.Equal([]domain.LedgerEntry{{Participant: "alice", Count: 3}, {Participant: "bob", Count: 10}}, entries)

	_, err = parseScores([]string{"alice"})
	req.Error(err)
	_, err = parseScores([]string{"alice", "x"})
	req.Error(err)
}
