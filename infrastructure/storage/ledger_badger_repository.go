package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"swear-jar/contract"
	"swear-jar/domain"

	"github.com/dgraph-io/badger/v4"
)

const LedgerPrefix = "ledger:"

var _ contract.LedgerRepository = (*BadgerLedgerRepository)(nil)

// BadgerLedgerRepository persists the ledger in BadgerDB.
// Keys are "ledger:{participant_id}" and values the count as 8 big-endian bytes.
type BadgerLedgerRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerLedgerRepository(db *badger.DB, log *slog.Logger) *BadgerLedgerRepository {
	return &BadgerLedgerRepository{db: db, log: log}
}

// Increment adds delta inside a read-write transaction.
// Two transactions touching the same key conflict at commit; the loser is
// replayed on a fresh snapshot so no update is lost.
func (r *BadgerLedgerRepository) Increment(ctx context.Context, participant domain.ParticipantID, delta uint64) (uint64, error) {
	key := LedgerKey(participant)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		var total uint64
		err := r.db.Update(func(txn *badger.Txn) error {
			current, err := readCount(txn, key)
			if err != nil {
				return err
			}
			total = current + delta
			return txn.Set(key, EncodeCount(total))
		})
		if errors.Is(err, badger.ErrConflict) {
			r.log.Debug("Ledger transaction conflict, retrying", "participant", participant, "attempt", attempt)
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("ledger increment failed: %w", err)
		}
		return total, nil
	}
}

func (r *BadgerLedgerRepository) Get(_ context.Context, participant domain.ParticipantID) (uint64, error) {
	var count uint64
	err := r.db.View(func(txn *badger.Txn) error {
		c, err := readCount(txn, LedgerKey(participant))
		count = c
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("ledger read failed: %w", err)
	}
	return count, nil
}

// TopK scans the ledger prefix inside one read transaction, which is a
// consistent snapshot of every committed increment.
func (r *BadgerLedgerRepository) TopK(_ context.Context, k int) ([]domain.LedgerEntry, error) {
	if k <= 0 {
		return []domain.LedgerEntry{}, nil
	}
	var entries []domain.LedgerEntry
	prefix := []byte(LedgerPrefix)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			participant := domain.ParticipantID(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				count, err := DecodeCount(val)
				if err != nil {
					return err
				}
				entries = append(entries, domain.LedgerEntry{Participant: participant, Count: count})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger scan failed: %w", err)
	}
	return domain.RankEntries(entries, k), nil
}

func LedgerKey(participant domain.ParticipantID) []byte {
	return []byte(LedgerPrefix + string(participant))
}

func readCount(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count uint64
	err = item.Value(func(val []byte) error {
		count, err = DecodeCount(val)
		return err
	})
	return count, err
}

func EncodeCount(count uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return buf
}

func DecodeCount(val []byte) (uint64, error) {
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid ledger value of %d bytes", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}
