package storage

import (
	"context"
	"swear-jar/contract"
	"swear-jar/domain"

	"github.com/puzpuzpuz/xsync/v3"
)

var _ contract.LedgerRepository = (*MemoryLedgerRepository)(nil)

// MemoryLedgerRepository keeps the ledger in a sharded concurrent map.
// Compute runs the read-modify-write under the bucket lock of the key, so two
// increments of one participant serialize while distinct participants rarely share a bucket.
type MemoryLedgerRepository struct {
	counts *xsync.MapOf[domain.ParticipantID, uint64]
}

func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{counts: xsync.NewMapOf[domain.ParticipantID, uint64]()}
}

func (r *MemoryLedgerRepository) Increment(_ context.Context, participant domain.ParticipantID, delta uint64) (uint64, error) {
	total, _ := r.counts.Compute(participant, func(current uint64, _ bool) (uint64, bool) {
		return current + delta, false
	})
	return total, nil
}

func (r *MemoryLedgerRepository) Get(_ context.Context, participant domain.ParticipantID) (uint64, error) {
	count, _ := r.counts.Load(participant)
	return count, nil
}

// TopK ranges over the entries; every value read is a whole committed total.
func (r *MemoryLedgerRepository) TopK(_ context.Context, k int) ([]domain.LedgerEntry, error) {
	if k <= 0 {
		return []domain.LedgerEntry{}, nil
	}
	entries := make([]domain.LedgerEntry, 0, r.counts.Size())
	r.counts.Range(func(participant domain.ParticipantID, count uint64) bool {
		entries = append(entries, domain.LedgerEntry{Participant: participant, Count: count})
		return true
	})
	return domain.RankEntries(entries, k), nil
}
