package services

import (
	"context"
	"fmt"
	"log/slog"
	"swear-jar/contract"
	"swear-jar/domain"
	"swear-jar/errors"
	"swear-jar/observability"
)

// LedgerService is the only writer of the offense ledger.
type LedgerService struct {
	log        *slog.Logger
	repository contract.LedgerRepository
}

func NewLedgerService(log *slog.Logger, repository contract.LedgerRepository) *LedgerService {
	return &LedgerService{log: log, repository: repository}
}

func (s *LedgerService) Increment(ctx context.Context, participant domain.ParticipantID, delta uint64) (uint64, error) {
	if delta == 0 {
		return 0, errors.ErrInvalidDelta
	}
	total, err := s.repository.Increment(ctx, participant, delta)
	if err != nil {
		observability.LedgerErrors.WithLabelValues("increment").Inc()
		return 0, fmt.Errorf("increment %s: %w", participant, err)
	}
	s.log.Debug("Ledger incremented", "participant", participant, "delta", delta, "total", total)
	return total, nil
}

func (s *LedgerService) Get(ctx context.Context, participant domain.ParticipantID) (uint64, error) {
	count, err := s.repository.Get(ctx, participant)
	if err != nil {
		observability.LedgerErrors.WithLabelValues("get").Inc()
		return 0, err
	}
	return count, nil
}

func (s *LedgerService) TopK(ctx context.Context, k int) ([]domain.LedgerEntry, error) {
	if k <= 0 {
		return []domain.LedgerEntry{}, nil
	}
	entries, err := s.repository.TopK(ctx, k)
	if err != nil {
		observability.LedgerErrors.WithLabelValues("top").Inc()
		return nil, err
	}
	return entries, nil
}
