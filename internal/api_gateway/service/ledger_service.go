package service

import (
	"context"
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
)

// LedgerServiceImpl implements the LedgerService interface. Balances are
// served through whatever caching the repository provides.
type LedgerServiceImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(logger *slog.Logger, ledgerRepo ledger.Repository) LedgerService {
	return &LedgerServiceImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

func (s *LedgerServiceImpl) GetEntriesByReference(ctx context.Context, referenceType, referenceID string) ([]*ledger.Entry, error) {
	entries, err := s.ledgerRepo.GetByReference(ctx, referenceType, referenceID)
	if err != nil {
		s.logger.Error("Failed to get ledger entries by reference",
			"reference_type", referenceType,
			"reference_id", referenceID,
			"error", err,
		)
		return nil, err
	}
	return entries, nil
}

// GetEntriesByRecipient retrieves a page of entries, newest first
func (s *LedgerServiceImpl) GetEntriesByRecipient(ctx context.Context, recipientID string, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.GetByRecipient(ctx, recipientID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByRecipient(ctx, recipientID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (s *LedgerServiceImpl) GetBalance(ctx context.Context, recipientID string) (int64, error) {
	balance, err := s.ledgerRepo.SumNetByRecipient(ctx, recipientID)
	if err != nil {
		s.logger.Error("Failed to get recipient balance", "recipient_id", recipientID, "error", err)
		return 0, err
	}
	return balance, nil
}
