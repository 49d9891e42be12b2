package service

import (
	"context"
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
)

const verifyPageSize = 500

// AuditServiceImpl implements the AuditService interface
type AuditServiceImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(logger *slog.Logger, auditRepo audit.Repository) AuditService {
	return &AuditServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *AuditServiceImpl) ListChain(ctx context.Context, chainID string, page, perPage int) ([]*audit.Entry, error) {
	entries, err := s.auditRepo.ListChain(ctx, chainID, perPage, (page-1)*perPage)
	if err != nil {
		s.logger.Error("Failed to list audit chain", "chain_id", chainID, "error", err)
		return nil, err
	}
	return entries, nil
}

// VerifyChain reads the chain page by page; each page must link to the last
// hash of the one before it.
func (s *AuditServiceImpl) VerifyChain(ctx context.Context, chainID string) (audit.VerifyReport, error) {
	prev := audit.GenesisHash
	checked := 0

	for offset := 0; ; offset += verifyPageSize {
		entries, err := s.auditRepo.ListChain(ctx, chainID, verifyPageSize, offset)
		if err != nil {
			s.logger.Error("Failed to read audit chain for verification", "chain_id", chainID, "offset", offset, "error", err)
			return audit.VerifyReport{}, err
		}

		report := audit.VerifyChain(entries, prev)
		if !report.Valid {
			report.Checked += checked
			report.BrokenAt += checked
			s.logger.Warn("Audit chain verification failed",
				"chain_id", chainID,
				"broken_at", report.BrokenAt,
				"reason", report.Reason,
			)
			return report, nil
		}
		checked += report.Checked

		if len(entries) < verifyPageSize {
			break
		}
		prev = entries[len(entries)-1].CurrentHash
	}

	s.logger.Info("Audit chain verified", "chain_id", chainID, "entries", checked)
	return audit.VerifyReport{Valid: true, Checked: checked, BrokenAt: -1}, nil
}
