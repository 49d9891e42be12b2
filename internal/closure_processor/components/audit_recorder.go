package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/audit"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

type AuditRecorderImpl struct {
	auditRepo audit.Repository
	actor     string
	logger    *slog.Logger
}

func NewAuditRecorder(auditRepo audit.Repository, actor string, logger *slog.Logger) service.AuditRecorder {
	return &AuditRecorderImpl{
		auditRepo: auditRepo,
		actor:     actor,
		logger:    logger,
	}
}

// payoutDetails is the audited summary of an executed payout
type payoutDetails struct {
	ClosureID     string   `json:"closure_id"`
	Kind          string   `json:"kind"`
	RuleVersion   string   `json:"rule_version"`
	Mode          string   `json:"mode"`
	Alpha         *float64 `json:"alpha,omitempty"`
	NProjects     int      `json:"n_projects"`
	K             int      `json:"k"`
	PotCents      int64    `json:"pot_cents"`
	PotEur        string   `json:"pot_eur"`
	GrossCents    int64    `json:"gross_cents"`
	NetCents      int64    `json:"net_cents"`
	FeeCents      int64    `json:"fee_cents"`
	PlatformCents int64    `json:"platform_cents"`
	ResidualCents int64    `json:"residual_cents"`
	LedgerEntries int      `json:"ledger_entries"`
}

// RecordPayout chains a payout_executed entry, or category_closed for
// category closures, onto the chain of the reference type.
func (r *AuditRecorderImpl) RecordPayout(ctx context.Context, tx pgx.Tx, request *shared.ClosureRequest, calc *payout.Calculation, entries []ledger.Entry) (*audit.Entry, error) {
	action := audit.ActionPayoutExecuted
	if request.Kind == shared.ClosureKindCategory {
		action = audit.ActionCategoryClosed
	}

	gross, net, fee := ledger.Totals(entries)
	details := payoutDetails{
		ClosureID:     request.ClosureID.String(),
		Kind:          string(request.Kind),
		RuleVersion:   calc.RuleVersion,
		Mode:          string(calc.Mode),
		Alpha:         calc.Alpha,
		NProjects:     calc.NProjects,
		K:             calc.K,
		PotCents:      request.PotCents,
		PotEur:        centsToEur(request.PotCents),
		GrossCents:    gross,
		NetCents:      net,
		FeeCents:      fee,
		PlatformCents: calc.PlatformAmountCents,
		ResidualCents: calc.ResidualCents,
		LedgerEntries: len(entries),
	}

	entry, err := audit.AppendTo(ctx, r.auditRepo.WithTx(tx), audit.ChainID(request.ReferenceType), audit.Record{
		Actor:       r.actor,
		Action:      action,
		SubjectType: request.ReferenceType,
		SubjectID:   request.ReferenceID,
		Details:     details,
	})
	if err != nil {
		r.logger.Error("Failed to record payout audit entry",
			"closure_id", request.ClosureID.String(),
			"action", action,
			"error", err,
		)
		return nil, fmt.Errorf("failed to audit closure %s: %w", request.ClosureID, err)
	}

	r.logger.Debug("Payout audited", "closure_id", request.ClosureID.String(), "hash", entry.CurrentHash)
	return entry, nil
}

// centsToEur renders minor units as a two-decimal euro amount
func centsToEur(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
