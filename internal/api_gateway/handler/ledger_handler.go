package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/crowdfund-revenue-ledger/internal/api_gateway/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/ledger"
)

// LedgerHandler handles HTTP requests for ledger queries
type LedgerHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// GetByReference lists the ledger lines written for a reference
func (h *LedgerHandler) GetByReference(c *gin.Context) {
	refType, refID := c.Param("type"), c.Param("id")

	entries, err := h.ledgerService.GetEntriesByReference(c.Request.Context(), refType, refID)
	if err != nil {
		h.logger.Error("Failed to get ledger entries", "reference_type", refType, "reference_id", refID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapEntries(entries))
}

// GetByRecipient retrieves paginated ledger history of a recipient
func (h *LedgerHandler) GetByRecipient(c *gin.Context) {
	recipientID := c.Param("id")

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.ledgerService.GetEntriesByRecipient(c.Request.Context(), recipientID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get ledger entries", "recipient_id", recipientID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondPage(c, mapEntries(entries), pagination, total)
}

// GetBalance returns the net amount credited to a recipient
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	recipientID := c.Param("id")

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), recipientID)
	if err != nil {
		h.logger.Error("Failed to get balance", "recipient_id", recipientID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, BalanceResponse{
		RecipientID:  recipientID,
		BalanceCents: balance,
		BalanceEur:   decimal.New(balance, -2).StringFixed(2),
	})
}

func mapEntries(entries []*ledger.Entry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapLedgerEntryToResponse(e))
	}
	return out
}

func mapLedgerEntryToResponse(entry *ledger.Entry) LedgerEntryResponse {
	response := LedgerEntryResponse{
		ID:               entry.ID.String(),
		TransactionType:  string(entry.TransactionType),
		ReferenceType:    entry.ReferenceType,
		ReferenceID:      entry.ReferenceID,
		Role:             string(entry.Role),
		Rank:             entry.Rank,
		GrossAmountCents: entry.GrossAmountCents,
		NetAmountCents:   entry.NetAmountCents,
		FeeCents:         entry.FeeCents,
		IdempotencyKey:   entry.IdempotencyKey,
		PayoutRule:       entry.PayoutRule,
		Status:           string(entry.Status),
		CreatedAt:        entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.RecipientID != nil {
		response.RecipientID = *entry.RecipientID
	}
	return response
}
