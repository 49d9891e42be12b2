package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/crowdfund-revenue-ledger/internal/api_gateway/service"
)

// AuditHandler handles HTTP requests for audit chains. Chains are named
// "closure:<reference type>" and "payout_recipe".
type AuditHandler struct {
	auditService service.AuditService
	logger       *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, auditService service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List returns a page of a chain, oldest first
func (h *AuditHandler) List(c *gin.Context) {
	chainID := c.Param("chain")

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, err := h.auditService.ListChain(c.Request.Context(), chainID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list audit chain", "chain_id", chainID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, entries)
}

// Verify recomputes every hash of a chain
func (h *AuditHandler) Verify(c *gin.Context) {
	chainID := c.Param("chain")

	report, err := h.auditService.VerifyChain(c.Request.Context(), chainID)
	if err != nil {
		h.logger.Error("Failed to verify audit chain", "chain_id", chainID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, report)
}
