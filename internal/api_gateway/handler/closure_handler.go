package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crowdfund-revenue-ledger/internal/api_gateway/middleware"
	"github.com/crowdfund-revenue-ledger/internal/api_gateway/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

// ClosureHandler handles HTTP requests for closure operations
type ClosureHandler struct {
	closureService service.ClosureService
	logger         *slog.Logger
}

// NewClosureHandler creates a new closure handler
func NewClosureHandler(logger *slog.Logger, closureService service.ClosureService) *ClosureHandler {
	return &ClosureHandler{
		closureService: closureService,
		logger:         logger,
	}
}

// Submit queues a closure. A client-supplied closure_id makes retries safe:
// an already processed closure is returned instead of being queued again.
func (h *ClosureHandler) Submit(c *gin.Context) {
	request, ok := h.bindClosureRequest(c)
	if !ok {
		return
	}

	existing, err := h.closureService.SubmitClosure(c.Request.Context(), request)
	if err != nil {
		h.logger.Error("Failed to submit closure", "closure_id", request.ClosureID.String(), "error", err)
		RespondInternalError(c)
		return
	}
	if existing != nil {
		RespondOK(c, mapRecordToResponse(existing))
		return
	}

	RespondAccepted(c, gin.H{
		"closure_id": request.ClosureID.String(),
		"status":     "QUEUED",
	})
}

// Preview computes the distribution of a closure without recording it
func (h *ClosureHandler) Preview(c *gin.Context) {
	request, ok := h.bindClosureRequest(c)
	if !ok {
		return
	}

	calc, problems, err := h.closureService.PreviewClosure(c.Request.Context(), request)
	if err != nil {
		h.logger.Error("Failed to preview closure", "kind", string(request.Kind), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, PreviewResponse{
		Computable:  len(problems) == 0,
		Problems:    problems,
		Calculation: calc,
	})
}

// GetByID retrieves a processed closure, returns 404 until it is projected
func (h *ClosureHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	if _, err := uuid.Parse(idParam); err != nil {
		RespondBadRequest(c, "Invalid closure ID")
		return
	}

	rec, err := h.closureService.GetClosure(c.Request.Context(), idParam)
	if err != nil {
		h.logger.Error("Failed to get closure", "closure_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}
	if rec == nil {
		RespondNotFound(c, "Closure not found")
		return
	}

	RespondOK(c, mapRecordToResponse(rec))
}

// GetByReference lists every closure attempt of a reference
func (h *ClosureHandler) GetByReference(c *gin.Context) {
	refType, refID := c.Param("type"), c.Param("id")

	records, err := h.closureService.GetClosuresByReference(c.Request.Context(), refType, refID)
	if err != nil {
		h.logger.Error("Failed to get closures by reference", "reference_type", refType, "reference_id", refID, "error", err)
		RespondInternalError(c)
		return
	}

	closures := make([]ClosureResponse, 0, len(records))
	for _, rec := range records {
		closures = append(closures, mapRecordToResponse(rec))
	}
	RespondOK(c, closures)
}

func (h *ClosureHandler) bindClosureRequest(c *gin.Context) (*shared.ClosureRequest, bool) {
	var req ClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}

	closureID := uuid.New()
	if req.ClosureID != "" {
		id, err := uuid.Parse(req.ClosureID)
		if err != nil {
			RespondBadRequest(c, "Invalid closure ID")
			return nil, false
		}
		closureID = id
	}

	return &shared.ClosureRequest{
		ClosureID:     closureID,
		Kind:          shared.ClosureKind(req.Kind),
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		PotCents:      req.PotCents,
		NProjects:     req.NProjects,
		Alpha:         req.Alpha,
		Rankings:      req.Rankings,
		CorrelationID: middleware.GetCorrelationID(c),
		RequestedBy:   req.RequestedBy,
		Timestamp:     time.Now().UTC(),
	}, true
}

func mapRecordToResponse(rec *closure.Record) ClosureResponse {
	response := ClosureResponse{
		ClosureID:     rec.ClosureID,
		Kind:          string(rec.Kind),
		ReferenceType: rec.ReferenceType,
		ReferenceID:   rec.ReferenceID,
		Status:        string(rec.Status),
		RuleVersion:   rec.RuleVersion,
		Calculation:   rec.Calculation,
		LedgerEntries: rec.LedgerEntries,
		FailureReason: rec.FailureReason,
		AuditHash:     rec.AuditHash,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.ProcessedAt != nil {
		response.ProcessedAt = rec.ProcessedAt.Format(time.RFC3339)
	}
	return response
}
