package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/statement-reconciliation/internal/api_gateway/middleware"
	"github.com/statement-reconciliation/internal/api_gateway/service"
)

// LedgerHandler posts payment ledger entries
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

// BulkInsert posts entries; rejected items are listed in the report, an invariant breach fails the whole request
func (h *LedgerHandler) BulkInsert(c *gin.Context) {
	var req BulkLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	report, err := h.ledgerService.BulkInsert(c.Request.Context(), req.Entries, middleware.GetOperatorEmail(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	if report.Inserted == 0 {
		RespondWithData(c, http.StatusUnprocessableEntity, report)
		return
	}
	RespondCreated(c, report)
}
