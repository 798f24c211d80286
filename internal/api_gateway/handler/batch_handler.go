package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/statement-reconciliation/internal/api_gateway/middleware"
	"github.com/statement-reconciliation/internal/api_gateway/service"
)

// BatchHandler serves batch splits and raw record locks
type BatchHandler struct {
	batchService service.BatchService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(logger *slog.Logger, batchService service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// Create splits the raw record in the path across the requested partitions
func (h *BatchHandler) Create(c *gin.Context) {
	rawUUID, ok := h.parseUUID(c, "id", "raw record")
	if !ok {
		return
	}

	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.batchService.CreateBatch(c.Request.Context(), rawUUID, req.Partitions, middleware.GetOperatorEmail(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, created)
}

// Delete removes a batch and restores the raw record's own assignment
func (h *BatchHandler) Delete(c *gin.Context) {
	batchUUID, ok := h.parseUUID(c, "id", "batch")
	if !ok {
		return
	}
	if err := h.batchService.DeleteBatch(c.Request.Context(), batchUUID, middleware.GetOperatorEmail(c)); err != nil {
		RespondError(c, err)
		return
	}
	RespondNoContent(c)
}

// ProposeFIFO suggests partitions against the counteragent's open payments, oldest first
func (h *BatchHandler) ProposeFIFO(c *gin.Context) {
	rawUUID, ok := h.parseUUID(c, "id", "raw record")
	if !ok {
		return
	}
	proposal, err := h.batchService.ProposeFIFO(c.Request.Context(), rawUUID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, proposal)
}

// ListUnbound pages through records with no payment assignment
func (h *BatchHandler) ListUnbound(c *gin.Context) {
	var params UnboundParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	var source *uuid.UUID
	if params.SourceAccount != "" {
		id := uuid.MustParse(params.SourceAccount)
		source = &id
	}

	offset := (params.Page - 1) * params.PerPage
	page, err := h.batchService.ListUnbound(c.Request.Context(), source, params.PerPage, offset)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, page.Records, params.Page, params.PerPage, int(page.Total))
}

// Lock excludes a raw record from rule application and reparsing
func (h *BatchHandler) Lock(c *gin.Context) {
	h.setLock(c, true)
}

// Unlock lets rules and reparsing touch the raw record again
func (h *BatchHandler) Unlock(c *gin.Context) {
	h.setLock(c, false)
}

func (h *BatchHandler) setLock(c *gin.Context, locked bool) {
	rawUUID, ok := h.parseUUID(c, "id", "raw record")
	if !ok {
		return
	}
	if err := h.batchService.SetLock(c.Request.Context(), rawUUID, locked, middleware.GetOperatorEmail(c)); err != nil {
		RespondError(c, err)
		return
	}
	RespondNoContent(c)
}

func (h *BatchHandler) parseUUID(c *gin.Context, param, subject string) (uuid.UUID, bool) {
	idParam := c.Param(param)
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid "+subject+" ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid "+subject+" ID")
		return uuid.Nil, false
	}
	return id, true
}
