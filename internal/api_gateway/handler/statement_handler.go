package handler

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/statement-reconciliation/internal/api_gateway/middleware"
	"github.com/statement-reconciliation/internal/api_gateway/service"
	"github.com/statement-reconciliation/internal/domain/shared"
)

const maxStatementSize = 32 << 20

// StatementHandler imports bank statement files
type StatementHandler struct {
	statementService service.StatementService
	jobService       service.JobService
	logger           *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(logger *slog.Logger, statementService service.StatementService, jobService service.JobService) *StatementHandler {
	return &StatementHandler{
		statementService: statementService,
		jobService:       jobService,
		logger:           logger,
	}
}

// Upload imports a multipart "file" synchronously and returns the import report
func (h *StatementHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("Missing statement file", "error", err)
		RespondBadRequest(c, "A statement file is required in the \"file\" field")
		return
	}
	if fileHeader.Size > maxStatementSize {
		RespondBadRequest(c, "Statement file is too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "file_name", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxStatementSize))
	if err != nil {
		h.logger.Error("Failed to read uploaded file", "file_name", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}

	fileName := filepath.Base(fileHeader.Filename)
	result, err := h.statementService.Upload(c.Request.Context(), fileName, content, middleware.GetOperatorEmail(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, result)
}

// ImportObject queues the import of a statement already stored in the bucket
func (h *StatementHandler) ImportObject(c *gin.Context) {
	var req ImportObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	submitJob(c, h.logger, h.jobService, &shared.JobRequest{
		Type:      shared.JobTypeImportObject,
		ObjectURI: req.ObjectURI,
	})
}
