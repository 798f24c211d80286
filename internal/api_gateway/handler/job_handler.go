package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/statement-reconciliation/internal/api_gateway/middleware"
	"github.com/statement-reconciliation/internal/api_gateway/service"
	"github.com/statement-reconciliation/internal/domain/shared"
)

// JobHandler submits reparse and backparse jobs and serves job reports
type JobHandler struct {
	jobService service.JobService
	logger     *slog.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(logger *slog.Logger, jobService service.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// ReparsePayment re-derives every record carrying the payment id from the path
func (h *JobHandler) ReparsePayment(c *gin.Context) {
	paymentID := c.Param("payment_id")
	if paymentID == "" {
		RespondBadRequest(c, "Payment ID is required")
		return
	}
	submitJob(c, h.logger, h.jobService, &shared.JobRequest{
		Type:      shared.JobTypeReparsePayment,
		PaymentID: paymentID,
	})
}

// ReparseSource re-derives one raw record of a source account
func (h *JobHandler) ReparseSource(c *gin.Context) {
	var req ReparseSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	submitJob(c, h.logger, h.jobService, &shared.JobRequest{
		Type:          shared.JobTypeReparseSource,
		SourceAccount: &req.SourceAccount,
		RawRecordUUID: &req.RawRecordUUID,
	})
}

// Backparse re-derives all records of one account, or of every account
func (h *JobHandler) Backparse(c *gin.Context) {
	var req BackparseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	submitJob(c, h.logger, h.jobService, &shared.JobRequest{
		Type:          shared.JobTypeBackparse,
		SourceAccount: req.SourceAccount,
		Clear:         req.Clear,
	})
}

// GetByID returns the report of a submitted job
func (h *JobHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid job ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid job ID")
		return
	}

	report, err := h.jobService.GetReport(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, report)
}

// submitJob stamps the request with the caller's identity and answers 202 with the job id
func submitJob(c *gin.Context, logger *slog.Logger, jobs service.JobService, req *shared.JobRequest) {
	req.JobID = uuid.New()
	req.OperatorEmail = middleware.GetOperatorEmail(c)
	req.CorrelationID = middleware.GetCorrelationID(c)
	req.Timestamp = time.Now().UTC()

	report, err := jobs.Submit(c.Request.Context(), req)
	if err != nil {
		logger.Error("Failed to submit job", "job_type", req.Type, "error", err)
		RespondError(c, err)
		return
	}

	RespondAccepted(c, JobAcceptedResponse{
		JobID:  report.JobID.String(),
		Type:   string(report.Type),
		Status: string(report.Status),
	})
}
