package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/statement-reconciliation/internal/api_gateway/middleware"
	"github.com/statement-reconciliation/internal/api_gateway/service"
	"github.com/statement-reconciliation/internal/domain/rule"
	"github.com/statement-reconciliation/internal/domain/shared"
	"github.com/statement-reconciliation/internal/reconciliation/rules"
)

// RuleHandler manages rules and queues rule application
type RuleHandler struct {
	ruleService service.RuleService
	jobService  service.JobService
	logger      *slog.Logger
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(logger *slog.Logger, ruleService service.RuleService, jobService service.JobService) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
		jobService:  jobService,
		logger:      logger,
	}
}

// Create stores a rule; with apply_now the rule is also queued for application
func (h *RuleHandler) Create(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in := rules.CreateRuleInput{
		Formula:  req.Formula,
		Column:   req.Column,
		Operator: req.Operator,
		Value:    req.Value,
		Target: rule.Target{
			PaymentID:         req.PaymentID,
			CounteragentUUID:  req.CounteragentUUID,
			FinancialCodeUUID: req.FinancialCodeUUID,
			CurrencyUUID:      req.CurrencyUUID,
		},
		Priority:      req.Priority,
		SchemaVersion: req.SchemaVersion,
	}

	created, err := h.ruleService.CreateRule(c.Request.Context(), in, middleware.GetOperatorEmail(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	if req.ApplyNow {
		submitJob(c, h.logger, h.jobService, &shared.JobRequest{
			Type:    shared.JobTypeApplyRules,
			RuleIDs: []int64{created.ID},
		})
		return
	}
	RespondCreated(c, created)
}

// Validate compiles a formula against a column schema without storing it
func (h *RuleHandler) Validate(c *gin.Context) {
	var req ValidateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.ruleService.ValidateFormula(req.Formula, req.SchemaVersion)
	if err == nil {
		RespondOK(c, ValidateFormulaResponse{Valid: true})
		return
	}

	var validationErr shared.ValidationError
	if !errors.As(err, &validationErr) {
		RespondError(c, err)
		return
	}
	RespondOK(c, ValidateFormulaResponse{
		Valid:   false,
		Reason:  string(validationErr.Reason),
		Names:   validationErr.Names,
		Message: validationErr.Message,
	})
}

// Delete soft deletes a rule
func (h *RuleHandler) Delete(c *gin.Context) {
	id, ok := h.parseRuleID(c)
	if !ok {
		return
	}
	if err := h.ruleService.DeleteRule(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondNoContent(c)
}

// Apply queues one or more rules for application against stored records
func (h *RuleHandler) Apply(c *gin.Context) {
	var req ApplyRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	submitJob(c, h.logger, h.jobService, &shared.JobRequest{
		Type:    shared.JobTypeApplyRules,
		RuleIDs: req.RuleIDs,
	})
}

func (h *RuleHandler) parseRuleID(c *gin.Context) (int64, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid rule ID", "id", idParam)
		RespondBadRequest(c, "Invalid rule ID")
		return 0, false
	}
	return id, true
}
