package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statement-reconciliation/internal/api_gateway/handler"
	"github.com/statement-reconciliation/internal/api_gateway/middleware"
)

// handlers groups every HTTP handler the router mounts
type handlers struct {
	statements *handler.StatementHandler
	rules      *handler.RuleHandler
	batches    *handler.BatchHandler
	jobs       *handler.JobHandler
	ledger     *handler.LedgerHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	v1 := r.Group("/api/v1")

	// Reads
	{
		v1.GET("/raw-records/unbound", h.batches.ListUnbound)
		v1.GET("/raw-records/:id/fifo-proposal", h.batches.ProposeFIFO)
		v1.GET("/jobs/:id", h.jobs.GetByID)
		v1.POST("/rules/validate", h.rules.Validate)
	}

	// Mutations carry the operator identity for the audit trail
	write := v1.Group("", middleware.RequireOperator())
	{
		write.POST("/statements", h.statements.Upload)
		write.POST("/statements/import-object", h.statements.ImportObject)

		write.POST("/rules", h.rules.Create)
		write.DELETE("/rules/:id", h.rules.Delete)
		write.POST("/rules/apply", h.rules.Apply)

		write.POST("/raw-records/:id/batch", h.batches.Create)
		write.POST("/raw-records/:id/lock", h.batches.Lock)
		write.POST("/raw-records/:id/unlock", h.batches.Unlock)
		write.DELETE("/batches/:id", h.batches.Delete)

		write.POST("/reparse/payments/:payment_id", h.jobs.ReparsePayment)
		write.POST("/reparse/source", h.jobs.ReparseSource)
		write.POST("/backparse", h.jobs.Backparse)

		write.POST("/ledger/bulk", h.ledger.BulkInsert)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
