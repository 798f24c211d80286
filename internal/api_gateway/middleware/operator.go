package middleware

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// OperatorEmailHeader identifies the operator on mutating requests
	OperatorEmailHeader = "X-Operator-Email"

	// OperatorEmailKey is the key used to store the operator email in the context
	OperatorEmailKey = "operator_email"
)

// RequireOperator rejects requests without a well-formed operator email
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.GetHeader(OperatorEmailHeader))
		if email == "" {
			abortUnauthorized(c, "missing "+OperatorEmailHeader+" header")
			return
		}
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			abortUnauthorized(c, "invalid "+OperatorEmailHeader+" header")
			return
		}

		c.Set(OperatorEmailKey, strings.ToLower(email))
		c.Next()
	}
}

// GetOperatorEmail retrieves the operator email from the gin context if present
func GetOperatorEmail(c *gin.Context) string {
	if v, exists := c.Get(OperatorEmailKey); exists {
		if email, ok := v.(string); ok {
			return email
		}
	}
	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, response)
}
