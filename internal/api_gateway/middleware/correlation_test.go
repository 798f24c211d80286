package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/statement-reconciliation/internal/domain/shared"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	providedID := uuid.New().String()

	tests := []struct {
		name     string
		header   string
		expectID string // empty means a generated uuid is expected
	}{
		{name: "generated when missing"},
		{name: "kept when provided", header: providedID, expectID: providedID},
		{name: "non-uuid token kept", header: "batch-import-42", expectID: "batch-import-42"},
		{name: "replaced when too long", header: strings.Repeat("a", maxCorrelationIDLength+1)},
		{name: "replaced when containing spaces", header: "two words"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CorrelationID())
			var ginID, ctxID string
			router.GET("/test", func(c *gin.Context) {
				ginID = c.GetString(CorrelationIDKey)
				ctxID = shared.CorrelationIDFromContext(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(CorrelationIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			headerID := rr.Header().Get(CorrelationIDHeader)
			if tt.expectID != "" {
				assert.Equal(t, tt.expectID, headerID)
			} else {
				_, err := uuid.Parse(headerID)
				assert.NoError(t, err, "generated correlation id should be a uuid")
			}
			assert.Equal(t, headerID, ginID)
			assert.Equal(t, headerID, ctxID)
		})
	}
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsIDFromContextIfExists", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, "corr-1")
		assert.Equal(t, "corr-1", GetCorrelationID(c))
	})

	t.Run("ReturnsEmptyStringIfNotString", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 12345)
		assert.Empty(t, GetCorrelationID(c))
	})
}
