package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		method    string
		target    string
		operator  string
		status    int
		wantLevel string
		wantAttrs []string
	}{
		{
			name:      "read request at info",
			method:    http.MethodGet,
			target:    "/api/v1/raw-records/unbound?page=2",
			status:    http.StatusOK,
			wantLevel: `"level":"INFO"`,
			wantAttrs: []string{`"path":"/api/v1/raw-records/unbound?page=2"`, `"status":200`, `"user_agent":"test-agent"`},
		},
		{
			name:      "mutation carries operator",
			method:    http.MethodPost,
			target:    "/api/v1/rules",
			operator:  "ops@example.com",
			status:    http.StatusCreated,
			wantLevel: `"level":"INFO"`,
			wantAttrs: []string{`"operator":"ops@example.com"`, `"status":201`},
		},
		{
			name:      "client error at warn",
			method:    http.MethodPost,
			target:    "/api/v1/rules",
			operator:  "ops@example.com",
			status:    http.StatusConflict,
			wantLevel: `"level":"WARN"`,
			wantAttrs: []string{`"status":409`},
		},
		{
			name:      "server error at error",
			method:    http.MethodGet,
			target:    "/api/v1/raw-records/unbound",
			status:    http.StatusInternalServerError,
			wantLevel: `"level":"ERROR"`,
			wantAttrs: []string{`"status":500`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			testLogger := slog.New(slog.NewJSONHandler(&logBuffer, &slog.HandlerOptions{Level: slog.LevelInfo}))

			router := gin.New()
			router.Use(CorrelationID())
			router.Use(Logger(testLogger))
			handler := func(c *gin.Context) { c.Status(tt.status) }
			router.GET("/api/v1/raw-records/unbound", handler)
			router.POST("/api/v1/rules", RequireOperator(), handler)

			req, _ := http.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", "test-agent")
			req.Header.Set(CorrelationIDHeader, "corr-log")
			if tt.operator != "" {
				req.Header.Set(OperatorEmailHeader, tt.operator)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			out := logBuffer.String()
			assert.Contains(t, out, `"msg":"HTTP request"`)
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, `"correlation_id":"corr-log"`)
			assert.Contains(t, out, `"latency":`)
			for _, attr := range tt.wantAttrs {
				assert.Contains(t, out, attr)
			}
			if tt.operator == "" {
				assert.NotContains(t, out, `"operator"`)
			}
		})
	}
}
