package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/statement-reconciliation/internal/domain/job"
	"github.com/statement-reconciliation/internal/domain/shared"
)

func TestJobHandler_Submit(t *testing.T) {
	source := uuid.New()
	raw := uuid.New()

	tests := []struct {
		name    string
		method  string
		path    string
		body    interface{}
		matcher func(*shared.JobRequest) bool
	}{
		{
			name:   "ReparsePayment",
			method: http.MethodPost,
			path:   "/reparse/payments/P-1001",
			matcher: func(r *shared.JobRequest) bool {
				return r.Type == shared.JobTypeReparsePayment && r.PaymentID == "P-1001"
			},
		},
		{
			name:   "ReparseSource",
			method: http.MethodPost,
			path:   "/reparse/source",
			body:   ReparseSourceRequest{SourceAccount: source, RawRecordUUID: raw},
			matcher: func(r *shared.JobRequest) bool {
				return r.Type == shared.JobTypeReparseSource && *r.SourceAccount == source && *r.RawRecordUUID == raw
			},
		},
		{
			name:   "BackparseAllAccounts",
			method: http.MethodPost,
			path:   "/backparse",
			matcher: func(r *shared.JobRequest) bool {
				return r.Type == shared.JobTypeBackparse && r.SourceAccount == nil && !r.Clear
			},
		},
		{
			name:   "BackparseOneAccountWithClear",
			method: http.MethodPost,
			path:   "/backparse",
			body:   BackparseRequest{SourceAccount: &source, Clear: true},
			matcher: func(r *shared.JobRequest) bool {
				return r.Type == shared.JobTypeBackparse && *r.SourceAccount == source && r.Clear
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := new(MockJobService)
			h := NewJobHandler(testLogger, jobs)
			router := newTestRouter()
			router.POST("/reparse/payments/:payment_id", h.ReparsePayment)
			router.POST("/reparse/source", h.ReparseSource)
			router.POST("/backparse", h.Backparse)

			var submitted *shared.JobRequest
			jobs.On("Submit", mock.Anything, mock.MatchedBy(func(r *shared.JobRequest) bool {
				return tt.matcher(r) && r.OperatorEmail == testOperator && r.CorrelationID != "" && r.JobID != uuid.Nil
			})).Run(func(args mock.Arguments) {
				submitted = args.Get(1).(*shared.JobRequest)
			}).Return(&job.Report{Status: shared.JobStatusPending}, nil).Once()

			rr := performJSON(router, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusAccepted, rr.Code)
			jobs.AssertExpectations(t)
			require.NotNil(t, submitted)
		})
	}
}

func TestJobHandler_ReparseSourceInvalidBody(t *testing.T) {
	jobs := new(MockJobService)
	h := NewJobHandler(testLogger, jobs)
	router := newTestRouter()
	router.POST("/reparse/source", h.ReparseSource)

	rr := performJSON(router, http.MethodPost, "/reparse/source", `{"source_account":"not-a-uuid"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	jobs.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestJobHandler_SubmitFailure(t *testing.T) {
	jobs := new(MockJobService)
	h := NewJobHandler(testLogger, jobs)
	router := newTestRouter()
	router.POST("/backparse", h.Backparse)

	jobs.On("Submit", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	rr := performJSON(router, http.MethodPost, "/backparse", nil)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestJobHandler_GetByID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		jobs := new(MockJobService)
		h := NewJobHandler(testLogger, jobs)
		router := newTestRouter()
		router.GET("/jobs/:id", h.GetByID)

		jobID := uuid.New()
		jobs.On("GetReport", mock.Anything, jobID).Return(&job.Report{
			JobID:  jobID,
			Type:   shared.JobTypeApplyRules,
			Status: shared.JobStatusCompleted,
			Scopes: []job.ScopeResult{{Scope: "rule:7", Processed: 12, Updated: 3, Success: true}},
		}, nil)

		rr := performJSON(router, http.MethodGet, "/jobs/"+jobID.String(), nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		data := decodeResponse(t, rr)["data"].(map[string]interface{})
		assert.Equal(t, jobID.String(), data["job_id"])
		assert.Equal(t, "COMPLETED", data["status"])
		scopes := data["scopes"].([]interface{})
		require.Len(t, scopes, 1)
		assert.Equal(t, "rule:7", scopes[0].(map[string]interface{})["scope"])
	})

	t.Run("NotFound", func(t *testing.T) {
		jobs := new(MockJobService)
		h := NewJobHandler(testLogger, jobs)
		router := newTestRouter()
		router.GET("/jobs/:id", h.GetByID)

		jobID := uuid.New()
		jobs.On("GetReport", mock.Anything, jobID).Return(nil, job.ErrReportNotFound{JobID: jobID})

		rr := performJSON(router, http.MethodGet, "/jobs/"+jobID.String(), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		jobs := new(MockJobService)
		h := NewJobHandler(testLogger, jobs)
		router := newTestRouter()
		router.GET("/jobs/:id", h.GetByID)

		rr := performJSON(router, http.MethodGet, "/jobs/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		jobs.AssertNotCalled(t, "GetReport", mock.Anything, mock.Anything)
	})
}
