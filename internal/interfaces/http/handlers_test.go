package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/application/service"
	"github.com/garyjia/employee-requests/internal/domain/requests"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
)

type fakeRequestService struct {
	createFunc   func(ctx context.Context, actorID string, req *workflow.Request) (*workflow.Request, error)
	getFunc      func(ctx context.Context, id int64) (*workflow.Request, error)
	listFunc     func(ctx context.Context, filter port.RequestFilter) ([]*workflow.Request, error)
	describeFunc func(ctx context.Context, id int64, actorID string) (*service.ActionSummary, error)
	submitFunc   func(ctx context.Context, id int64, actorID string) (*workflow.Request, error)
	decideFunc   func(ctx context.Context, id int64, actorID string, d workflow.Decision) (*workflow.Request, error)
	withdrawFunc func(ctx context.Context, id int64, actorID string) (*workflow.Request, error)
}

func (f *fakeRequestService) CreateRequest(ctx context.Context, actorID string, req *workflow.Request) (*workflow.Request, error) {
	return f.createFunc(ctx, actorID, req)
}

func (f *fakeRequestService) GetRequest(ctx context.Context, id int64) (*workflow.Request, error) {
	return f.getFunc(ctx, id)
}

func (f *fakeRequestService) ListRequests(ctx context.Context, filter port.RequestFilter) ([]*workflow.Request, error) {
	return f.listFunc(ctx, filter)
}

func (f *fakeRequestService) DescribeActions(ctx context.Context, id int64, actorID string) (*service.ActionSummary, error) {
	return f.describeFunc(ctx, id, actorID)
}

func (f *fakeRequestService) Submit(ctx context.Context, id int64, actorID string) (*workflow.Request, error) {
	return f.submitFunc(ctx, id, actorID)
}

func (f *fakeRequestService) Decide(ctx context.Context, id int64, actorID string, d workflow.Decision) (*workflow.Request, error) {
	return f.decideFunc(ctx, id, actorID, d)
}

func (f *fakeRequestService) Withdraw(ctx context.Context, id int64, actorID string) (*workflow.Request, error) {
	return f.withdrawFunc(ctx, id, actorID)
}

type fakeExporter struct {
	err error
}

func (f *fakeExporter) ExportInstallments(w io.Writer, req *workflow.Request) error {
	if f.err != nil {
		return f.err
	}
	_, err := fmt.Fprintf(w, "schedule-%d", req.ID)
	return err
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(svc *fakeRequestService, exporter port.InstallmentExporter) *gin.Engine {
	if exporter == nil {
		exporter = &fakeExporter{}
	}
	s := NewServer(DefaultServerConfig(), svc, exporter, nopLogger{})
	gin.SetMode(gin.TestMode)
	return s.Router()
}

func doRequest(t *testing.T, router *gin.Engine, method, path, actor string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	router := newTestServer(&fakeRequestService{}, nil)

	w := doRequest(t, router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestHealthCheck_ReportsUnhealthy(t *testing.T) {
	s := NewServer(DefaultServerConfig(), &fakeRequestService{}, &fakeExporter{}, nopLogger{},
		WithHealthCheck(func(ctx context.Context) (bool, interface{}) {
			return false, map[string]string{"database": "ping failed"}
		}))

	w := doRequest(t, s.Router(), http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"database": "ping failed"}, resp.Data)
}

func TestAPI_RequiresActor(t *testing.T) {
	router := newTestServer(&fakeRequestService{}, nil)

	w := doRequest(t, router, http.MethodGet, "/api/requests/1", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decodeResponse(t, w).Success)
}

func TestCreateRequest(t *testing.T) {
	var gotActor string
	var gotReq *workflow.Request
	svc := &fakeRequestService{
		createFunc: func(ctx context.Context, actorID string, req *workflow.Request) (*workflow.Request, error) {
			gotActor = actorID
			gotReq = req
			created := req.Clone()
			created.ID = 7
			created.RequestedByID = actorID
			created.Status = workflow.StatusPendingHR
			return created, nil
		},
	}
	router := newTestServer(svc, nil)

	w := doRequest(t, router, http.MethodPost, "/api/requests", "emp-1", map[string]interface{}{
		"kind":    "cash_advance",
		"purpose": "travel",
		"details": map[string]interface{}{
			"cash_advance": map[string]interface{}{"request_amount": "1000"},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "emp-1", gotActor)
	require.NotNil(t, gotReq.Details.CashAdvance)
	assert.True(t, decimal.NewFromInt(1000).Equal(gotReq.Details.CashAdvance.RequestAmount))
	assert.True(t, decodeResponse(t, w).Success)
}

func TestCreateRequest_Errors(t *testing.T) {
	svc := &fakeRequestService{
		createFunc: func(ctx context.Context, actorID string, req *workflow.Request) (*workflow.Request, error) {
			return nil, fmt.Errorf("%w: leave details are required", requests.ErrInvalidRequest)
		},
	}
	router := newTestServer(svc, nil)

	w := doRequest(t, router, http.MethodPost, "/api/requests", "emp-1", map[string]interface{}{"kind": "leave"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/requests", "emp-1", map[string]interface{}{"purpose": "no kind"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRequests_PassesFilter(t *testing.T) {
	var got port.RequestFilter
	svc := &fakeRequestService{
		listFunc: func(ctx context.Context, filter port.RequestFilter) ([]*workflow.Request, error) {
			got = filter
			return nil, nil
		},
	}
	router := newTestServer(svc, nil)

	w := doRequest(t, router, http.MethodGet, "/api/requests?kind=leave&status=pending_hr&requested_by=emp-1&limit=500", "hr-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, workflow.KindLeave, got.Kind)
	assert.Equal(t, workflow.StatusPendingHR, got.Status)
	assert.Equal(t, "emp-1", got.RequestedByID)
	assert.Equal(t, 20, got.Limit)
	assert.Equal(t, []interface{}{}, decodeResponse(t, w).Data)
}

func TestDecide_PassesDecision(t *testing.T) {
	var gotActor string
	var got workflow.Decision
	svc := &fakeRequestService{
		decideFunc: func(ctx context.Context, id int64, actorID string, d workflow.Decision) (*workflow.Request, error) {
			gotActor = actorID
			got = d
			return &workflow.Request{ID: id, Status: workflow.StatusPendingFinance}, nil
		},
	}
	router := newTestServer(svc, nil)

	w := doRequest(t, router, http.MethodPost, "/api/requests/3/decisions", "hr-1", map[string]interface{}{
		"department":      "hr",
		"outcome":         "approved",
		"approved_amount": "800",
		"comment":         "ok",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hr-1", gotActor)
	assert.Equal(t, workflow.DepartmentHR, got.Department)
	assert.Equal(t, workflow.OutcomeApproved, got.Outcome)
	require.NotNil(t, got.ApprovedAmount)
	assert.True(t, decimal.NewFromInt(800).Equal(*got.ApprovedAmount))
}

func TestDecide_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", workflow.ErrRequestNotFound, http.StatusNotFound},
		{"forbidden", workflow.ErrForbidden, http.StatusForbidden},
		{"invalid transition", workflow.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{"conflicting decision", workflow.ErrConflictingDecision, http.StatusConflict},
		{"resource unavailable", workflow.ErrResourceUnavailable, http.StatusConflict},
		{"invalid decision", workflow.ErrInvalidDecision, http.StatusBadRequest},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRequestService{
				decideFunc: func(ctx context.Context, id int64, actorID string, d workflow.Decision) (*workflow.Request, error) {
					return nil, fmt.Errorf("decide: %w", tt.err)
				},
			}
			router := newTestServer(svc, nil)

			w := doRequest(t, router, http.MethodPost, "/api/requests/3/decisions", "hr-1",
				map[string]interface{}{"department": "hr", "outcome": "approved"})

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestWithdraw_AlreadyClosedIsNoOp(t *testing.T) {
	closed := &workflow.Request{ID: 9, Status: workflow.StatusApproved}
	svc := &fakeRequestService{
		withdrawFunc: func(ctx context.Context, id int64, actorID string) (*workflow.Request, error) {
			return nil, fmt.Errorf("%w: request 9 is approved", workflow.ErrAlreadyTerminal)
		},
		getFunc: func(ctx context.Context, id int64) (*workflow.Request, error) {
			return closed, nil
		},
	}
	router := newTestServer(svc, nil)

	w := doRequest(t, router, http.MethodPost, "/api/requests/9/withdraw", "emp-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "already closed")
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "approved", data["status"])
}

func TestInvalidRequestID(t *testing.T) {
	router := newTestServer(&fakeRequestService{}, nil)

	for _, path := range []string{"/api/requests/abc", "/api/requests/0"} {
		w := doRequest(t, router, http.MethodGet, path, "emp-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestDescribeActions(t *testing.T) {
	svc := &fakeRequestService{
		describeFunc: func(ctx context.Context, id int64, actorID string) (*service.ActionSummary, error) {
			return &service.ActionSummary{RequestID: id, Status: workflow.StatusPendingHR, CanAct: actorID == "hr-1"}, nil
		},
	}
	router := newTestServer(svc, nil)

	w := doRequest(t, router, http.MethodGet, "/api/requests/4/actions", "hr-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeResponse(t, w).Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["can_act"])
}

func TestExportInstallments(t *testing.T) {
	svc := &fakeRequestService{
		getFunc: func(ctx context.Context, id int64) (*workflow.Request, error) {
			return &workflow.Request{ID: id, Kind: workflow.KindCashAdvance}, nil
		},
	}

	t.Run("writes workbook", func(t *testing.T) {
		router := newTestServer(svc, &fakeExporter{})

		w := doRequest(t, router, http.MethodGet, "/api/requests/5/installments.xlsx", "fin-1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "request-5-installments.xlsx")
		assert.Equal(t, "schedule-5", w.Body.String())
	})

	t.Run("no schedule", func(t *testing.T) {
		router := newTestServer(svc, &fakeExporter{err: port.ErrNoSchedule})

		w := doRequest(t, router, http.MethodGet, "/api/requests/5/installments.xlsx", "fin-1", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
