package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/application/service"
	"github.com/garyjia/employee-requests/internal/domain/requests"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
	"github.com/garyjia/employee-requests/pkg/utils"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxPurposeLen = 500
	maxCommentLen = 1000
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	requests service.RequestService
	exporter port.InstallmentExporter
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(requests service.RequestService, exporter port.InstallmentExporter, logger Logger) *Handlers {
	return &Handlers{
		requests: requests,
		exporter: exporter,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload of POST /api/requests
type CreateRequestBody struct {
	Kind        workflow.Kind    `json:"kind" binding:"required"`
	Purpose     string           `json:"purpose"`
	Details     workflow.Details `json:"details"`
	Attachments []string         `json:"attachments"`
}

// DecisionBody is the payload of POST /api/requests/:id/decisions
type DecisionBody struct {
	Department           workflow.Department      `json:"department" binding:"required"`
	Outcome              workflow.Outcome         `json:"outcome"`
	Comment              string                   `json:"comment"`
	ApprovedAmount       *decimal.Decimal         `json:"approved_amount"`
	NumberOfInstallments int                      `json:"number_of_installments"`
	ReceiptReviews       []workflow.ReceiptReview `json:"receipt_reviews"`
	CompanyCarID         string                   `json:"company_car_id"`
}

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Kind        string `form:"kind"`
	Status      string `form:"status"`
	RequestedBy string `form:"requested_by"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, Response{Success: healthy, Data: details})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	req, err := h.requests.CreateRequest(c.Request.Context(), actorID(c), &workflow.Request{
		Kind:        body.Kind,
		Purpose:     utils.SanitizeText(body.Purpose, maxPurposeLen),
		Details:     body.Details,
		Attachments: body.Attachments,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var query ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	reqs, err := h.requests.ListRequests(c.Request.Context(), port.RequestFilter{
		Kind:          workflow.Kind(query.Kind),
		Status:        workflow.Status(query.Status),
		RequestedByID: query.RequestedBy,
		Limit:         query.Limit,
		Offset:        query.Offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if reqs == nil {
		reqs = []*workflow.Request{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: reqs})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// DescribeActions handles GET /api/requests/:id/actions
func (h *Handlers) DescribeActions(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	summary, err := h.requests.DescribeActions(c.Request.Context(), id, actorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// Submit handles POST /api/requests/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.requests.Submit(c.Request.Context(), id, actorID(c))
	h.respondTransition(c, id, req, err)
}

// Decide handles POST /api/requests/:id/decisions
func (h *Handlers) Decide(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid decision body", err)
		return
	}

	req, err := h.requests.Decide(c.Request.Context(), id, actorID(c), workflow.Decision{
		Department:           body.Department,
		Outcome:              body.Outcome,
		Comment:              utils.SanitizeText(body.Comment, maxCommentLen),
		ApprovedAmount:       body.ApprovedAmount,
		NumberOfInstallments: body.NumberOfInstallments,
		ReceiptReviews:       sanitizeReviews(body.ReceiptReviews),
		CompanyCarID:         body.CompanyCarID,
	})
	h.respondTransition(c, id, req, err)
}

// Withdraw handles POST /api/requests/:id/withdraw
func (h *Handlers) Withdraw(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.requests.Withdraw(c.Request.Context(), id, actorID(c))
	h.respondTransition(c, id, req, err)
}

// ExportInstallments handles GET /api/requests/:id/installments.xlsx
func (h *Handlers) ExportInstallments(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.ExportInstallments(&buf, req); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="request-%d-installments.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// respondTransition writes the result of a state-changing call. An action on a closed
// request is a no-op: the current request is returned with 200.
func (h *Handlers) respondTransition(c *gin.Context, id int64, req *workflow.Request, err error) {
	if errors.Is(err, workflow.ErrAlreadyTerminal) {
		current, getErr := h.requests.GetRequest(c.Request.Context(), id)
		if getErr != nil {
			h.fail(c, getErr)
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: current, Message: err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

func (h *Handlers) requestID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid request ID", err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// statusFor maps workflow errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrConflictingDecision),
		errors.Is(err, workflow.ErrResourceUnavailable):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, port.ErrNoSchedule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrInvalidDecision),
		errors.Is(err, workflow.ErrUnknownKind),
		errors.Is(err, requests.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sanitizeReviews(reviews []workflow.ReceiptReview) []workflow.ReceiptReview {
	for i := range reviews {
		reviews[i].Comment = utils.SanitizeText(reviews[i].Comment, maxCommentLen)
	}
	return reviews
}

func actorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
