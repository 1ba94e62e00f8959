package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the body of every HTTP reply. Data is null on errors unless
// the failure carries a payload.
type Response struct {
	Data       any         `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination accompanies list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Metadata is attached to every response.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success writes data under the envelope with the given status.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, envelope(c, data, nil, nil))
}

// SuccessWithPagination is Success for list endpoints.
func SuccessWithPagination(c *gin.Context, status int, data any, p *Pagination) {
	c.JSON(status, envelope(c, data, nil, p))
}

// Fail writes an error envelope with the code's default message.
func Fail(c *gin.Context, status int, code ErrCode) {
	c.JSON(status, envelope(c, nil, newError(code, nil), nil))
}

// FailWithFields is Fail plus per-field validation messages.
func FailWithFields(c *gin.Context, status int, code ErrCode, fields map[string]string) {
	c.JSON(status, envelope(c, nil, newError(code, fields), nil))
}

// FailWithData writes an error that still carries a payload, e.g. the
// session a timed-out answer auto-submitted.
func FailWithData(c *gin.Context, status int, code ErrCode, data any) {
	c.JSON(status, envelope(c, data, newError(code, nil), nil))
}

// AbortFail is Fail for middleware: later handlers do not run.
func AbortFail(c *gin.Context, status int, code ErrCode) {
	c.AbortWithStatusJSON(status, envelope(c, nil, newError(code, nil), nil))
}

// NewPagination builds pagination metadata from a page request and a total.
func NewPagination(page, perPage int, total int64) *Pagination {
	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return &Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: pages,
	}
}

func newError(code ErrCode, fields map[string]string) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}
}

func envelope(c *gin.Context, data any, e *ErrorBody, p *Pagination) Response {
	return Response{Data: data, Error: e, Pagination: p, Metadata: metadata(c)}
}

func metadata(c *gin.Context) Metadata {
	id := RequestID(c)
	if id == "" {
		id = uuid.New().String()
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
