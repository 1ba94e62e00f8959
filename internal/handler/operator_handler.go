package handler

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	statusInterval = 5 * time.Second
)

// OperatorHandler serves the operator endpoints: catalog counts, the
// submission ledger and the live status stream.
type OperatorHandler struct {
	operatorService *service.OperatorService
	startTime       time.Time
	log             zerolog.Logger
}

// NewOperatorHandler creates a new OperatorHandler. The status stream reports
// uptime from the moment it is created.
func NewOperatorHandler(operatorService *service.OperatorService, log zerolog.Logger) *OperatorHandler {
	return &OperatorHandler{
		operatorService: operatorService,
		startTime:       time.Now(),
		log:             log.With().Str("component", "operator_handler").Logger(),
	}
}

// GetCatalog godoc
// GET /api/v1/operator/catalog
func (h *OperatorHandler) GetCatalog(c *gin.Context) {
	response.Success(c, http.StatusOK, h.operatorService.CatalogOverview(c.Request.Context()))
}

// ListSubmissions godoc
// GET /api/v1/operator/submissions?page=1&per_page=20&exam_id=&student_id=
func (h *OperatorHandler) ListSubmissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	filter := repository.SubmissionFilter{
		ExamID:    c.Query("exam_id"),
		StudentID: c.Query("student_id"),
	}

	result, err := h.operatorService.ListSubmissions(c.Request.Context(), filter, page, perPage)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{
		"submissions": result.Rows,
		"pending":     result.Pending,
	}, response.NewPagination(page, perPage, result.Total))
}

// statusSnapshot is one event of the operator status stream.
type statusSnapshot struct {
	Timestamp  int64                   `json:"timestamp"`
	Uptime     string                  `json:"uptime"`
	Goroutines int                     `json:"goroutines"`
	HeapAlloc  uint64                  `json:"heap_alloc"`
	NumGC      uint32                  `json:"num_gc"`
	Catalog    service.CatalogOverview `json:"catalog"`
}

// StreamStatus godoc
// GET /api/v1/operator/status
// Streams runtime and catalog status via SSE every statusInterval.
func (h *OperatorHandler) StreamStatus(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Operator connected to status stream")

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	h.writeStatus(c)
	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Operator disconnected from status stream")
			return
		case <-ticker.C:
			h.writeStatus(c)
		}
	}
}

func (h *OperatorHandler) writeStatus(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	c.SSEvent("status", statusSnapshot{
		Timestamp:  time.Now().Unix(),
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
		Catalog:    h.operatorService.CatalogOverview(c.Request.Context()),
	})
	c.Writer.Flush()
}
