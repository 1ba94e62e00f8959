package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/validator"
)

// UnansweredWarning accompanies a submission with unanswered questions.
const UnansweredWarning = "You have not answered all questions, but submitting anyway."

// ExamPortalHandler handles the student-facing exam workflow.
type ExamPortalHandler struct {
	sessionService *service.ExamSessionService
	authService    *service.AuthService
	log            zerolog.Logger
}

// NewExamPortalHandler creates a new ExamPortalHandler.
func NewExamPortalHandler(
	sessionService *service.ExamSessionService,
	authService *service.AuthService,
	log zerolog.Logger,
) *ExamPortalHandler {
	return &ExamPortalHandler{
		sessionService: sessionService,
		authService:    authService,
		log:            log.With().Str("component", "exam_portal_handler").Logger(),
	}
}

// CreateSession godoc
// POST /api/v1/exam/sessions
// Identifies the student and opens a new exam session. Returns the session
// token used by every other exam endpoint.
func (h *ExamPortalHandler) CreateSession(c *gin.Context) {
	var req model.BeginSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Begin(c.Request.Context(), req.StudentID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	token, err := h.authService.GenerateSessionToken(sess.ID, sess.StudentID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":   token,
		"session": sess,
	})
}

// GetSession godoc
// GET /api/v1/exam/session
// Returns the current view of the session. Polling this endpoint drives the
// exam clock: an exam past its deadline is submitted by this call.
func (h *ExamPortalHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.sessionService.Tick(c.Request.Context(), claims.ID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// ListCourses godoc
// GET /api/v1/exam/courses
// Returns the courses the student can be examined on.
func (h *ExamPortalHandler) ListCourses(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courses, err := h.sessionService.AvailableCourses(c.Request.Context(), claims.ID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// SelectCourse godoc
// POST /api/v1/exam/course
// Selects the course and starts a randomly chosen exam for it.
func (h *ExamPortalHandler) SelectCourse(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SelectCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.sessionService.SelectCourse(c.Request.Context(), claims.ID, req.CourseID); err != nil {
		failWith(c, h.log, err)
		return
	}

	view, err := h.sessionService.Tick(c.Request.Context(), claims.ID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// RecordAnswer godoc
// PUT /api/v1/exam/answers/:question_id
// Records the answer to one question.
func (h *ExamPortalHandler) RecordAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	qid := c.Param("question_id")
	sess, err := h.sessionService.RecordAnswer(c.Request.Context(), claims.ID, qid, req.Answer)
	if errors.Is(err, service.ErrTimeUp) {
		// The exam was submitted instead.
		status, code := classify(err)
		response.FailWithData(c, status, code, gin.H{"session": sess})
		return
	}
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": qid,
		"answer":      sess.Answer(qid),
		"unanswered":  sess.Unanswered(),
	})
}

// Submit godoc
// POST /api/v1/exam/submit
// Submits the exam. Unanswered questions do not block submission.
func (h *ExamPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sess, err := h.sessionService.Submit(c.Request.Context(), claims.ID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	body := gin.H{"session": sess}
	if sess.Summary != nil && sess.Summary.Unanswered > 0 {
		body["warning"] = UnansweredWarning
	}
	response.Success(c, http.StatusOK, body)
}
