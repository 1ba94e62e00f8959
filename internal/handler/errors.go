package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

type errMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var examErrors = []errMapping{
	{service.ErrEmptyStudentID, http.StatusBadRequest, response.ErrEmptyStudentID},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrSessionBusy, http.StatusConflict, response.ErrSessionBusy},
	{service.ErrInvalidStep, http.StatusConflict, response.ErrInvalidStep},
	{service.ErrTimeUp, http.StatusConflict, response.ErrTimeUp},
	{service.ErrSubmitting, http.StatusConflict, response.ErrSubmitting},
	{service.ErrNoEnrolledCourses, http.StatusNotFound, response.ErrNoEnrolledCourses},
	{service.ErrCoursesUnnamed, http.StatusUnprocessableEntity, response.ErrCoursesUnnamed},
	{service.ErrCourseNotAvailable, http.StatusForbidden, response.ErrCourseNotAvailable},
	{service.ErrNoExamForCourse, http.StatusNotFound, response.ErrNoExamForCourse},
	{service.ErrUnknownQuestion, http.StatusNotFound, response.ErrUnknownQuestion},
	{service.ErrInvalidAnswer, http.StatusBadRequest, response.ErrInvalidAnswer},
	{service.ErrNoChoices, http.StatusUnprocessableEntity, response.ErrNoChoices},
}

// classify maps a service error to an HTTP status and error code. Unknown
// errors are internal.
func classify(err error) (int, response.ErrCode) {
	for _, m := range examErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failWith writes the error response for err, logging internal errors.
func failWith(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if code == response.ErrInternal {
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}
