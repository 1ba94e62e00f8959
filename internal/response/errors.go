package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrOperatorDisabled   ErrCode = "OPERATOR_LOGIN_DISABLED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrSessionAccessOnly  ErrCode = "SESSION_ACCESS_ONLY"
	ErrOperatorAccessOnly ErrCode = "OPERATOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrEmptyStudentID  ErrCode = "EMPTY_STUDENT_ID"
	ErrInvalidAnswer   ErrCode = "INVALID_ANSWER"
	ErrUnknownQuestion ErrCode = "UNKNOWN_QUESTION"
	ErrNoChoices       ErrCode = "NO_CHOICES"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrSessionBusy     ErrCode = "SESSION_BUSY"
	ErrInvalidStep     ErrCode = "INVALID_STEP"
	ErrTimeUp          ErrCode = "TIME_UP"
	ErrSubmitting      ErrCode = "SUBMISSION_IN_PROGRESS"

	// ─── Course & exam ─────────────────────────────────────────────────
	ErrNoEnrolledCourses  ErrCode = "NO_ENROLLED_COURSES"
	ErrCoursesUnnamed     ErrCode = "COURSES_UNNAMED"
	ErrCourseNotAvailable ErrCode = "COURSE_NOT_AVAILABLE"
	ErrNoExamForCourse    ErrCode = "NO_EXAM_FOR_COURSE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrOperatorDisabled:
		return "Operator login is not configured on this server."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrSessionAccessOnly:
		return "This resource requires an exam session token."
	case ErrOperatorAccessOnly:
		return "This resource is restricted to operators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrEmptyStudentID:
		return "Please enter your Student ID."
	case ErrInvalidAnswer:
		return "The answer is not one of the question's options."
	case ErrUnknownQuestion:
		return "The question is not part of this exam."
	case ErrNoChoices:
		return "This question has no choices and cannot be answered."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "The exam session has ended or does not exist. Please start again."
	case ErrSessionBusy:
		return "The exam session is busy. Please try again."
	case ErrInvalidStep:
		return "This action is not available at the current step of the exam."
	case ErrTimeUp:
		return "Time is up. Your exam has been submitted."
	case ErrSubmitting:
		return "Your exam is being submitted. Please wait."

	// ─── Course & exam ─────────────────────────────────────────────────
	case ErrNoEnrolledCourses:
		return "No courses found for this Student ID. Please contact your administrator."
	case ErrCoursesUnnamed:
		return "Courses found, but they have no names. Please contact your administrator."
	case ErrCourseNotAvailable:
		return "This course is not available to you."
	case ErrNoExamForCourse:
		return "No exam found for this course."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
