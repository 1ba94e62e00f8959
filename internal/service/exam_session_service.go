package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/catalog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
)

// Attempts at saving the completed session after its answers are written.
const (
	completeSaveAttempts = 3
	completeSaveBackoff  = 100 * time.Millisecond
)

// Exam workflow errors.
var (
	ErrEmptyStudentID     = model.ErrEmptyStudentID
	ErrInvalidStep        = model.ErrInvalidStep
	ErrUnknownQuestion    = model.ErrUnknownQuestion
	ErrNoEnrolledCourses  = errors.New("no courses found for this student id")
	ErrCoursesUnnamed     = errors.New("courses found, but they have no names")
	ErrCourseNotAvailable = errors.New("course is not available to this student")
	ErrNoExamForCourse    = errors.New("no exam found for this course")
	ErrInvalidAnswer      = errors.New("answer is not one of the question's options")
	ErrNoChoices          = errors.New("question has no choices")
	ErrTimeUp             = errors.New("time is up, the exam has been submitted")
	ErrSubmitting         = errors.New("exam is being submitted")
	ErrSessionNotFound    = repository.ErrSessionNotFound
	ErrSessionBusy        = repository.ErrSessionLocked
)

// SessionStore persists exam sessions. Lock serializes transitions on one
// session and returns the release func.
type SessionStore interface {
	Get(ctx context.Context, id string) (model.ExamSession, error)
	Save(ctx context.Context, s model.ExamSession) error
	Lock(ctx context.Context, id string) (func(), error)
}

// QuestionView is one question as presented to the student.
type QuestionView struct {
	Number      int                `json:"number"`
	ID          string             `json:"id"`
	Kind        model.QuestionType `json:"kind,omitempty"`
	Description string             `json:"description,omitempty"`
	Options     []string           `json:"options,omitempty"`
	Answer      *string            `json:"answer"`
	Answerable  bool               `json:"answerable"`
	Warning     string             `json:"warning,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// ExamView is the result of a render tick.
type ExamView struct {
	Session          model.ExamSession `json:"session"`
	Remaining        string            `json:"remaining,omitempty"`
	RemainingSeconds int64             `json:"remaining_seconds"`
	Questions        []QuestionView    `json:"questions,omitempty"`
	Unanswered       int               `json:"unanswered"`
	AutoSubmitted    bool              `json:"auto_submitted"`
}

// ExamSessionService drives the exam workflow: authenticate, select course,
// take the timed exam, submit.
type ExamSessionService struct {
	sessions    SessionStore
	catalog     *catalog.Catalog
	submissions *SubmissionService
	log         zerolog.Logger

	now         func() time.Time
	pick        func(n int) int
	saveBackoff time.Duration
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(sessions SessionStore, cat *catalog.Catalog, submissions *SubmissionService, log zerolog.Logger) *ExamSessionService {
	return &ExamSessionService{
		sessions:    sessions,
		catalog:     cat,
		submissions: submissions,
		log:         log.With().Str("component", "exam_session_service").Logger(),
		now:         time.Now,
		pick:        rand.IntN,
		saveBackoff: completeSaveBackoff,
	}
}

// Begin starts a new session for studentID. An empty id is rejected and no
// session is created.
func (s *ExamSessionService) Begin(ctx context.Context, studentID string) (model.ExamSession, error) {
	sess, err := model.NewExamSession(uuid.NewString(), s.now()).Authenticate(studentID)
	if err != nil {
		return model.ExamSession{}, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return model.ExamSession{}, fmt.Errorf("save session: %w", err)
	}

	s.log.Info().Str("session_id", sess.ID).Str("student_id", sess.StudentID).Msg("Session started")
	return sess, nil
}

// Session returns the stored session without side effects.
func (s *ExamSessionService) Session(ctx context.Context, id string) (model.ExamSession, error) {
	return s.sessions.Get(ctx, id)
}

// AvailableCourses lists the named courses the session's student may take.
func (s *ExamSessionService) AvailableCourses(ctx context.Context, id string) ([]model.Course, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Step != model.StepSelectCourse {
		return nil, ErrInvalidStep
	}
	return s.availableCourses(sess.StudentID)
}

func (s *ExamSessionService) availableCourses(studentID string) ([]model.Course, error) {
	enrolled := s.catalog.EnrolledCourses(studentID)
	if len(enrolled) == 0 {
		return nil, ErrNoEnrolledCourses
	}

	named := make([]model.Course, 0, len(enrolled))
	for _, c := range enrolled {
		if c.Name != "" {
			named = append(named, c)
		}
	}
	if len(named) == 0 {
		return nil, ErrCoursesUnnamed
	}
	return named, nil
}

// SelectCourse picks a random exam of courseID and starts the clock. When the
// course has no exam the session stays in SELECT_COURSE.
func (s *ExamSessionService) SelectCourse(ctx context.Context, id, courseID string) (model.ExamSession, error) {
	return s.transition(ctx, id, func(cur model.ExamSession) (*model.ExamSession, error) {
		if cur.Step != model.StepSelectCourse {
			return nil, ErrInvalidStep
		}

		courses, err := s.availableCourses(cur.StudentID)
		if err != nil {
			return nil, err
		}
		if !slices.ContainsFunc(courses, func(c model.Course) bool { return c.ID == courseID }) {
			return nil, ErrCourseNotAvailable
		}

		exams := s.catalog.ExamsForCourse(courseID)
		if len(exams) == 0 {
			return nil, ErrNoExamForCourse
		}
		exam := exams[s.pick(len(exams))]

		next, err := cur.Start(courseID, exam, s.catalog.QuestionIDs(exam.ID), s.now())
		if err != nil {
			return nil, err
		}

		s.log.Info().
			Str("session_id", id).
			Str("course_id", courseID).
			Str("exam_id", exam.ID).
			Int("duration_minutes", exam.DurationMinutes).
			Int("questions", len(next.QuestionIDs)).
			Msg("Exam started")
		return &next, nil
	})
}

// Tick evaluates the session clock once. An in-progress exam whose time has
// run out is submitted before the view is returned.
func (s *ExamSessionService) Tick(ctx context.Context, id string) (ExamView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return ExamView{}, err
	}

	if sess.Expired(s.now()) {
		auto := false
		sess, err = s.transition(ctx, id, func(cur model.ExamSession) (*model.ExamSession, error) {
			// Someone else may have submitted while we waited for the lock.
			if !cur.Expired(s.now()) {
				return nil, nil
			}
			next, err := s.submit(ctx, cur, true)
			if err != nil {
				return nil, err
			}
			auto = true
			return &next, nil
		})
		if err != nil {
			return ExamView{}, err
		}
		view := s.view(sess)
		view.AutoSubmitted = auto
		return view, nil
	}

	return s.view(sess), nil
}

// RecordAnswer stores the answer to one question. Multiple choice and
// true/false answers must match one of the presented options. If the exam has
// expired it is submitted instead and ErrTimeUp is returned with the
// submitted session.
func (s *ExamSessionService) RecordAnswer(ctx context.Context, id, questionID, answer string) (model.ExamSession, error) {
	var expired bool
	sess, err := s.transition(ctx, id, func(cur model.ExamSession) (*model.ExamSession, error) {
		if err := requireInProgress(cur); err != nil {
			return nil, err
		}
		if cur.Expired(s.now()) {
			next, err := s.submit(ctx, cur, true)
			if err != nil {
				return nil, err
			}
			expired = true
			return &next, nil
		}

		if err := s.validateAnswer(questionID, answer); err != nil {
			return nil, err
		}
		next, err := cur.RecordAnswer(questionID, answer)
		if err != nil {
			return nil, err
		}
		return &next, nil
	})
	if err != nil {
		return sess, err
	}
	if expired {
		return sess, ErrTimeUp
	}
	return sess, nil
}

func (s *ExamSessionService) validateAnswer(questionID, answer string) error {
	q, ok := s.catalog.Question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		opts := choiceTexts(s.catalog.Choices(questionID))
		if len(opts) == 0 {
			return ErrNoChoices
		}
		if !slices.Contains(opts, answer) {
			return ErrInvalidAnswer
		}
	case model.QuestionTypeTrueFalse:
		if !slices.Contains(model.TrueFalseOptions, answer) {
			return ErrInvalidAnswer
		}
	}
	return nil
}

// Submit submits the exam on the student's request, answered or not.
func (s *ExamSessionService) Submit(ctx context.Context, id string) (model.ExamSession, error) {
	return s.transition(ctx, id, func(cur model.ExamSession) (*model.ExamSession, error) {
		if err := requireInProgress(cur); err != nil {
			return nil, err
		}
		next, err := s.submit(ctx, cur, false)
		if err != nil {
			return nil, err
		}
		return &next, nil
	})
}

func requireInProgress(cur model.ExamSession) error {
	switch cur.Step {
	case model.StepInProgress:
		return nil
	case model.StepSubmitting:
		return ErrSubmitting
	default:
		return ErrInvalidStep
	}
}

// submit writes cur's answers out and returns the completed session. It runs
// under the session lock. The SUBMITTING marker is stored before the first
// write, so the fan-out happens at most once per session even if the lock
// expires or the final save fails. The writes and the final save are not
// tied to the caller: a client leaving mid-submission does not abort them.
func (s *ExamSessionService) submit(ctx context.Context, cur model.ExamSession, forced bool) (model.ExamSession, error) {
	frozen, err := cur.BeginSubmit()
	if err != nil {
		return cur, err
	}
	if err := s.sessions.Save(ctx, frozen); err != nil {
		return cur, fmt.Errorf("save session: %w", err)
	}

	if n := frozen.Unanswered(); n > 0 {
		s.log.Warn().Str("session_id", cur.ID).Int("unanswered", n).Msg("Submitting with unanswered questions")
	}
	summary := s.submissions.Submit(context.WithoutCancel(ctx), frozen, forced)
	return frozen.Complete(summary)
}

// saveCompleted stores a SUBMITTED session, retrying on failure. The session
// stays SUBMITTING in the store if every attempt fails.
func (s *ExamSessionService) saveCompleted(ctx context.Context, sess model.ExamSession) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := range completeSaveAttempts {
		if attempt > 0 {
			time.Sleep(s.saveBackoff)
		}
		if err = s.sessions.Save(ctx, sess); err == nil {
			return nil
		}
		s.log.Warn().Err(err).Str("session_id", sess.ID).Int("attempt", attempt+1).Msg("Failed to save submitted session")
	}
	s.log.Error().Err(err).Str("session_id", sess.ID).Msg("Submitted session left in SUBMITTING")
	return err
}

// transition runs fn on the current session under the session lock and saves
// the session fn returns, if any. It returns the saved session, or the
// current one when nothing was saved.
func (s *ExamSessionService) transition(ctx context.Context, id string, fn func(cur model.ExamSession) (*model.ExamSession, error)) (model.ExamSession, error) {
	unlock, err := s.sessions.Lock(ctx, id)
	if err != nil {
		return model.ExamSession{}, err
	}
	defer unlock()

	cur, err := s.sessions.Get(ctx, id)
	if err != nil {
		return model.ExamSession{}, err
	}

	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	if next == nil {
		return cur, nil
	}

	save := s.sessions.Save
	if next.Step == model.StepSubmitted {
		save = s.saveCompleted
	}
	if err := save(ctx, *next); err != nil {
		return cur, fmt.Errorf("save session: %w", err)
	}
	return *next, nil
}

func (s *ExamSessionService) view(sess model.ExamSession) ExamView {
	v := ExamView{Session: sess}
	if sess.Step != model.StepInProgress {
		return v
	}

	remaining := sess.Remaining(s.now())
	if remaining < 0 {
		remaining = 0
	}
	secs := int64(remaining / time.Second)
	v.RemainingSeconds = secs
	v.Remaining = fmt.Sprintf("%02d:%02d", secs/60, secs%60)
	v.Unanswered = sess.Unanswered()

	v.Questions = make([]QuestionView, 0, len(sess.QuestionIDs))
	for i, qid := range sess.QuestionIDs {
		qv := QuestionView{Number: i + 1, ID: qid, Answer: sess.Answer(qid)}

		q, ok := s.catalog.Question(qid)
		if !ok {
			qv.Error = fmt.Sprintf("Question %s not found.", qid)
			v.Questions = append(v.Questions, qv)
			continue
		}

		qv.Kind = q.Type
		qv.Description = q.Description
		qv.Answerable = true
		switch q.Type {
		case model.QuestionTypeMultipleChoice:
			qv.Options = choiceTexts(s.catalog.Choices(qid))
			if len(qv.Options) == 0 {
				qv.Answerable = false
				qv.Warning = fmt.Sprintf("No choices found for question %s", qid)
			}
		case model.QuestionTypeTrueFalse:
			qv.Options = slices.Clone(model.TrueFalseOptions)
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}

func choiceTexts(choices []model.Choice) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		if c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}
