package model

import (
	"errors"
	"strings"
	"time"
)

// Step enumerates the stages of an exam session. Steps only move forward.
type Step string

const (
	StepAuthenticate Step = "AUTHENTICATE"
	StepSelectCourse Step = "SELECT_COURSE"
	StepInProgress   Step = "IN_PROGRESS"
	StepSubmitting   Step = "SUBMITTING"
	StepSubmitted    Step = "SUBMITTED"
)

// Transition errors.
var (
	ErrEmptyStudentID  = errors.New("student id is required")
	ErrInvalidStep     = errors.New("operation not allowed in the current step")
	ErrUnknownQuestion = errors.New("question is not part of this exam")
)

// ExamSession is one student's pass through the exam workflow.
//
// An ExamSession is a value: transitions return a new session and never
// modify the receiver, so a caller holding the previous value keeps seeing it
// unchanged. Once InProgress, the keys of Answers are exactly QuestionIDs.
type ExamSession struct {
	ID               string             `json:"id"`
	Step             Step               `json:"step"`
	StudentID        string             `json:"student_id,omitempty"`
	SelectedCourseID string             `json:"selected_course_id,omitempty"`
	ExamID           string             `json:"exam_id,omitempty"`
	DurationMinutes  int                `json:"duration_minutes,omitempty"`
	QuestionIDs      []string           `json:"question_ids,omitempty"`
	Answers          map[string]*string `json:"answers,omitempty"`
	Deadline         *time.Time         `json:"deadline,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	Summary          *SubmissionSummary `json:"summary,omitempty"`
}

// NewExamSession returns a session waiting for the student to identify.
func NewExamSession(id string, now time.Time) ExamSession {
	return ExamSession{
		ID:        id,
		Step:      StepAuthenticate,
		CreatedAt: now,
	}
}

// Authenticate records the student id and advances to SELECT_COURSE.
func (s ExamSession) Authenticate(studentID string) (ExamSession, error) {
	if s.Step != StepAuthenticate {
		return s, ErrInvalidStep
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return s, ErrEmptyStudentID
	}

	next := s.clone()
	next.StudentID = studentID
	next.Step = StepSelectCourse
	return next, nil
}

// Start assigns the exam for courseID and advances to IN_PROGRESS. The
// deadline is fixed here, once, at now plus the exam duration. Duplicate
// question ids keep their first position.
func (s ExamSession) Start(courseID string, exam Exam, questionIDs []string, now time.Time) (ExamSession, error) {
	if s.Step != StepSelectCourse {
		return s, ErrInvalidStep
	}

	next := s.clone()
	next.SelectedCourseID = courseID
	next.ExamID = exam.ID
	next.DurationMinutes = exam.DurationMinutes

	deadline := now.Add(time.Duration(exam.DurationMinutes) * time.Minute)
	next.Deadline = &deadline

	next.QuestionIDs = make([]string, 0, len(questionIDs))
	next.Answers = make(map[string]*string, len(questionIDs))
	for _, qid := range questionIDs {
		if _, dup := next.Answers[qid]; dup {
			continue
		}
		next.QuestionIDs = append(next.QuestionIDs, qid)
		next.Answers[qid] = nil
	}

	next.Step = StepInProgress
	return next, nil
}

// RecordAnswer stores answer for questionID.
func (s ExamSession) RecordAnswer(questionID, answer string) (ExamSession, error) {
	if s.Step != StepInProgress {
		return s, ErrInvalidStep
	}
	if _, ok := s.Answers[questionID]; !ok {
		return s, ErrUnknownQuestion
	}

	next := s.clone()
	next.Answers[questionID] = &answer
	return next, nil
}

// BeginSubmit freezes an in-progress session while its answers are written
// out. A SUBMITTING session accepts no answers and cannot be submitted again.
func (s ExamSession) BeginSubmit() (ExamSession, error) {
	if s.Step != StepInProgress {
		return s, ErrInvalidStep
	}
	next := s.clone()
	next.Step = StepSubmitting
	return next, nil
}

// Complete moves a SUBMITTING session to SUBMITTED. Everything except the id
// and the submission summary is dropped.
func (s ExamSession) Complete(summary SubmissionSummary) (ExamSession, error) {
	if s.Step != StepSubmitting {
		return s, ErrInvalidStep
	}
	return ExamSession{
		ID:        s.ID,
		Step:      StepSubmitted,
		CreatedAt: s.CreatedAt,
		Summary:   &summary,
	}, nil
}

// Remaining returns the time left before the deadline, truncated to whole
// seconds. It is zero or negative once the exam has expired and zero when no
// exam is running.
func (s ExamSession) Remaining(now time.Time) time.Duration {
	if s.Deadline == nil {
		return 0
	}
	return s.Deadline.Sub(now).Truncate(time.Second)
}

// Expired reports whether an in-progress exam has run out of time.
func (s ExamSession) Expired(now time.Time) bool {
	return s.Step == StepInProgress && s.Remaining(now) <= 0
}

// Answer returns the recorded answer for questionID, or nil when unset.
func (s ExamSession) Answer(questionID string) *string {
	return s.Answers[questionID]
}

// Unanswered counts questions without an answer. An empty string counts as
// unanswered.
func (s ExamSession) Unanswered() int {
	n := 0
	for _, qid := range s.QuestionIDs {
		if a := s.Answers[qid]; a == nil || *a == "" {
			n++
		}
	}
	return n
}

func (s ExamSession) clone() ExamSession {
	next := s
	if s.QuestionIDs != nil {
		next.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	}
	if s.Answers != nil {
		next.Answers = make(map[string]*string, len(s.Answers))
		for k, v := range s.Answers {
			next.Answers[k] = v
		}
	}
	if s.Deadline != nil {
		d := *s.Deadline
		next.Deadline = &d
	}
	return next
}
