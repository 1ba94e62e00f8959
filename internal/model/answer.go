package model

import (
	"strconv"
	"time"
)

// NotAnswered is written as Student_Answer for questions left unanswered.
const NotAnswered = "N/A"

// AnswerRecord is the document written to student_answers for each question.
// The id fields hold an int64 when the source id is purely numeric and the
// id string as-is otherwise.
type AnswerRecord struct {
	ExamID        any    `json:"Exam_ID"`
	QuestionID    any    `json:"Question_ID"`
	StudentID     any    `json:"Student_ID"`
	StudentAnswer string `json:"Student_Answer"`
	SubmittedAt   int64  `json:"Submitted_At"`
}

// NewAnswerRecord builds the outbound record for one question.
func NewAnswerRecord(examID, questionID, studentID string, answer *string, at time.Time) AnswerRecord {
	ans := NotAnswered
	if answer != nil {
		ans = *answer
	}
	return AnswerRecord{
		ExamID:        CoerceID(examID),
		QuestionID:    CoerceID(questionID),
		StudentID:     CoerceID(studentID),
		StudentAnswer: ans,
		SubmittedAt:   at.Unix(),
	}
}

// CoerceID returns id as an int64 when it consists only of ASCII digits and
// fits, otherwise id unchanged.
func CoerceID(id string) any {
	if id == "" {
		return id
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return id
		}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return id
	}
	return n
}

// SubmissionResult is the outcome of writing one AnswerRecord.
type SubmissionResult struct {
	QuestionID string `json:"question_id"`
	RemoteID   string `json:"remote_id,omitempty"`
	OK         bool   `json:"ok"`
}

// SubmissionSummary describes a completed submission.
type SubmissionSummary struct {
	SessionID   string             `json:"session_id"`
	ExamID      string             `json:"exam_id"`
	StudentID   string             `json:"student_id"`
	SubmittedAt time.Time          `json:"submitted_at"`
	Forced      bool               `json:"forced"`
	Unanswered  int                `json:"unanswered"`
	Succeeded   int                `json:"succeeded"`
	Failed      int                `json:"failed"`
	Results     []SubmissionResult `json:"results"`
}
