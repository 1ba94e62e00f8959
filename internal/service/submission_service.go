package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/recordstore"
)

// AnswerWriter appends a record to a store collection and returns the
// generated key, or ok=false on failure.
type AnswerWriter interface {
	Post(ctx context.Context, path string, payload any) (string, bool)
}

// SummaryQueue hands finished submissions to the ledger worker.
type SummaryQueue interface {
	Enqueue(ctx context.Context, s model.SubmissionSummary) error
}

// SubmissionService writes a session's answers to the record store.
type SubmissionService struct {
	writer AnswerWriter
	queue  SummaryQueue
	log    zerolog.Logger
	now    func() time.Time
}

// NewSubmissionService creates a new SubmissionService. queue may be nil, in
// which case summaries are not recorded in the ledger.
func NewSubmissionService(writer AnswerWriter, queue SummaryQueue, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		writer: writer,
		queue:  queue,
		log:    log.With().Str("component", "submission_service").Logger(),
		now:    time.Now,
	}
}

// Submit posts one AnswerRecord per question of s, in exam order. Each write
// is independent: a failed record is reported and the rest are still
// attempted. The session itself is not modified.
func (s *SubmissionService) Submit(ctx context.Context, sess model.ExamSession, forced bool) model.SubmissionSummary {
	at := s.now()

	summary := model.SubmissionSummary{
		SessionID:   sess.ID,
		ExamID:      sess.ExamID,
		StudentID:   sess.StudentID,
		SubmittedAt: at,
		Forced:      forced,
		Unanswered:  sess.Unanswered(),
		Results:     make([]model.SubmissionResult, 0, len(sess.QuestionIDs)),
	}

	for _, qid := range sess.QuestionIDs {
		rec := model.NewAnswerRecord(sess.ExamID, qid, sess.StudentID, sess.Answer(qid), at)
		name, ok := s.writer.Post(ctx, recordstore.PathStudentAnswers, rec)

		summary.Results = append(summary.Results, model.SubmissionResult{
			QuestionID: qid,
			RemoteID:   name,
			OK:         ok,
		})
		if ok {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	ev := s.log.Info()
	if summary.Failed > 0 {
		ev = s.log.Warn()
	}
	ev.Str("session_id", sess.ID).
		Str("exam_id", sess.ExamID).
		Str("student_id", sess.StudentID).
		Bool("forced", forced).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("unanswered", summary.Unanswered).
		Msg("Exam submitted")

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, summary); err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to enqueue submission for ledger")
		}
	}

	return summary
}
