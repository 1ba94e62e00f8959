// Package catalog holds the exam reference data (courses, exams, questions,
// choices, enrollments and their groupings) loaded from the record store.
//
// A Catalog is loaded once per process and is read-only afterwards, so it is
// safe for concurrent use without locking. Changes made in the store are not
// observed until the process restarts.
package catalog

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/recordstore"
	"github.com/stemsi/exam-portal/internal/shape"
)

// Store field names.
const (
	fieldCourseID           = "Course_ID"
	fieldCourseName         = "Course_Name"
	fieldExamID             = "Exam_ID"
	fieldExamDurationMin    = "Exam_Duration_Minutes"
	fieldExamDurationLegacy = "Exam_Duration"
	fieldQuestionID         = "Question_ID"
	fieldQuestionType       = "Question_Type"
	fieldQuestionDesc       = "Question_Description"
	fieldChoiceID           = "Choice_ID"
	fieldChoiceText         = "Choice_Text"
)

// EnrollmentStudentFields lists the accepted student id fields of an
// enrollment record, in precedence order. The first non-empty one wins.
var EnrollmentStudentFields = []string{"Student_ID", "student_id", "StudentID"}

// Reader is the read side of the record store.
type Reader interface {
	Get(ctx context.Context, path string) any
}

// Catalog is the loaded reference data.
type Catalog struct {
	courses       map[string]model.Course
	exams         map[string]model.Exam
	examsByCourse map[string][]string
	questions     map[string]model.Question
	enrollments   []model.Enrollment
	examQuestions map[string][]string
	choices       map[string][]model.Choice
	loadedAt      time.Time
}

// Stats summarises what a Catalog contains.
type Stats struct {
	Courses      int       `json:"courses"`
	Exams        int       `json:"exams"`
	Questions    int       `json:"questions"`
	Enrollments  int       `json:"enrollments"`
	ExamGroups   int       `json:"exam_question_groups"`
	ChoiceGroups int       `json:"choice_groups"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Load reads every reference collection from r. Missing or unreadable
// collections load as empty; Load itself never fails.
// defaultMinutes is used for exams whose duration is absent or unusable.
func Load(ctx context.Context, r Reader, defaultMinutes int, log zerolog.Logger) *Catalog {
	log = log.With().Str("component", "catalog").Logger()

	c := &Catalog{
		courses:       make(map[string]model.Course),
		exams:         make(map[string]model.Exam),
		examsByCourse: make(map[string][]string),
		questions:     make(map[string]model.Question),
		examQuestions: make(map[string][]string),
		choices:       make(map[string][]model.Choice),
		loadedAt:      time.Now(),
	}

	for id, rec := range shape.Normalize(r.Get(ctx, recordstore.PathCourses), fieldCourseID) {
		c.courses[id] = model.Course{ID: id, Name: shape.String(rec[fieldCourseName])}
	}

	for id, rec := range shape.Normalize(r.Get(ctx, recordstore.PathExams), fieldExamID) {
		exam := model.Exam{
			ID:              id,
			CourseID:        shape.String(rec[fieldCourseID]),
			DurationMinutes: ExamDuration(rec, defaultMinutes),
		}
		c.exams[id] = exam
		c.examsByCourse[exam.CourseID] = append(c.examsByCourse[exam.CourseID], id)
	}
	for cid := range c.examsByCourse {
		sort.Strings(c.examsByCourse[cid])
	}

	for id, rec := range shape.Normalize(r.Get(ctx, recordstore.PathQuestions), fieldQuestionID) {
		c.questions[id] = model.Question{
			ID:          id,
			Type:        model.ParseQuestionType(shape.String(rec[fieldQuestionType])),
			Description: shape.String(rec[fieldQuestionDesc]),
		}
	}

	for _, item := range shape.Sequence(shape.ToMapping(r.Get(ctx, recordstore.PathStudentCourses))) {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c.enrollments = append(c.enrollments, model.Enrollment{
			StudentID: shape.FirstString(rec, EnrollmentStudentFields...),
			CourseID:  shape.String(rec[fieldCourseID]),
		})
	}

	for examID, ids := range shape.ToMapping(r.Get(ctx, recordstore.PathExamQuestionsGrouped)) {
		qids := make([]string, 0)
		for _, v := range shape.Sequence(ids) {
			if qid := shape.String(v); qid != "" {
				qids = append(qids, qid)
			}
		}
		c.examQuestions[examID] = qids
	}

	for qid, list := range shape.ToMapping(r.Get(ctx, recordstore.PathChoicesByQuestion)) {
		c.choices[qid] = choiceList(qid, shape.Sequence(list))
	}

	// The flat choices collection only fills in questions that have no
	// grouping entry.
	flat := shape.Normalize(r.Get(ctx, recordstore.PathChoices), fieldChoiceID)
	derived := make(map[string][]model.Choice)
	for _, key := range shape.SortedKeys(flat) {
		rec := flat[key]
		qid := shape.String(rec[fieldQuestionID])
		text := shape.String(rec[fieldChoiceText])
		if qid == "" || text == "" {
			continue
		}
		if _, grouped := c.choices[qid]; grouped {
			continue
		}
		derived[qid] = append(derived[qid], model.Choice{QuestionID: qid, Text: text})
	}
	for qid, list := range derived {
		c.choices[qid] = list
	}

	stats := c.Stats()
	log.Info().
		Int("courses", stats.Courses).
		Int("exams", stats.Exams).
		Int("questions", stats.Questions).
		Int("enrollments", stats.Enrollments).
		Int("exam_question_groups", stats.ExamGroups).
		Int("choice_groups", stats.ChoiceGroups).
		Msg("Catalog loaded")

	return c
}

func choiceList(qid string, items []any) []model.Choice {
	out := make([]model.Choice, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if text := shape.String(rec[fieldChoiceText]); text != "" {
			out = append(out, model.Choice{QuestionID: qid, Text: text})
		}
	}
	return out
}

// ExamDuration reads the duration in minutes of an exam record, preferring
// Exam_Duration_Minutes over the legacy Exam_Duration. An absent or zero
// field defers to the next one, and an unparsable value yields fallback.
// Negative durations are kept: such an exam is over as soon as it starts.
func ExamDuration(rec shape.Record, fallback int) int {
	for _, field := range []string{fieldExamDurationMin, fieldExamDurationLegacy} {
		raw := strings.TrimSpace(shape.String(rec[field]))
		if raw == "" {
			continue
		}
		n, ok := parseMinutes(raw)
		if !ok {
			return fallback
		}
		if n != 0 {
			return n
		}
	}
	return fallback
}

func parseMinutes(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !isWhole(f) {
		return 0, false
	}
	return int(f), true
}

func isWhole(f float64) bool {
	return f == float64(int64(f))
}

// Stats returns the size of each loaded collection.
func (c *Catalog) Stats() Stats {
	return Stats{
		Courses:      len(c.courses),
		Exams:        len(c.exams),
		Questions:    len(c.questions),
		Enrollments:  len(c.enrollments),
		ExamGroups:   len(c.examQuestions),
		ChoiceGroups: len(c.choices),
		LoadedAt:     c.loadedAt,
	}
}

// Course returns the course with the given id.
func (c *Catalog) Course(id string) (model.Course, bool) {
	course, ok := c.courses[id]
	return course, ok
}

// EnrolledCourses returns the courses studentID is enrolled in, in
// enrollment order, without duplicates. Enrollments pointing at unknown
// courses are ignored. Student ids are compared as strings.
func (c *Catalog) EnrolledCourses(studentID string) []model.Course {
	var out []model.Course
	seen := make(map[string]bool)
	for _, e := range c.enrollments {
		if e.StudentID != studentID || seen[e.CourseID] {
			continue
		}
		course, ok := c.courses[e.CourseID]
		if !ok {
			continue
		}
		seen[e.CourseID] = true
		out = append(out, course)
	}
	return out
}

// ExamsForCourse returns the exams of a course ordered by id.
func (c *Catalog) ExamsForCourse(courseID string) []model.Exam {
	ids := c.examsByCourse[courseID]
	out := make([]model.Exam, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.exams[id])
	}
	return out
}

// Exam returns the exam with the given id.
func (c *Catalog) Exam(id string) (model.Exam, bool) {
	exam, ok := c.exams[id]
	return exam, ok
}

// QuestionIDs returns the ordered question ids grouped under an exam.
func (c *Catalog) QuestionIDs(examID string) []string {
	return append([]string(nil), c.examQuestions[examID]...)
}

// Question returns the question with the given id.
func (c *Catalog) Question(id string) (model.Question, bool) {
	q, ok := c.questions[id]
	return q, ok
}

// Choices returns the choices of a question.
func (c *Catalog) Choices(questionID string) []model.Choice {
	return c.choices[questionID]
}

// Snapshot is an exported view of the whole catalog.
type Snapshot struct {
	Stats         Stats                     `json:"stats"`
	Courses       map[string]model.Course   `json:"courses"`
	Exams         map[string]model.Exam     `json:"exams"`
	Questions     map[string]model.Question `json:"questions"`
	Enrollments   []model.Enrollment        `json:"enrollments"`
	ExamQuestions map[string][]string       `json:"exam_questions"`
	Choices       map[string][]model.Choice `json:"choices"`
}

// Snapshot returns the catalog contents for inspection.
func (c *Catalog) Snapshot() Snapshot {
	return Snapshot{
		Stats:         c.Stats(),
		Courses:       c.courses,
		Exams:         c.exams,
		Questions:     c.questions,
		Enrollments:   c.enrollments,
		ExamQuestions: c.examQuestions,
		Choices:       c.choices,
	}
}
