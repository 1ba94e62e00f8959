package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/shape"
)

type fakeReader map[string]string

func (f fakeReader) Get(_ context.Context, path string) any {
	body, ok := f[path]
	if !ok {
		return map[string]any{}
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || v == nil {
		return map[string]any{}
	}
	return v
}

var fixture = fakeReader{
	"courses": `[null, {"Course_ID": 10, "Course_Name": "Databases"}, {"Course_ID": "11", "Course_Name": "Networks"}]`,
	"exams": `{
		"500": {"Exam_ID": 500, "Course_ID": 10, "Exam_Duration_Minutes": 45},
		"501": {"Exam_ID": 501, "Course_ID": 10, "Exam_Duration": "20"},
		"600": {"Exam_ID": 600, "Course_ID": 11, "Exam_Duration_Minutes": "abc"}
	}`,
	"questions": `[
		{"Question_ID": 1, "Question_Type": "MCQ", "Question_Description": "Pick a normal form"},
		{"Question_ID": 2, "Question_Type": "True/False", "Question_Description": "SQL is declarative"},
		{"Question_ID": 3, "Question_Type": "Essay", "Question_Description": "Explain joins"}
	]`,
	"student_courses": `[
		{"Student_ID": 1001, "Course_ID": 10},
		{"student_id": "1001", "Course_ID": 11},
		{"StudentID": "1001", "Course_ID": 10},
		{"Student_ID": "1001", "Course_ID": 99},
		{"Student_ID": "", "student_id": "2002", "Course_ID": 11}
	]`,
	"exam_questions_grouped": `{"500": [1, 2, null, 3], "501": {"1": 3, "0": 2}}`,
	"choices_by_question": `{"1": [{"Choice_Text": "1NF"}, {"Choice_Text": ""}, {"Choice_Text": "3NF"}]}`,
	"choices": `[
		{"Choice_ID": 1, "Question_ID": 1, "Choice_Text": "ignored"},
		{"Choice_ID": 2, "Question_ID": 3, "Choice_Text": "hint A"},
		{"Choice_ID": 3, "Question_ID": 3, "Choice_Text": "hint B"}
	]`,
}

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	return Load(context.Background(), fixture, 30, zerolog.Nop())
}

func TestLoadCourses(t *testing.T) {
	c := loadFixture(t)

	course, ok := c.Course("10")
	if !ok || course.Name != "Databases" {
		t.Fatalf("expected course 10 Databases, got %+v ok=%v", course, ok)
	}
	if _, ok := c.Course("11"); !ok {
		t.Error("course keyed by string id missing")
	}
	if got := c.Stats().Courses; got != 2 {
		t.Errorf("expected 2 courses, got %d", got)
	}
}

func TestEnrolledCourses(t *testing.T) {
	c := loadFixture(t)

	got := c.EnrolledCourses("1001")
	if len(got) != 2 || got[0].ID != "10" || got[1].ID != "11" {
		t.Fatalf("expected courses [10 11], got %+v", got)
	}

	// Empty Student_ID falls through to the next field.
	if got := c.EnrolledCourses("2002"); len(got) != 1 || got[0].ID != "11" {
		t.Errorf("expected fallback field to match, got %+v", got)
	}
	if got := c.EnrolledCourses("3003"); len(got) != 0 {
		t.Errorf("expected no courses, got %+v", got)
	}
}

func TestExamDurations(t *testing.T) {
	c := loadFixture(t)

	tests := []struct {
		id   string
		want int
	}{
		{"500", 45},
		{"501", 20},
		{"600", 30},
	}
	for _, tt := range tests {
		exam, ok := c.Exam(tt.id)
		if !ok {
			t.Fatalf("exam %s missing", tt.id)
		}
		if exam.DurationMinutes != tt.want {
			t.Errorf("exam %s: duration %d, want %d", tt.id, exam.DurationMinutes, tt.want)
		}
	}

	exams := c.ExamsForCourse("10")
	if len(exams) != 2 || exams[0].ID != "500" || exams[1].ID != "501" {
		t.Errorf("expected exams [500 501] for course 10, got %+v", exams)
	}
}

func TestExamDurationParsing(t *testing.T) {
	tests := []struct {
		name string
		rec  shape.Record
		want int
	}{
		{"absent", shape.Record{}, 30},
		{"number", shape.Record{"Exam_Duration_Minutes": json.Number("60")}, 60},
		{"padded string", shape.Record{"Exam_Duration_Minutes": " 15 "}, 15},
		{"whole float", shape.Record{"Exam_Duration_Minutes": 25.0}, 25},
		{"fractional", shape.Record{"Exam_Duration_Minutes": 12.5}, 30},
		{"zero", shape.Record{"Exam_Duration_Minutes": json.Number("0")}, 30},
		{"zero falls through to legacy", shape.Record{"Exam_Duration_Minutes": json.Number("0"), "Exam_Duration": "40"}, 40},
		{"negative kept", shape.Record{"Exam_Duration_Minutes": json.Number("-5")}, -5},
		{"unparsable stops the search", shape.Record{"Exam_Duration_Minutes": "soon", "Exam_Duration": "40"}, 30},
		{"legacy field", shape.Record{"Exam_Duration": "40"}, 40},
		{"preferred field wins", shape.Record{"Exam_Duration_Minutes": "50", "Exam_Duration": "40"}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExamDuration(tt.rec, 30); got != tt.want {
				t.Errorf("ExamDuration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQuestionsAndGrouping(t *testing.T) {
	c := loadFixture(t)

	if q, _ := c.Question("1"); q.Type != model.QuestionTypeMultipleChoice {
		t.Errorf("question 1 type %s", q.Type)
	}
	if q, _ := c.Question("2"); q.Type != model.QuestionTypeTrueFalse {
		t.Errorf("question 2 type %s", q.Type)
	}
	if q, _ := c.Question("3"); q.Type != model.QuestionTypeFreeText {
		t.Errorf("question 3 type %s", q.Type)
	}

	if got := c.QuestionIDs("500"); strings.Join(got, ",") != "1,2,3" {
		t.Errorf("exam 500 question ids %v", got)
	}
	if got := c.QuestionIDs("501"); strings.Join(got, ",") != "2,3" {
		t.Errorf("exam 501 question ids %v", got)
	}
	if got := c.QuestionIDs("999"); len(got) != 0 {
		t.Errorf("unknown exam should have no questions, got %v", got)
	}
}

func TestChoices(t *testing.T) {
	c := loadFixture(t)

	got := c.Choices("1")
	if len(got) != 2 || got[0].Text != "1NF" || got[1].Text != "3NF" {
		t.Errorf("grouped choices not used: %+v", got)
	}

	flat := c.Choices("3")
	if len(flat) != 2 || flat[0].Text != "hint A" || flat[1].Text != "hint B" {
		t.Errorf("flat choices fallback not used: %+v", flat)
	}

	if got := c.Choices("2"); len(got) != 0 {
		t.Errorf("expected no choices for question 2, got %+v", got)
	}
}

func TestLoadEmptyStore(t *testing.T) {
	c := Load(context.Background(), fakeReader{}, 30, zerolog.Nop())

	stats := c.Stats()
	if stats.Courses+stats.Exams+stats.Questions+stats.Enrollments != 0 {
		t.Errorf("expected empty catalog, got %+v", stats)
	}
	if got := c.EnrolledCourses("1001"); len(got) != 0 {
		t.Errorf("expected no courses, got %+v", got)
	}
}
