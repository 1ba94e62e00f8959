package recordstore

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

const sampleFixture = `
courses:
  - Course_ID: 10
    Course_Name: Databases
exam_questions_grouped:
  500: [1, 2]
choices_by_question:
  1:
    - Choice_ID: 7
      Choice_Text: SELECT
`

func TestLoadFixtureStringifiesKeys(t *testing.T) {
	f, err := LoadFixture(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	if got := f.Paths(); strings.Join(got, ",") != "choices_by_question,courses,exam_questions_grouped" {
		t.Errorf("unexpected paths %v", got)
	}

	grouped, ok := f["exam_questions_grouped"].(map[string]any)
	if !ok {
		t.Fatalf("expected string-keyed mapping, got %T", f["exam_questions_grouped"])
	}
	if _, ok := grouped["500"]; !ok {
		t.Errorf("expected key \"500\", got %v", grouped)
	}

	byQuestion := f["choices_by_question"].(map[string]any)
	choices := byQuestion["1"].([]any)
	if _, ok := choices[0].(map[string]any); !ok {
		t.Errorf("expected nested mapping to be string-keyed, got %T", choices[0])
	}
}

func TestLoadFixtureEmpty(t *testing.T) {
	f, err := LoadFixture(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(f) != 0 {
		t.Errorf("expected empty fixture, got %v", f)
	}
}

func TestLoadFixtureInvalid(t *testing.T) {
	if _, err := LoadFixture(strings.NewReader("courses: [unclosed")); err == nil {
		t.Error("expected decode error")
	}
}

func TestSeed(t *testing.T) {
	var puts []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		puts = append(puts, r.URL.Path)
		if r.URL.Path == "/courses.json" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	})

	f, err := LoadFixture(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	failed := Seed(context.Background(), c, f)
	if len(failed) != 1 || failed[0] != "courses" {
		t.Errorf("expected courses to fail, got %v", failed)
	}
	if len(puts) != 3 {
		t.Errorf("expected every path to be attempted, got %v", puts)
	}
}
