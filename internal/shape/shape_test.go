package shape

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return v
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKeys []string
	}{
		{
			name:     "list prefers id field",
			raw:      `[{"Course_ID": 10, "Course_Name": "Databases"}, {"Course_ID": "11", "Course_Name": "Networks"}]`,
			wantKeys: []string{"10", "11"},
		},
		{
			name:     "list falls back to index",
			raw:      `[null, {"Course_Name": "Databases"}, {"Course_Name": "Networks"}]`,
			wantKeys: []string{"1", "2"},
		},
		{
			name:     "mapping prefers id field over key",
			raw:      `{"-Nabc": {"Course_ID": 10}, "3": {"Course_ID": 12}}`,
			wantKeys: []string{"10", "12"},
		},
		{
			name:     "mapping falls back to numeric key only",
			raw:      `{"7": {"Course_Name": "Databases"}, "-Nxyz": {"Course_Name": "Networks"}}`,
			wantKeys: []string{"7"},
		},
		{
			name:     "non-record items skipped",
			raw:      `[1, "two", null, [3], {"Course_ID": 4}]`,
			wantKeys: []string{"4"},
		},
		{
			name:     "empty id value falls back",
			raw:      `[{"Course_ID": ""}]`,
			wantKeys: []string{"0"},
		},
		{
			name:     "scalar",
			raw:      `42`,
			wantKeys: nil,
		},
		{
			name:     "null",
			raw:      `null`,
			wantKeys: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(decode(t, tt.raw), "Course_ID")
			if len(got) != len(tt.wantKeys) {
				t.Fatalf("got %d records %v, want keys %v", len(got), got, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				if _, ok := got[k]; !ok {
					t.Errorf("missing key %q in %v", k, got)
				}
			}
		})
	}
}

func TestNormalizeShapeInvariance(t *testing.T) {
	list := decode(t, `[{"Exam_ID": 500, "Course_ID": 10}, {"Exam_ID": 501, "Course_ID": 11}]`)
	mapping := decode(t, `{"a": {"Exam_ID": 500, "Course_ID": 10}, "b": {"Exam_ID": 501, "Course_ID": 11}}`)

	fromList := Normalize(list, "Exam_ID")
	fromMap := Normalize(mapping, "Exam_ID")

	if !reflect.DeepEqual(fromList, fromMap) {
		t.Fatalf("shape changed the result:\nlist: %v\nmap:  %v", fromList, fromMap)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		`[{"Question_ID": 1}, {"Question_Description": "no id"}, null, {"Question_ID": "9"}]`,
		`{"5": {"Question_Description": "keyed"}, "x": {"Question_ID": 6}, "y": {"nothing": true}}`,
	}

	for _, raw := range inputs {
		once := Normalize(decode(t, raw), "Question_ID")
		twice := Normalize(once, "Question_ID")
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("not idempotent for %s:\nonce:  %v\ntwice: %v", raw, once, twice)
		}
	}
}

func TestToMapping(t *testing.T) {
	got := ToMapping(decode(t, `[null, [1, 2], {"Choice_Text": "A"}]`))
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
	if _, ok := got["1"]; !ok {
		t.Errorf("expected index key 1 in %v", got)
	}

	got = ToMapping(decode(t, `{"500": [1, 2], "501": null}`))
	if len(got) != 1 {
		t.Fatalf("expected null values dropped, got %v", got)
	}

	if got := ToMapping(decode(t, `"scalar"`)); len(got) != 0 {
		t.Errorf("expected empty mapping for scalar, got %v", got)
	}
}

func TestSequence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"list", `[3, null, 1, 2]`, []string{"3", "1", "2"}},
		{"sparse mapping", `{"10": "c", "2": "b", "0": "a"}`, []string{"a", "b", "c"}},
		{"scalar", `7`, []string{"7"}},
		{"null", `null`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := Sequence(decode(t, tt.raw))
			got := make([]string, 0, len(seq))
			for _, v := range seq {
				got = append(got, String(v))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstString(t *testing.T) {
	rec := Record{"student_id": json.Number("1001"), "StudentID": "2002"}
	if got := FirstString(rec, "Student_ID", "student_id", "StudentID"); got != "1001" {
		t.Errorf("got %q, want 1001", got)
	}
	if got := FirstString(Record{}, "Student_ID"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
