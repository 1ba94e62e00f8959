package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/catalog"
	"github.com/stemsi/exam-portal/internal/repository"
)

type fakeLedger struct {
	rows   []repository.SubmissionRow
	err    error
	filter repository.SubmissionFilter
}

func (l *fakeLedger) List(_ context.Context, f repository.SubmissionFilter, page, perPage int) ([]repository.SubmissionRow, int64, error) {
	l.filter = f
	return l.rows, int64(len(l.rows)), l.err
}

type fakeLen struct {
	n   int64
	err error
}

func (q fakeLen) Len(context.Context) (int64, error) { return q.n, q.err }

func TestCatalogOverview(t *testing.T) {
	cat := catalog.Load(context.Background(), storeFixture, 30, zerolog.Nop())

	s := NewOperatorService(cat, &fakeLedger{}, fakeLen{n: 3})
	got := s.CatalogOverview(context.Background())
	if got.Courses != 5 || got.Exams != 4 || got.PendingSubmissions != 3 {
		t.Errorf("unexpected overview %+v", got)
	}

	s = NewOperatorService(cat, &fakeLedger{}, fakeLen{err: errors.New("down")})
	if got := s.CatalogOverview(context.Background()); got.PendingSubmissions != -1 {
		t.Errorf("expected -1 backlog when redis fails, got %d", got.PendingSubmissions)
	}
}

func TestListSubmissions(t *testing.T) {
	ledger := &fakeLedger{rows: []repository.SubmissionRow{{ID: 1, ExamID: "500"}}}
	s := NewOperatorService(nil, ledger, fakeLen{err: errors.New("down")})

	page, err := s.ListSubmissions(context.Background(), repository.SubmissionFilter{ExamID: "500"}, 1, 20)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if page.Total != 1 || len(page.Rows) != 1 || page.Pending != -1 {
		t.Errorf("unexpected page %+v", page)
	}
	if ledger.filter.ExamID != "500" {
		t.Errorf("filter not forwarded: %+v", ledger.filter)
	}

	ledger.err = errors.New("db down")
	if _, err := s.ListSubmissions(context.Background(), repository.SubmissionFilter{}, 1, 20); err == nil {
		t.Error("expected ledger error to propagate")
	}

	empty := NewOperatorService(nil, &fakeLedger{}, fakeLen{})
	page, _ = empty.ListSubmissions(context.Background(), repository.SubmissionFilter{}, 1, 20)
	if page.Rows == nil {
		t.Error("rows should be an empty slice, not nil")
	}
}
