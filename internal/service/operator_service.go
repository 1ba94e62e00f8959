package service

import (
	"context"
	"sync"

	"github.com/stemsi/exam-portal/internal/catalog"
	"github.com/stemsi/exam-portal/internal/repository"
)

// SubmissionLister reads the submission ledger.
type SubmissionLister interface {
	List(ctx context.Context, f repository.SubmissionFilter, page, perPage int) ([]repository.SubmissionRow, int64, error)
}

// QueueLengther reports how many summaries wait for the ledger worker.
type QueueLengther interface {
	Len(ctx context.Context) (int64, error)
}

// OperatorService backs the operator endpoints.
type OperatorService struct {
	catalog *catalog.Catalog
	ledger  SubmissionLister
	queue   QueueLengther
}

// NewOperatorService creates a new OperatorService.
func NewOperatorService(cat *catalog.Catalog, ledger SubmissionLister, queue QueueLengther) *OperatorService {
	return &OperatorService{catalog: cat, ledger: ledger, queue: queue}
}

// CatalogOverview is the catalog summary shown to operators.
type CatalogOverview struct {
	catalog.Stats
	PendingSubmissions int64 `json:"pending_submissions"`
}

// CatalogOverview returns catalog counts plus the ledger backlog. The backlog
// is best-effort and reported as -1 when unavailable.
func (s *OperatorService) CatalogOverview(ctx context.Context) CatalogOverview {
	out := CatalogOverview{Stats: s.catalog.Stats(), PendingSubmissions: -1}
	if n, err := s.queue.Len(ctx); err == nil {
		out.PendingSubmissions = n
	}
	return out
}

// SubmissionPage is one page of the ledger.
type SubmissionPage struct {
	Rows    []repository.SubmissionRow
	Total   int64
	Pending int64
}

// ListSubmissions returns a page of the ledger. The rows and the backlog
// length are fetched in parallel; the backlog is best-effort.
func (s *OperatorService) ListSubmissions(ctx context.Context, f repository.SubmissionFilter, page, perPage int) (*SubmissionPage, error) {
	var (
		rows    []repository.SubmissionRow
		total   int64
		listErr error
		pending int64 = -1
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		rows, total, listErr = s.ledger.List(ctx, f, page, perPage)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if n, err := s.queue.Len(ctx); err == nil {
			pending = n
		}
	}()

	wg.Wait()

	if listErr != nil {
		return nil, listErr
	}
	if rows == nil {
		rows = []repository.SubmissionRow{}
	}
	return &SubmissionPage{Rows: rows, Total: total, Pending: pending}, nil
}
