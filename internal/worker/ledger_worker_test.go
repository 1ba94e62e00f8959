package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
)

type memQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *memQueue) push(t *testing.T, s model.SubmissionSummary) {
	t.Helper()
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	q.Requeue(context.Background(), string(raw))
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	if raw, err := q.TryPop(ctx); err == nil {
		return raw, nil
	}
	sleep(ctx, 5*time.Millisecond)
	return "", redis.Nil
}

func (q *memQueue) TryPop(context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", redis.Nil
	}
	raw := q.items[0]
	q.items = q.items[1:]
	return raw, nil
}

func (q *memQueue) Requeue(_ context.Context, raw string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, raw)
	return nil
}

type memLedger struct {
	mu       sync.Mutex
	rows     []model.SubmissionSummary
	failures int
}

func (l *memLedger) Insert(_ context.Context, s model.SubmissionSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures > 0 {
		l.failures--
		return errors.New("db unavailable")
	}
	l.rows = append(l.rows, s)
	return nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func runWorker(w *LedgerWorker) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	return func() {
		stop()
		<-done
	}
}

func TestLedgerWorkerPersists(t *testing.T) {
	q := &memQueue{}
	l := &memLedger{}
	q.push(t, model.SubmissionSummary{SessionID: "a", ExamID: "500"})
	q.Requeue(context.Background(), "{not json")
	q.push(t, model.SubmissionSummary{SessionID: "b", ExamID: "500"})

	stop := runWorker(NewLedgerWorker(q, l, zerolog.Nop()))
	waitFor(t, func() bool { return l.count() == 2 })
	stop()

	if l.rows[0].SessionID != "a" || l.rows[1].SessionID != "b" {
		t.Errorf("unexpected order %+v", l.rows)
	}
}

func TestLedgerWorkerRetries(t *testing.T) {
	q := &memQueue{}
	l := &memLedger{failures: 2}
	q.push(t, model.SubmissionSummary{SessionID: "a"})

	w := NewLedgerWorker(q, l, zerolog.Nop())
	w.retryDelay = time.Millisecond

	stop := runWorker(w)
	waitFor(t, func() bool { return l.count() == 1 })
	stop()
}

func TestLedgerWorkerDrainsOnShutdown(t *testing.T) {
	q := &memQueue{}
	l := &memLedger{}
	for _, id := range []string{"a", "b", "c"} {
		q.push(t, model.SubmissionSummary{SessionID: id})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewLedgerWorker(q, l, zerolog.Nop()).Start(ctx)

	if l.count() != 3 {
		t.Errorf("expected 3 drained, got %d", l.count())
	}
}

func TestLedgerWorkerDrainStopsOnError(t *testing.T) {
	q := &memQueue{}
	l := &memLedger{failures: 1}
	q.push(t, model.SubmissionSummary{SessionID: "a"})
	q.push(t, model.SubmissionSummary{SessionID: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewLedgerWorker(q, l, zerolog.Nop()).Start(ctx)

	if l.count() != 0 {
		t.Errorf("expected nothing persisted, got %d", l.count())
	}
	if len(q.items) != 2 {
		t.Errorf("failed item should be requeued, queue has %d", len(q.items))
	}
}
