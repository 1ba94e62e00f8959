package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
)

const (
	LedgerPollTimeout = 1 * time.Second
	LedgerRetryDelay  = 5 * time.Second
)

// Queue is the Redis list the worker consumes.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	TryPop(ctx context.Context) (string, error)
	Requeue(ctx context.Context, raw string) error
}

// Ledger stores submission summaries.
type Ledger interface {
	Insert(ctx context.Context, s model.SubmissionSummary) error
}

// LedgerWorker consumes persist_submissions_queue and records each
// submission summary in PostgreSQL.
type LedgerWorker struct {
	queue  Queue
	ledger Ledger
	log    zerolog.Logger

	retryDelay time.Duration
}

// NewLedgerWorker creates a new LedgerWorker.
func NewLedgerWorker(queue Queue, ledger Ledger, log zerolog.Logger) *LedgerWorker {
	return &LedgerWorker{
		queue:      queue,
		ledger:     ledger,
		log:        log.With().Str("component", "ledger_worker").Logger(),
		retryDelay: LedgerRetryDelay,
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *LedgerWorker) processNext(ctx context.Context) {
	raw, err := w.queue.Pop(ctx, LedgerPollTimeout)
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			// Avoid spinning while Redis is unreachable.
			sleep(ctx, time.Second)
		}
		return
	}

	summary, ok := w.decode(raw)
	if !ok {
		return
	}

	if err := w.ledger.Insert(ctx, summary); err != nil {
		w.log.Error().Err(err).
			Str("session_id", summary.SessionID).
			Str("exam_id", summary.ExamID).
			Msg("Persist error, retrying later")
		// Push back to queue for retry.
		if err := w.queue.Requeue(context.Background(), raw); err != nil {
			w.log.Error().Err(err).Str("session_id", summary.SessionID).Msg("Requeue failed, summary lost")
		}
		sleep(ctx, w.retryDelay)
	}
}

func (w *LedgerWorker) decode(raw string) (model.SubmissionSummary, bool) {
	var s model.SubmissionSummary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error, dropping item")
		return s, false
	}
	return s, true
}

// drain processes all remaining items in the queue before shutdown.
func (w *LedgerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.TryPop(ctx)
		if err != nil {
			break
		}

		summary, ok := w.decode(raw)
		if !ok {
			continue
		}

		if err := w.ledger.Insert(ctx, summary); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.queue.Requeue(ctx, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
