package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// SubmissionRow is one ledger entry as listed to operators.
type SubmissionRow struct {
	ID          int64                    `json:"id"`
	SessionID   string                   `json:"session_id"`
	ExamID      string                   `json:"exam_id"`
	StudentID   string                   `json:"student_id"`
	Forced      bool                     `json:"forced"`
	Unanswered  int                      `json:"unanswered"`
	Succeeded   int                      `json:"succeeded"`
	Failed      int                      `json:"failed"`
	SubmittedAt time.Time                `json:"submitted_at"`
	Results     []model.SubmissionResult `json:"results"`
}

// SubmissionFilter narrows SubmissionRepository.List. Empty fields match all.
type SubmissionFilter struct {
	ExamID    string
	StudentID string
}

// SubmissionRepository handles the submission ledger in PostgreSQL.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Insert records a submission summary and its per-question results in one
// transaction. A summary already recorded for the same session is ignored.
func (r *SubmissionRepository) Insert(ctx context.Context, s model.SubmissionSummary) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO submissions (session_id, exam_id, student_id, forced, unanswered, succeeded, failed, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (session_id) DO NOTHING
		 RETURNING id`,
		s.SessionID, s.ExamID, s.StudentID, s.Forced, s.Unanswered, s.Succeeded, s.Failed, s.SubmittedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	batch := &pgx.Batch{}
	for i, res := range s.Results {
		var remote *string
		if res.RemoteID != "" {
			remote = &res.RemoteID
		}
		batch.Queue(
			`INSERT INTO submission_results (submission_id, position, question_id, remote_id, ok)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, i, res.QuestionID, remote, res.OK,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// List returns a page of submissions, newest first, with the total count.
func (r *SubmissionRepository) List(ctx context.Context, f SubmissionFilter, page, perPage int) ([]SubmissionRow, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := ` FROM submissions WHERE 1=1`
	args := []any{}
	if f.ExamID != "" {
		args = append(args, f.ExamID)
		baseQuery += fmt.Sprintf(" AND exam_id = $%d", len(args))
	}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		baseQuery += fmt.Sprintf(" AND student_id = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, session_id, exam_id, student_id, forced, unanswered, succeeded, failed, submitted_at` +
		baseQuery +
		fmt.Sprintf(" ORDER BY submitted_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []SubmissionRow
	index := make(map[int64]int)
	for rows.Next() {
		var s SubmissionRow
		if err := rows.Scan(&s.ID, &s.SessionID, &s.ExamID, &s.StudentID, &s.Forced,
			&s.Unanswered, &s.Succeeded, &s.Failed, &s.SubmittedAt); err != nil {
			return nil, 0, err
		}
		index[s.ID] = len(list)
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(list) == 0 {
		return list, total, nil
	}

	ids := make([]int64, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	resRows, err := r.pool.Query(ctx,
		`SELECT submission_id, question_id, COALESCE(remote_id, ''), ok
		 FROM submission_results
		 WHERE submission_id = ANY($1)
		 ORDER BY submission_id, position`, ids)
	if err != nil {
		return nil, 0, err
	}
	defer resRows.Close()

	for resRows.Next() {
		var sid int64
		var res model.SubmissionResult
		if err := resRows.Scan(&sid, &res.QuestionID, &res.RemoteID, &res.OK); err != nil {
			return nil, 0, err
		}
		i := index[sid]
		list[i].Results = append(list[i].Results, res)
	}

	return list, total, resRows.Err()
}

// LedgerQueue is the Redis list feeding submission summaries to the ledger
// worker.
type LedgerQueue struct {
	rdb *redis.Client
}

// NewLedgerQueue creates a new LedgerQueue.
func NewLedgerQueue(rdb *redis.Client) *LedgerQueue {
	return &LedgerQueue{rdb: rdb}
}

// Enqueue appends a summary to the queue.
func (q *LedgerQueue) Enqueue(ctx context.Context, s model.SubmissionSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw).Err()
}

// Requeue puts a raw item back at the tail of the queue.
func (q *LedgerQueue) Requeue(ctx context.Context, raw string) error {
	return q.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw).Err()
}

// Pop blocks up to timeout for the next item. It returns redis.Nil when the
// queue stayed empty.
func (q *LedgerQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.PersistSubmissionsQueue).Result()
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", redis.Nil
	}
	return res[1], nil
}

// TryPop removes the next item without blocking.
func (q *LedgerQueue) TryPop(ctx context.Context) (string, error) {
	return q.rdb.LPop(ctx, config.WorkerKey.PersistSubmissionsQueue).Result()
}

// Len returns the number of queued items.
func (q *LedgerQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, config.WorkerKey.PersistSubmissionsQueue).Result()
}
