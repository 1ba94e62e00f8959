package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// Session store errors.
var (
	ErrSessionNotFound = errors.New("exam session not found")
	ErrSessionLocked   = errors.New("exam session is busy")
)

// Lock timing for SessionRepository.Lock. The lock is not renewed: a holder
// that outlives SessionLockTTL loses it.
const (
	SessionLockTTL     = 60 * time.Second
	SessionLockWait    = 5 * time.Second
	SessionLockBackoff = 50 * time.Millisecond
)

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// SessionRepository keeps exam sessions in Redis. A session is stored whole
// as JSON and replaced on every save.
type SessionRepository struct {
	rdb       *redis.Client
	ttl       time.Duration
	retention time.Duration
	lockWait  time.Duration
}

// NewSessionRepository creates a new SessionRepository. Active sessions live
// for ttl after their last save; submitted sessions for retention.
func NewSessionRepository(rdb *redis.Client, ttl, retention time.Duration) *SessionRepository {
	return &SessionRepository{rdb: rdb, ttl: ttl, retention: retention, lockWait: SessionLockWait}
}

// Get loads a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (model.ExamSession, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.ExamSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ExamSession{}, ErrSessionNotFound
	}
	if err != nil {
		return model.ExamSession{}, fmt.Errorf("get session: %w", err)
	}

	var s model.ExamSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.ExamSession{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Save replaces the stored session.
func (r *SessionRepository) Save(ctx context.Context, s model.ExamSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	ttl := r.ttl
	if s.Step == model.StepSubmitted {
		ttl = r.retention
	}

	if err := r.rdb.Set(ctx, config.CacheKey.ExamSessionKey(s.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Lock acquires the per-session transition lock, waiting up to
// SessionLockWait. The returned func releases it.
func (r *SessionRepository) Lock(ctx context.Context, id string) (func(), error) {
	key := config.CacheKey.ExamSessionLockKey(id)
	token := uuid.NewString()
	deadline := time.Now().Add(r.lockWait)

	for {
		ok, err := r.rdb.SetNX(ctx, key, token, SessionLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrSessionLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(SessionLockBackoff):
		}
	}

	return func() {
		// Release with a fresh context so a cancelled request still unlocks.
		unlockScript.Run(context.Background(), r.rdb, []string{key}, token)
	}, nil
}
