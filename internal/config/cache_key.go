package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamSessionKey returns the cache key holding a serialized exam session.
func (r *CacheKeyStruct) ExamSessionKey(sessionID string) string {
	return fmt.Sprintf("exam_session:%s", sessionID)
}

// ExamSessionLockKey returns the key used to serialize transitions on one session.
func (r *CacheKeyStruct) ExamSessionLockKey(sessionID string) string {
	return fmt.Sprintf("exam_session:%s:lock", sessionID)
}

var CacheKey = NewCacheKeyStruct()
