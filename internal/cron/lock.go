package cron

import (
	"context"
	"sync"
)

// Lock coordinates exclusive runs of a cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLock keeps cycles from overlapping inside one process. Sessions live in the
// memory of a single replica, so every replica sweeps its own store.
type LocalLock struct {
	mu sync.Mutex
}

// NewLocalLock builds an unlocked in-process lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire reports false when a cycle already holds the lock.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

// Release frees the lock.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Unlock()
	return nil
}
