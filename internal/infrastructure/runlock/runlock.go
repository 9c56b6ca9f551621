// Package runlock serializes sync runs. Only one sync may be in flight
// at a time; concurrent triggers are rejected, not queued.
package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/salespipe/backend/internal/domain/shared"
)

// RunLock guards a sync run. Acquire returns a release function on
// success and shared.ErrSyncInProgress while another run holds the lock.
// The TTL bounds how long a crashed holder can block new runs.
type RunLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// MemoryRunLock is a single-process run lock
type MemoryRunLock struct {
	mu        sync.Mutex
	ttl       time.Duration
	held      bool
	expiresAt time.Time
	now       func() time.Time
}

var _ RunLock = (*MemoryRunLock)(nil)

// NewMemoryRunLock creates a memory run lock with the given TTL
func NewMemoryRunLock(ttl time.Duration) *MemoryRunLock {
	return &MemoryRunLock{ttl: ttl, now: time.Now}
}

// Acquire takes the lock if it is free or its previous holder expired
func (l *MemoryRunLock) Acquire(_ context.Context) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.held && now.Before(l.expiresAt) {
		return nil, shared.ErrSyncInProgress
	}
	l.held = true
	l.expiresAt = now.Add(l.ttl)

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}
	return release, nil
}
