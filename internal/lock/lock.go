// Package lock provides the per-key mutual exclusion used to serialize every
// mutation touching one receipt (or one lot) while leaving other keys free.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotObtained is returned when a lock could not be acquired before the wait deadline.
var ErrNotObtained = errors.New("lock not obtained")

// Unlock releases a held lock. It is safe to call once.
type Unlock func()

// Locker acquires exclusive locks by key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedLocker is an in-process Locker. Each key owns a one-slot channel so
// waiting honours context cancellation; entries are dropped once unused.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
	wait    time.Duration
}

// NewKeyedLocker builds a KeyedLocker. wait bounds how long Lock blocks when
// the caller's context carries no deadline; zero means wait for the context only.
func NewKeyedLocker(wait time.Duration) *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*keyedEntry), wait: wait}
}

// Lock blocks until the key is free, the wait timeout elapses or ctx is done.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	if _, ok := ctx.Deadline(); !ok && l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	entry := l.acquire(key)
	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.ch
				l.release(key)
			})
		}, nil
	case <-ctx.Done():
		l.release(key)
		return nil, fmt.Errorf("lock %s: %w: %v", key, ErrNotObtained, ctx.Err())
	}
}

func (l *KeyedLocker) acquire(key string) *keyedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *KeyedLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

// ReceiptKey is the lock key guarding a receipt and its dependent records.
func ReceiptKey(receiptID string) string { return "receipt:" + receiptID }

// LotKey is the lock key guarding a lot.
func LotKey(lotID string) string { return "lot:" + lotID }

// SLAKey is the key serializing snapshot writes for one month.
func SLAKey(month string) string { return "sla:" + month }
