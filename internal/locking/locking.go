// Package locking serializes schema generation per scope across one or more
// service instances.
package locking

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ModeAdvisory = "advisory"
	ModeLocal    = "local"
)

// Lock is a held scope lock. Release must be called exactly once.
type Lock interface {
	ScopeKind() string
	ScopeName() string
	Release(ctx context.Context) error
}

// Manager hands out per-scope locks.
type Manager interface {
	// TryAcquire returns (nil, false, nil) when another holder owns the scope.
	TryAcquire(ctx context.Context, scopeKind, scopeName string) (Lock, bool, error)
}

// NewManager builds a lock manager for the given mode. Advisory mode uses
// Postgres session advisory locks and works across instances; local mode is
// in-process only.
func NewManager(mode string, pool *pgxpool.Pool) (Manager, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAdvisory:
		if pool == nil {
			return nil, errors.New("advisory lock mode requires a database pool")
		}
		return &advisoryManager{pool: pool}, nil
	case ModeLocal:
		return NewLocalManager(), nil
	default:
		return nil, fmt.Errorf("unknown lock mode %q", mode)
	}
}

// ScopeKey folds a scope into the 64-bit key space advisory locks use.
func ScopeKey(scopeKind, scopeName string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(scopeKind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(scopeName))
	return int64(h.Sum64())
}

func normalizeScope(kind, name string) (string, string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	name = strings.ToLower(strings.TrimSpace(name))
	if kind == "" {
		return "", "", errors.New("scope kind is required")
	}
	if name == "" {
		return "", "", errors.New("scope name is required")
	}
	return kind, name, nil
}

type advisoryManager struct {
	pool *pgxpool.Pool
}

func (m *advisoryManager) TryAcquire(ctx context.Context, scopeKind, scopeName string) (Lock, bool, error) {
	scopeKind, scopeName, err := normalizeScope(scopeKind, scopeName)
	if err != nil {
		return nil, false, err
	}
	if m == nil || m.pool == nil {
		return nil, false, errors.New("lock manager is not configured")
	}

	// The lock is session scoped, so the connection must stay pinned until
	// release.
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	key := ScopeKey(scopeKind, scopeName)

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	return &advisoryLock{
		conn:      conn,
		key:       key,
		scopeKind: scopeKind,
		scopeName: scopeName,
	}, true, nil
}

type advisoryLock struct {
	conn      *pgxpool.Conn
	key       int64
	scopeKind string
	scopeName string

	releaseOnce sync.Once
}

func (l *advisoryLock) ScopeKind() string { return l.scopeKind }
func (l *advisoryLock) ScopeName() string { return l.scopeName }

func (l *advisoryLock) Release(ctx context.Context) error {
	if l == nil || l.conn == nil {
		return errors.New("lock is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var unlockErr error
	l.releaseOnce.Do(func() {
		var unlocked bool
		unlockErr = l.conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", l.key).Scan(&unlocked)
		l.conn.Release()
	})
	return unlockErr
}

// NewLocalManager builds an in-process lock manager.
func NewLocalManager() Manager {
	return &localManager{held: make(map[string]struct{})}
}

type localManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (m *localManager) TryAcquire(_ context.Context, scopeKind, scopeName string) (Lock, bool, error) {
	scopeKind, scopeName, err := normalizeScope(scopeKind, scopeName)
	if err != nil {
		return nil, false, err
	}
	key := scopeKind + "\x00" + scopeName

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return nil, false, nil
	}
	m.held[key] = struct{}{}
	return &localLock{m: m, key: key, scopeKind: scopeKind, scopeName: scopeName}, true, nil
}

type localLock struct {
	m         *localManager
	key       string
	scopeKind string
	scopeName string

	releaseOnce sync.Once
}

func (l *localLock) ScopeKind() string { return l.scopeKind }
func (l *localLock) ScopeName() string { return l.scopeName }

func (l *localLock) Release(context.Context) error {
	l.releaseOnce.Do(func() {
		l.m.mu.Lock()
		delete(l.m.held, l.key)
		l.m.mu.Unlock()
	})
	return nil
}
