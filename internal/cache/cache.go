// Package cache holds cleaned rushing tables keyed by season.
//
// Entries never expire: a season's table is fetched once and kept for the
// life of the backend.
package cache

import (
	"context"
	"sync"

	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// Cache is the year → table store injected into the season loader.
type Cache interface {
	Get(ctx context.Context, year int) (stats.Table, bool, error)
	Set(ctx context.Context, year int, t stats.Table) error
}

// Memory is a process-wide cache. Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	tables map[int]stats.Table
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[int]stats.Table)}
}

func (m *Memory) Get(_ context.Context, year int) (stats.Table, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[year]
	return t, ok, nil
}

func (m *Memory) Set(_ context.Context, year int, t stats.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables == nil {
		m.tables = make(map[int]stats.Table)
	}
	m.tables[year] = t
	return nil
}
