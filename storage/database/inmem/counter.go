// Package inmemdb keeps repository state in process memory. Nothing survives a restart.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/lophoc/core"
)

// CounterRepository is a sequence.CounterStore backed by a map.
// Executors are ignored: there is no transaction to join.
type CounterRepository struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewCounterRepository() *CounterRepository {
	return &CounterRepository{values: make(map[string]int64)}
}

func (repo *CounterRepository) Increment(_ context.Context, key string, _ ...core.DBExecutor) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.values[key]++
	return repo.values[key], nil
}
