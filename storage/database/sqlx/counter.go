package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/sequence"
)

// a single upsert statement: concurrent callers serialise on the row lock (postgres)
// or the write lock (sqlite), so each one reads back a distinct value.
const incrementCounterQuery = `
INSERT INTO sequence_counters (name, value) VALUES (?, 1)
ON CONFLICT (name) DO UPDATE SET value = sequence_counters.value + 1
RETURNING value`

type counterRepository struct {
	baseRepository
}

var _ sequence.CounterStore = (*counterRepository)(nil) // interface compliance check

func NewCounterRepository(exec core.DBExecutor) *counterRepository {
	return &counterRepository{baseRepository{exec: exec}}
}

func (repo counterRepository) Increment(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	var value int64
	if err := e.QueryRowxContext(ctx, e.Rebind(incrementCounterQuery), key).Scan(&value); err != nil {
		return 0, errors.Wrap(err, "upserting counter")
	}
	return value, nil
}
