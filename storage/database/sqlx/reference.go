package sqlxrepos

import (
	"context"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/timetable"
)

// referenceRepository answers "does this row exist" for cross-entity checks.
type referenceRepository struct {
	baseRepository
}

var _ timetable.References = (*referenceRepository)(nil) // interface compliance check

func NewReferenceRepository(exec core.DBExecutor) *referenceRepository {
	return &referenceRepository{baseRepository{exec: exec}}
}

func (repo referenceRepository) ClassGroupExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	return exists(ctx, repo.getExec(exec), `SELECT 1 FROM class_groups WHERE id = ?`, id)
}

func (repo referenceRepository) TeacherExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	return exists(ctx, repo.getExec(exec), `SELECT 1 FROM teachers WHERE id = ?`, id)
}

func (repo referenceRepository) SubjectExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	return exists(ctx, repo.getExec(exec), `SELECT 1 FROM subjects WHERE id = ?`, id)
}
