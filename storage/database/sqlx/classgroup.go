package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classgroup"
)

const classGroupColumns = `id, name, grade, academic_year, teacher_id, room, created_at, updated_at`

var classGroupOrdering = map[string]string{
	"id":            "id",
	"name":          "name",
	"grade":         "grade",
	"academic_year": "academic_year",
	"created_at":    "created_at",
}

type classGroupRepository struct {
	baseRepository
}

var _ classgroup.Repository = (*classGroupRepository)(nil) // interface compliance check

func NewClassGroupRepository(exec core.DBExecutor) *classGroupRepository {
	return &classGroupRepository{baseRepository{exec: exec}}
}

func (repo classGroupRepository) CreateClassGroup(ctx context.Context, cg classgroup.ClassGroup, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	e := repo.getExec(exec)
	cg.CreatedAt, cg.UpdatedAt = cg.CreatedAt.UTC(), cg.UpdatedAt.UTC()
	q := e.Rebind(`INSERT INTO class_groups (` + classGroupColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := e.ExecContext(ctx, q,
		cg.ID, cg.Name, cg.Grade, cg.AcademicYear, cg.TeacherID, cg.Room, cg.CreatedAt, cg.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return classgroup.ClassGroup{}, core.NewDuplicateError("class", "id")
		}
		return classgroup.ClassGroup{}, errors.Wrap(err, "inserting class")
	}
	return cg, nil
}

func (repo classGroupRepository) GetClassGroup(ctx context.Context, id string, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	e := repo.getExec(exec)
	var cg classgroup.ClassGroup
	q := e.Rebind(`SELECT ` + classGroupColumns + ` FROM class_groups WHERE id = ?`)
	if err := e.GetContext(ctx, &cg, q, id); err != nil {
		return classgroup.ClassGroup{}, trapNoRowsErr(err, classgroup.ErrNotFound, "selecting class")
	}
	return cg, nil
}

func (repo classGroupRepository) FindClassGroup(ctx context.Context, ref string, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	e := repo.getExec(exec)
	var cg classgroup.ClassGroup
	q := e.Rebind(`SELECT ` + classGroupColumns + ` FROM class_groups
		WHERE id = ? OR LOWER(name) = LOWER(?)
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END, academic_year DESC, created_at DESC
		LIMIT 1`)
	if err := e.GetContext(ctx, &cg, q, ref, ref, ref); err != nil {
		return classgroup.ClassGroup{}, trapNoRowsErr(err, classgroup.ErrNotFound, "finding class")
	}
	return cg, nil
}

func (repo classGroupRepository) QueryClassGroups(ctx context.Context, filter classgroup.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]classgroup.ClassGroup, error) {
	e := repo.getExec(exec)

	var where whereClause
	where.search(filter.Search, "id", "name", "room")
	if filter.AcademicYear != "" {
		where.add("academic_year = ?", filter.AcademicYear)
	}
	if filter.Grade > 0 {
		where.add("grade = ?", filter.Grade)
	}
	if filter.TeacherID != "" {
		where.add("teacher_id = ?", filter.TeacherID)
	}

	q := e.Rebind(`SELECT ` + classGroupColumns + ` FROM class_groups` + where.String() +
		orderBy(ordering, classGroupOrdering, "academic_year DESC, grade, name"))
	classes := make([]classgroup.ClassGroup, 0)
	if err := e.SelectContext(ctx, &classes, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	return classes, nil
}

func (repo classGroupRepository) UpdateClassGroup(ctx context.Context, cg classgroup.ClassGroup, exec ...core.DBExecutor) (classgroup.ClassGroup, error) {
	e := repo.getExec(exec)
	cg.UpdatedAt = cg.UpdatedAt.UTC()
	q := e.Rebind(`UPDATE class_groups SET name = ?, grade = ?, teacher_id = ?, room = ?, updated_at = ? WHERE id = ?`)
	res, err := e.ExecContext(ctx, q, cg.Name, cg.Grade, cg.TeacherID, cg.Room, cg.UpdatedAt, cg.ID)
	if err != nil {
		return classgroup.ClassGroup{}, errors.Wrap(err, "updating class")
	}
	if err = mustAffect(res, classgroup.ErrNotFound); err != nil {
		return classgroup.ClassGroup{}, err
	}
	return cg, nil
}

func (repo classGroupRepository) DeleteClassGroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM class_groups WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return mustAffect(res, classgroup.ErrNotFound)
}

func (repo classGroupRepository) ClearHomeroomTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	n, err := rowsAffected(e.ExecContext(ctx,
		e.Rebind(`UPDATE class_groups SET teacher_id = NULL WHERE teacher_id = ?`), teacherID))
	return n, errors.Wrap(err, "clearing homeroom teacher")
}
