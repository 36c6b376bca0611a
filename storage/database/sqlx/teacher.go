package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
)

const teacherSelect = `SELECT t.id, t.user_id, a.name, a.username, a.email, a.is_active,
	t.join_year, t.phone, t.department, t.qualification, t.subject_ids, t.created_at, t.updated_at
FROM teachers t JOIN accounts a ON a.id = t.user_id`

var teacherOrdering = map[string]string{
	"id":         "t.id",
	"name":       "a.name",
	"username":   "a.username",
	"join_year":  "t.join_year",
	"department": "t.department",
	"created_at": "t.created_at",
}

type teacherRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	Name          string      `db:"name"`
	Username      string      `db:"username"`
	Email         null.String `db:"email"`
	IsActive      bool        `db:"is_active"`
	JoinYear      int         `db:"join_year"`
	Phone         string      `db:"phone"`
	Department    string      `db:"department"`
	Qualification string      `db:"qualification"`
	SubjectIDs    string      `db:"subject_ids"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

type teacherRepository struct {
	baseRepository
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(exec core.DBExecutor) *teacherRepository {
	return &teacherRepository{baseRepository{exec: exec}}
}

func (repo teacherRepository) fromRow(row teacherRow) (teacher.Teacher, error) {
	t := teacher.Teacher{
		ID:            row.ID,
		UserID:        row.UserID,
		Name:          row.Name,
		Username:      row.Username,
		Email:         row.Email.String,
		IsActive:      row.IsActive,
		JoinYear:      row.JoinYear,
		Phone:         row.Phone,
		Department:    subject.Department(row.Department),
		Qualification: row.Qualification,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
	if err := unmarshalList(row.SubjectIDs, &t.SubjectIDs); err != nil {
		return teacher.Teacher{}, err
	}
	return t, nil
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	subjects, err := marshalList(t.SubjectIDs)
	if err != nil {
		return err
	}

	q := e.Rebind(`INSERT INTO teachers (id, user_id, join_year, phone, department, qualification, subject_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = e.ExecContext(ctx, q,
		t.ID, t.UserID, t.JoinYear, t.Phone, string(t.Department), t.Qualification, subjects,
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		if desc, ok := uniqueViolation(err); ok && !strings.Contains(desc, "user_id") {
			return core.NewDuplicateError("teacher", "id")
		}
		return errors.Wrap(err, "inserting teacher")
	}
	return nil
}

func (repo teacherRepository) GetTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (teacher.Teacher, error) {
	e := repo.getExec(exec)
	var row teacherRow
	if err := e.GetContext(ctx, &row, e.Rebind(teacherSelect+` WHERE t.id = ?`), id); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "selecting teacher")
	}
	return repo.fromRow(row)
}

func (repo teacherRepository) QueryTeachers(ctx context.Context, filter teacher.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]teacher.Teacher, error) {
	e := repo.getExec(exec)

	var where whereClause
	where.search(filter.Search, "t.id", "a.name", "a.username", "a.email")
	if filter.Department != "" {
		where.add("t.department = ?", filter.Department)
	}
	if filter.SubjectID != "" {
		where.add("t.subject_ids LIKE ?", `%"`+filter.SubjectID+`"%`)
	}

	var rows []teacherRow
	q := e.Rebind(teacherSelect + where.String() + orderBy(ordering, teacherOrdering, "t.id"))
	if err := e.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}

	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, row := range rows {
		t, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, nil
}

func (repo teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	subjects, err := marshalList(t.SubjectIDs)
	if err != nil {
		return err
	}

	q := e.Rebind(`UPDATE teachers SET join_year = ?, phone = ?, department = ?, qualification = ?, subject_ids = ?, updated_at = ?
		WHERE id = ?`)
	res, err := e.ExecContext(ctx, q,
		t.JoinYear, t.Phone, string(t.Department), t.Qualification, subjects, t.UpdatedAt.UTC(), t.ID,
	)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return mustAffect(res, teacher.ErrNotFound)
}

func (repo teacherRepository) DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM teachers WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return mustAffect(res, teacher.ErrNotFound)
}
