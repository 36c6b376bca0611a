package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/student"
)

const studentSelect = `SELECT s.id, s.user_id, a.name, a.username, a.email, a.is_active,
	s.class_id, s.enrollment_year, s.date_of_birth, s.gender, s.address,
	s.parent_name, s.parent_phone, s.parent_email, s.notes, s.weekly_score_history,
	s.created_at, s.updated_at
FROM students s JOIN accounts a ON a.id = s.user_id`

var studentOrdering = map[string]string{
	"id":              "s.id",
	"name":            "a.name",
	"username":        "a.username",
	"enrollment_year": "s.enrollment_year",
	"class_id":        "s.class_id",
	"created_at":      "s.created_at",
}

type studentRow struct {
	ID                 string      `db:"id"`
	UserID             string      `db:"user_id"`
	Name               string      `db:"name"`
	Username           string      `db:"username"`
	Email              null.String `db:"email"`
	IsActive           bool        `db:"is_active"`
	ClassID            null.String `db:"class_id"`
	EnrollmentYear     int         `db:"enrollment_year"`
	DateOfBirth        string      `db:"date_of_birth"`
	Gender             string      `db:"gender"`
	Address            string      `db:"address"`
	ParentName         string      `db:"parent_name"`
	ParentPhone        string      `db:"parent_phone"`
	ParentEmail        string      `db:"parent_email"`
	Notes              string      `db:"notes"`
	WeeklyScoreHistory string      `db:"weekly_score_history"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

type studentRepository struct {
	baseRepository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{baseRepository{exec: exec}}
}

func (repo studentRepository) fromRow(row studentRow) (student.Student, error) {
	st := student.Student{
		ID:             row.ID,
		UserID:         row.UserID,
		Name:           row.Name,
		Username:       row.Username,
		Email:          row.Email.String,
		IsActive:       row.IsActive,
		ClassID:        row.ClassID,
		EnrollmentYear: row.EnrollmentYear,
		DateOfBirth:    row.DateOfBirth,
		Gender:         row.Gender,
		Address:        row.Address,
		ParentName:     row.ParentName,
		ParentPhone:    row.ParentPhone,
		ParentEmail:    row.ParentEmail,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if err := unmarshalList(row.Notes, &st.Notes); err != nil {
		return student.Student{}, err
	}
	if err := unmarshalList(row.WeeklyScoreHistory, &st.WeeklyScoreHistory); err != nil {
		return student.Student{}, err
	}
	return st, nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	notes, err := marshalList(st.Notes)
	if err != nil {
		return err
	}
	scores, err := marshalList(st.WeeklyScoreHistory)
	if err != nil {
		return err
	}

	q := e.Rebind(`INSERT INTO students (id, user_id, class_id, enrollment_year, date_of_birth, gender, address,
		parent_name, parent_phone, parent_email, notes, weekly_score_history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = e.ExecContext(ctx, q,
		st.ID, st.UserID, st.ClassID, st.EnrollmentYear, st.DateOfBirth, st.Gender, st.Address,
		st.ParentName, st.ParentPhone, st.ParentEmail, notes, scores, st.CreatedAt.UTC(), st.UpdatedAt.UTC(),
	)
	if err != nil {
		if desc, ok := uniqueViolation(err); ok && !strings.Contains(desc, "user_id") {
			return core.NewDuplicateError("student", "id")
		}
		return errors.Wrap(err, "inserting student")
	}
	return nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	e := repo.getExec(exec)
	var row studentRow
	if err := e.GetContext(ctx, &row, e.Rebind(studentSelect+` WHERE s.id = ?`), id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "selecting student")
	}
	return repo.fromRow(row)
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	e := repo.getExec(exec)

	var where whereClause
	where.search(filter.Search, "s.id", "a.name", "a.username", "a.email")
	if filter.ClassID != "" {
		where.add("s.class_id = ?", filter.ClassID)
	}
	if filter.EnrollmentYear > 0 {
		where.add("s.enrollment_year = ?", filter.EnrollmentYear)
	}

	var rows []studentRow
	q := e.Rebind(studentSelect + where.String() + orderBy(ordering, studentOrdering, "s.id"))
	if err := e.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		st, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, st student.Student, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	notes, err := marshalList(st.Notes)
	if err != nil {
		return err
	}
	scores, err := marshalList(st.WeeklyScoreHistory)
	if err != nil {
		return err
	}

	q := e.Rebind(`UPDATE students SET class_id = ?, enrollment_year = ?, date_of_birth = ?, gender = ?, address = ?,
		parent_name = ?, parent_phone = ?, parent_email = ?, notes = ?, weekly_score_history = ?, updated_at = ?
		WHERE id = ?`)
	res, err := e.ExecContext(ctx, q,
		st.ClassID, st.EnrollmentYear, st.DateOfBirth, st.Gender, st.Address,
		st.ParentName, st.ParentPhone, st.ParentEmail, notes, scores, st.UpdatedAt.UTC(), st.ID,
	)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return mustAffect(res, student.ErrNotFound)
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM students WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return mustAffect(res, student.ErrNotFound)
}

func (repo studentRepository) ClearClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	n, err := rowsAffected(e.ExecContext(ctx,
		e.Rebind(`UPDATE students SET class_id = NULL WHERE class_id = ?`), classID))
	return n, errors.Wrap(err, "detaching students from class")
}
