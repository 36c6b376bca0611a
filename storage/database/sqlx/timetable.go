package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/timetable"
)

type timetableRepository struct {
	baseRepository
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(exec core.DBExecutor) *timetableRepository {
	return &timetableRepository{baseRepository{exec: exec}}
}

func timetableWhere(filter timetable.Filter) whereClause {
	var where whereClause
	if filter.ClassID != "" {
		where.add("class_id = ?", filter.ClassID)
	}
	if filter.TeacherID != "" {
		where.add("teacher_id = ?", filter.TeacherID)
	}
	return where
}

func (repo timetableRepository) CreateScheduleItem(ctx context.Context, item timetable.ScheduleItem, exec ...core.DBExecutor) (timetable.ScheduleItem, error) {
	e := repo.getExec(exec)
	item.ID = uuid.New().String()
	q := e.Rebind(`INSERT INTO schedule_items (id, class_id, teacher_id, subject_id, day_of_week, period, room)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := e.ExecContext(ctx, q, item.ID, item.ClassID, item.TeacherID, item.SubjectID, item.DayOfWeek, item.Period, item.Room)
	if err != nil {
		return timetable.ScheduleItem{}, errors.Wrap(err, "inserting schedule item")
	}
	return item, nil
}

func (repo timetableRepository) QueryScheduleItems(ctx context.Context, filter timetable.Filter, exec ...core.DBExecutor) ([]timetable.ScheduleItem, error) {
	e := repo.getExec(exec)
	where := timetableWhere(filter)
	items := make([]timetable.ScheduleItem, 0)
	q := e.Rebind(`SELECT id, class_id, teacher_id, subject_id, day_of_week, period, room FROM schedule_items` +
		where.String() + ` ORDER BY day_of_week, period`)
	if err := e.SelectContext(ctx, &items, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting schedule items")
	}
	return items, nil
}

func (repo timetableRepository) CreateTeachingAssignment(ctx context.Context, ta timetable.TeachingAssignment, exec ...core.DBExecutor) (timetable.TeachingAssignment, error) {
	e := repo.getExec(exec)
	ta.ID = uuid.New().String()
	q := e.Rebind(`INSERT INTO teaching_assignments (id, teacher_id, class_id, subject_id) VALUES (?, ?, ?, ?)`)
	if _, err := e.ExecContext(ctx, q, ta.ID, ta.TeacherID, ta.ClassID, ta.SubjectID); err != nil {
		return timetable.TeachingAssignment{}, errors.Wrap(err, "inserting teaching assignment")
	}
	return ta, nil
}

func (repo timetableRepository) QueryTeachingAssignments(ctx context.Context, filter timetable.Filter, exec ...core.DBExecutor) ([]timetable.TeachingAssignment, error) {
	e := repo.getExec(exec)
	where := timetableWhere(filter)
	tas := make([]timetable.TeachingAssignment, 0)
	q := e.Rebind(`SELECT id, teacher_id, class_id, subject_id FROM teaching_assignments` + where.String() + ` ORDER BY class_id, subject_id`)
	if err := e.SelectContext(ctx, &tas, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting teaching assignments")
	}
	return tas, nil
}

func (repo timetableRepository) CreateAssignment(ctx context.Context, a timetable.Assignment, exec ...core.DBExecutor) (timetable.Assignment, error) {
	e := repo.getExec(exec)
	a.ID = uuid.New().String()
	a.CreatedAt = a.CreatedAt.UTC()
	q := e.Rebind(`INSERT INTO assignments (id, teacher_id, class_id, subject_id, title, description, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := e.ExecContext(ctx, q, a.ID, a.TeacherID, a.ClassID, a.SubjectID, a.Title, a.Description, a.DueDate, a.CreatedAt)
	if err != nil {
		return timetable.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo timetableRepository) QueryAssignments(ctx context.Context, filter timetable.Filter, exec ...core.DBExecutor) ([]timetable.Assignment, error) {
	e := repo.getExec(exec)
	where := timetableWhere(filter)
	assignments := make([]timetable.Assignment, 0)
	q := e.Rebind(`SELECT id, teacher_id, class_id, subject_id, title, description, due_date, created_at FROM assignments` +
		where.String() + ` ORDER BY created_at DESC`)
	if err := e.SelectContext(ctx, &assignments, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	return assignments, nil
}

func (repo timetableRepository) DeleteScheduleItemsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	n, err := rowsAffected(e.ExecContext(ctx, e.Rebind(`DELETE FROM schedule_items WHERE class_id = ?`), classID))
	return n, errors.Wrap(err, "deleting schedule items of class")
}

func (repo timetableRepository) ClearScheduleTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	n, err := rowsAffected(e.ExecContext(ctx, e.Rebind(`UPDATE schedule_items SET teacher_id = NULL WHERE teacher_id = ?`), teacherID))
	return n, errors.Wrap(err, "detaching teacher from schedule items")
}

func (repo timetableRepository) DeleteTeachingAssignmentsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	n, err := rowsAffected(e.ExecContext(ctx, e.Rebind(`DELETE FROM teaching_assignments WHERE class_id = ?`), classID))
	return n, errors.Wrap(err, "deleting teaching assignments of class")
}

func (repo timetableRepository) DeleteTeachingAssignmentsByTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	n, err := rowsAffected(e.ExecContext(ctx, e.Rebind(`DELETE FROM teaching_assignments WHERE teacher_id = ?`), teacherID))
	return n, errors.Wrap(err, "deleting teaching assignments of teacher")
}

func (repo timetableRepository) DeleteAssignmentsByTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error) {
	e := repo.getExec(exec)
	n, err := rowsAffected(e.ExecContext(ctx, e.Rebind(`DELETE FROM assignments WHERE teacher_id = ?`), teacherID))
	return n, errors.Wrap(err, "deleting assignments of teacher")
}
