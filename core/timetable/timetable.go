// Package timetable holds the records that hang off classes and teachers:
// weekly schedule slots, teaching assignments and homework assignments.
package timetable

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
)

type (
	ScheduleItem struct {
		ID        string      `json:"id" db:"id"`
		ClassID   string      `json:"class_id" db:"class_id"`
		TeacherID null.String `json:"teacher_id" db:"teacher_id"`
		SubjectID string      `json:"subject_id" db:"subject_id"`
		DayOfWeek int         `json:"day_of_week" db:"day_of_week"` // 1 = Monday
		Period    int         `json:"period" db:"period"`
		Room      string      `json:"room" db:"room"`
	}

	TeachingAssignment struct {
		ID        string `json:"id" db:"id"`
		TeacherID string `json:"teacher_id" db:"teacher_id"`
		ClassID   string `json:"class_id" db:"class_id"`
		SubjectID string `json:"subject_id" db:"subject_id"`
	}

	// Assignment is homework authored by a teacher for a class.
	Assignment struct {
		ID          string    `json:"id" db:"id"`
		TeacherID   string    `json:"teacher_id" db:"teacher_id"`
		ClassID     string    `json:"class_id" db:"class_id"`
		SubjectID   string    `json:"subject_id" db:"subject_id"`
		Title       string    `json:"title" db:"title"`
		Description string    `json:"description" db:"description"`
		DueDate     string    `json:"due_date" db:"due_date"` // YYYY-MM-DD
		CreatedAt   time.Time `json:"created_at" db:"created_at"`
	}
)

type (
	NewScheduleItem struct {
		ClassID   string `json:"class_id" validate:"required"`
		TeacherID string `json:"teacher_id"`
		SubjectID string `json:"subject_id" validate:"required"`
		DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
		Period    int    `json:"period" validate:"required,min=1,max=12"`
		Room      string `json:"room" validate:"max=20"`
	}

	NewTeachingAssignment struct {
		TeacherID string `json:"teacher_id" validate:"required"`
		ClassID   string `json:"class_id" validate:"required"`
		SubjectID string `json:"subject_id" validate:"required"`
	}

	NewAssignment struct {
		TeacherID   string `json:"teacher_id" validate:"required"`
		ClassID     string `json:"class_id" validate:"required"`
		SubjectID   string `json:"subject_id" validate:"required"`
		Title       string `json:"title" validate:"required,max=200"`
		Description string `json:"description"`
		DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	}

	Filter struct {
		ClassID   string `query:"class_id"`
		TeacherID string `query:"teacher_id"`
	}
)

func (ns *NewScheduleItem) Validate(validate *validator.Validate) error {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.TeacherID = core.CleanString(ns.TeacherID)
	ns.SubjectID = core.CleanString(ns.SubjectID)
	ns.Room = core.CleanString(ns.Room)
	return validate.Struct(ns)
}

func (nt *NewTeachingAssignment) Validate(validate *validator.Validate) error {
	nt.TeacherID = core.CleanString(nt.TeacherID)
	nt.ClassID = core.CleanString(nt.ClassID)
	nt.SubjectID = core.CleanString(nt.SubjectID)
	return validate.Struct(nt)
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// References answers existence checks for the rows a timetable record points at.
type References interface {
	ClassGroupExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	TeacherExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	SubjectExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
}

type Repository interface {
	CreateScheduleItem(ctx context.Context, item ScheduleItem, exec ...core.DBExecutor) (ScheduleItem, error)
	QueryScheduleItems(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]ScheduleItem, error)
	CreateTeachingAssignment(ctx context.Context, ta TeachingAssignment, exec ...core.DBExecutor) (TeachingAssignment, error)
	QueryTeachingAssignments(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]TeachingAssignment, error)
	CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
	QueryAssignments(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Assignment, error)

	// cascade primitives, run by the class and teacher lifecycles inside their delete transaction
	DeleteScheduleItemsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error)
	ClearScheduleTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
	DeleteTeachingAssignmentsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error)
	DeleteTeachingAssignmentsByTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
	DeleteAssignmentsByTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
}
