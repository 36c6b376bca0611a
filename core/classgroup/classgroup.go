// Package classgroup manages classes (homeroom groups) and their removal cascade.
package classgroup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
)

var ErrNotFound = core.NewNotFoundError("class")

type ClassGroup struct {
	ID           string      `json:"id" db:"id"` // C2025-001
	Name         string      `json:"name" db:"name"`
	Grade        int         `json:"grade" db:"grade"`
	AcademicYear string      `json:"academic_year" db:"academic_year"`
	TeacherID    null.String `json:"teacher_id" db:"teacher_id"` // homeroom teacher
	Room         string      `json:"room" db:"room"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

type NewClassGroup struct {
	Name         string `json:"name" validate:"required,max=50"`
	Grade        int    `json:"grade" validate:"required,min=1,max=12"`
	AcademicYear string `json:"academic_year" validate:"required,academicyear"`
	TeacherID    string `json:"teacher_id"`
	Room         string `json:"room" validate:"max=20"`
}

func (nc *NewClassGroup) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	nc.Room = core.CleanString(nc.Room)
	return validate.Struct(nc)
}

// UpdateClassGroup is a partial update: nil fields are left alone.
// TeacherID set to "" (or null in JSON) removes the homeroom teacher.
type UpdateClassGroup struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=50"`
	Grade     *int    `json:"grade" validate:"omitempty,min=1,max=12"`
	TeacherID *string `json:"teacher_id"`
	Room      *string `json:"room" validate:"omitempty,max=20"`
}

func (uc *UpdateClassGroup) UnmarshalJSON(data []byte) error {
	type alias UpdateClassGroup
	if err := json.Unmarshal(data, (*alias)(uc)); err != nil {
		return err
	}
	nulls, err := core.NullKeys(data)
	if err != nil {
		return err
	}
	if nulls["teacher_id"] {
		uc.TeacherID = core.StringPtr("")
	}
	return nil
}

func (uc *UpdateClassGroup) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		*uc.Name = core.CleanString(*uc.Name)
	}
	if uc.TeacherID != nil {
		*uc.TeacherID = core.CleanString(*uc.TeacherID)
	}
	if uc.Room != nil {
		*uc.Room = core.CleanString(*uc.Room)
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search       string `query:"search"`
	AcademicYear string `query:"academic_year"`
	Grade        int    `query:"grade"`
	TeacherID    string `query:"teacher_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.TeacherID = core.CleanString(qf.TeacherID)
}

type (
	Repository interface {
		CreateClassGroup(ctx context.Context, cg ClassGroup, exec ...core.DBExecutor) (ClassGroup, error)
		GetClassGroup(ctx context.Context, id string, exec ...core.DBExecutor) (ClassGroup, error)
		// FindClassGroup matches an id, else a name (latest academic year first).
		FindClassGroup(ctx context.Context, ref string, exec ...core.DBExecutor) (ClassGroup, error)
		QueryClassGroups(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]ClassGroup, error)
		UpdateClassGroup(ctx context.Context, cg ClassGroup, exec ...core.DBExecutor) (ClassGroup, error)
		DeleteClassGroup(ctx context.Context, id string, exec ...core.DBExecutor) error
		ClearHomeroomTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
	}

	// StudentLinks detaches students from a class about to be deleted.
	StudentLinks interface {
		ClearClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error)
	}

	// TimetableCascade removes the timetable rows of a class about to be deleted.
	TimetableCascade interface {
		DeleteScheduleItemsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error)
		DeleteTeachingAssignmentsByClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error)
	}

	TeacherChecker interface {
		TeacherExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	}
)
