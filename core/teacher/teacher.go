// Package teacher manages teacher profiles together with their login accounts.
package teacher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/user"
)

var ErrNotFound = core.NewNotFoundError("teacher")

type Teacher struct {
	ID     string `json:"id"` // GV2025-001
	UserID string `json:"user_id"`

	// account
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`

	JoinYear      int                `json:"join_year"`
	Phone         string             `json:"phone"`
	Department    subject.Department `json:"department"`
	Qualification string             `json:"qualification"`
	SubjectIDs    []string           `json:"subject_ids"`
	CreatedAt     time.Time          `json:"created_at"` // UTC
	UpdatedAt     time.Time          `json:"updated_at"` // UTC
}

func (t Teacher) Account() user.User {
	return user.User{
		ID:       t.UserID,
		Name:     t.Name,
		Username: t.Username,
		Email:    t.Email,
		Role:     user.RoleTeacher,
		IsActive: t.IsActive,
	}
}

// NewTeacher contains information needed to create a Teacher and their account.
type NewTeacher struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"` // default password when empty

	TeacherID     string   `json:"teacher_id" validate:"max=20"` // generated when empty
	JoinYear      int      `json:"join_year" validate:"omitempty,min=1900,max=2100"`
	Phone         string   `json:"phone" validate:"max=20"`
	Department    string   `json:"department" validate:"omitempty,department"` // first subject's department when empty
	Qualification string   `json:"qualification" validate:"max=100"`
	SubjectIDs    []string `json:"subject_ids"` // ids or names
}

func (nt *NewTeacher) Clean() {
	nt.Name = core.CleanString(nt.Name)
	nt.Username = core.CleanString(nt.Username, true /* lower */)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.TeacherID = core.CleanString(nt.TeacherID)
	nt.Phone = core.CleanString(nt.Phone)
	nt.Qualification = core.CleanString(nt.Qualification)
	if d, ok := subject.ParseDepartment(nt.Department); ok {
		nt.Department = string(d)
	}
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Clean()
	return validate.Struct(nt)
}

type ProfileFields struct {
	JoinYear      *int      `json:"join_year" validate:"omitempty,min=1900,max=2100"`
	Phone         *string   `json:"phone" validate:"omitempty,max=20"`
	Department    *string   `json:"department" validate:"omitempty,department"`
	Qualification *string   `json:"qualification" validate:"omitempty,max=100"`
	SubjectIDs    *[]string `json:"subject_ids"`
}

// UpdateTeacher splits one flat JSON object into the account part and the profile part.
type UpdateTeacher struct {
	Account user.AccountPatch `json:"-"`
	Profile ProfileFields     `json:"-"`
}

func (upd *UpdateTeacher) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &upd.Account); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &upd.Profile); err != nil {
		return err
	}
	nulls, err := core.NullKeys(data)
	if err != nil {
		return err
	}
	if nulls["subject_ids"] {
		upd.Profile.SubjectIDs = &[]string{}
	}
	return nil
}

func (upd *UpdateTeacher) Validate(validate *validator.Validate) error {
	if upd.Account.Name != nil {
		*upd.Account.Name = core.CleanString(*upd.Account.Name)
	}
	if upd.Account.Email != nil {
		*upd.Account.Email = core.CleanString(*upd.Account.Email, true /* lower */)
	}
	if upd.Profile.Phone != nil {
		*upd.Profile.Phone = core.CleanString(*upd.Profile.Phone)
	}
	if upd.Profile.Qualification != nil {
		*upd.Profile.Qualification = core.CleanString(*upd.Profile.Qualification)
	}
	if upd.Profile.Department != nil {
		if d, ok := subject.ParseDepartment(*upd.Profile.Department); ok {
			*upd.Profile.Department = string(d)
		}
	}
	return validate.Struct(upd)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Department string `query:"department"`
	SubjectID  string `query:"subject_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SubjectID = core.CleanString(qf.SubjectID)
	if d, ok := subject.ParseDepartment(qf.Department); ok {
		qf.Department = string(d)
	}
}

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) error
		GetTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (Teacher, error)
		QueryTeachers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Teacher, error)
		// UpdateTeacher writes the profile columns only.
		UpdateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) error
		DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Accounts interface {
		Seal(pwd string) (credential.Credentials, error)
		CreateInTx(ctx context.Context, exec core.DBExecutor, na user.NewAccount) (user.User, error)
		UpdateAccountInTx(ctx context.Context, exec core.DBExecutor, id string, patch user.AccountPatch) (user.User, error)
		DeleteInTx(ctx context.Context, exec core.DBExecutor, id string) error
		NotifyCreated(usr user.User)
	}

	SubjectResolver interface {
		Resolve(ctx context.Context, refs []string, exec ...core.DBExecutor) ([]subject.Subject, []string, error)
	}

	// HomeroomLinks detaches a teacher about to be deleted from the classes they lead.
	HomeroomLinks interface {
		ClearHomeroomTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
	}

	// TimetableCascade removes or detaches the timetable rows of a teacher about to be deleted.
	TimetableCascade interface {
		ClearScheduleTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
		DeleteTeachingAssignmentsByTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
		DeleteAssignmentsByTeacher(ctx context.Context, teacherID string, exec ...core.DBExecutor) (int64, error)
	}
)
