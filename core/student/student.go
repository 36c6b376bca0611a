// Package student manages student profiles together with their login accounts.
package student

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/user"
)

var ErrNotFound = core.NewNotFoundError("student")

// Student is the profile merged with the account fields it is usually shown with.
type Student struct {
	ID     string `json:"id"` // HS2025-001
	UserID string `json:"user_id"`

	// account
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`

	ClassID            null.String `json:"class_id"`
	EnrollmentYear     int         `json:"enrollment_year"`
	DateOfBirth        string      `json:"date_of_birth"` // YYYY-MM-DD
	Gender             string      `json:"gender"`
	Address            string      `json:"address"`
	ParentName         string      `json:"parent_name"`
	ParentPhone        string      `json:"parent_phone"`
	ParentEmail        string      `json:"parent_email"`
	Notes              []string    `json:"notes"`
	WeeklyScoreHistory []float64   `json:"weekly_score_history"`
	CreatedAt          time.Time   `json:"created_at"` // UTC
	UpdatedAt          time.Time   `json:"updated_at"` // UTC
}

func (st Student) Account() user.User {
	return user.User{
		ID:       st.UserID,
		Name:     st.Name,
		Username: st.Username,
		Email:    st.Email,
		Role:     user.RoleStudent,
		IsActive: st.IsActive,
	}
}

// NewStudent contains information needed to create a Student and their account.
type NewStudent struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"` // default password when empty

	StudentID      string   `json:"student_id" validate:"max=20"` // generated when empty
	ClassID        string   `json:"class_id"`
	EnrollmentYear int      `json:"enrollment_year" validate:"omitempty,min=1900,max=2100"`
	DateOfBirth    string   `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender         string   `json:"gender" validate:"omitempty,gender"`
	Address        string   `json:"address" validate:"max=255"`
	ParentName     string   `json:"parent_name" validate:"max=100"`
	ParentPhone    string   `json:"parent_phone" validate:"max=20"`
	ParentEmail    string   `json:"parent_email" validate:"omitempty,email"`
	Notes          []string `json:"notes"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.Gender = core.CleanString(ns.Gender, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

// ProfileFields are the profile columns an update may change; nil means unchanged.
type ProfileFields struct {
	ClassID            *string    `json:"class_id"` // "" detaches
	EnrollmentYear     *int       `json:"enrollment_year" validate:"omitempty,min=1900,max=2100"`
	DateOfBirth        *string    `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02|eq="`
	Gender             *string    `json:"gender" validate:"omitempty,gender|eq="`
	Address            *string    `json:"address" validate:"omitempty,max=255"`
	ParentName         *string    `json:"parent_name" validate:"omitempty,max=100"`
	ParentPhone        *string    `json:"parent_phone" validate:"omitempty,max=20"`
	ParentEmail        *string    `json:"parent_email" validate:"omitempty,email|eq="`
	Notes              *[]string  `json:"notes"`
	WeeklyScoreHistory *[]float64 `json:"weekly_score_history"`
}

// UpdateStudent splits one flat JSON object into the account part and the profile part.
// Generated id, username and role are not updatable.
type UpdateStudent struct {
	Account user.AccountPatch `json:"-"`
	Profile ProfileFields     `json:"-"`
}

func (us *UpdateStudent) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &us.Account); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &us.Profile); err != nil {
		return err
	}
	nulls, err := core.NullKeys(data)
	if err != nil {
		return err
	}
	if nulls["class_id"] {
		us.Profile.ClassID = core.StringPtr("")
	}
	if nulls["notes"] {
		us.Profile.Notes = &[]string{}
	}
	if nulls["weekly_score_history"] {
		us.Profile.WeeklyScoreHistory = &[]float64{}
	}
	return nil
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	clean := func(s *string, lower ...bool) {
		if s != nil {
			*s = core.CleanString(*s, lower...)
		}
	}
	clean(us.Account.Name)
	clean(us.Account.Email, true)
	clean(us.Profile.ClassID)
	clean(us.Profile.DateOfBirth)
	clean(us.Profile.Gender, true)
	clean(us.Profile.Address)
	clean(us.Profile.ParentName)
	clean(us.Profile.ParentPhone)
	clean(us.Profile.ParentEmail, true)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search         string `query:"search"`
	ClassID        string `query:"class_id"`
	EnrollmentYear int    `query:"enrollment_year"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassID = core.CleanString(qf.ClassID)
}

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student, exec ...core.DBExecutor) error
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		// UpdateStudent writes the profile columns only.
		UpdateStudent(ctx context.Context, st Student, exec ...core.DBExecutor) error
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
		ClearClass(ctx context.Context, classID string, exec ...core.DBExecutor) (int64, error)
	}

	// Accounts is the part of the account service the profile lifecycles drive.
	Accounts interface {
		Seal(pwd string) (credential.Credentials, error)
		CreateInTx(ctx context.Context, exec core.DBExecutor, na user.NewAccount) (user.User, error)
		UpdateAccountInTx(ctx context.Context, exec core.DBExecutor, id string, patch user.AccountPatch) (user.User, error)
		DeleteInTx(ctx context.Context, exec core.DBExecutor, id string) error
		NotifyCreated(usr user.User)
	}

	ClassChecker interface {
		ClassGroupExists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	}
)
