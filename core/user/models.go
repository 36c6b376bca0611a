package user

import (
	"time"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
)

// Roles
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// PasswordCodec turns a plaintext password into the stored Credentials and back.
type PasswordCodec interface {
	Seal(plaintext string) (credential.Credentials, error)
	Verify(plaintext string, hash []byte) bool
	Decrypt(payload string) (string, error)
}

// User is the login account behind every Student, Teacher and administrator.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`

	// PasswordHash is a bcrypt hash, or the plaintext itself on legacy rows.
	PasswordHash []byte `json:"-"`
	// PasswordEncrypted is empty on legacy rows.
	PasswordEncrypted string `json:"-"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastLogin time.Time `json:"last_login"` // UTC
}

// SetPassword replaces both stored representations of the password.
func (u *User) SetPassword(codec PasswordCodec, pwd string) error {
	creds, err := codec.Seal(pwd)
	if err != nil {
		return err
	}
	u.SetCredentials(creds)
	return nil
}

func (u *User) SetCredentials(creds credential.Credentials) {
	u.PasswordHash = creds.Hash
	u.PasswordEncrypted = creds.Encrypted
}

func (u *User) CheckPassword(codec PasswordCodec, pwd string) bool {
	return codec.Verify(pwd, u.PasswordHash)
}

// IsLegacy reports a row written before passwords were encrypted.
func (u *User) IsLegacy() bool { return u.PasswordEncrypted == "" }

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewAccount is what the lifecycle services hand over to create the account of a new profile.
// Credentials must already be sealed.
type NewAccount struct {
	Name        string
	Username    string
	Email       string
	Role        string
	Credentials credential.Credentials
}

func (na *NewAccount) Clean() {
	na.Name = core.CleanString(na.Name)
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
}

// AccountPatch holds the only account fields a profile update may change.
type AccountPatch struct {
	Name  *string `json:"name" validate:"omitempty,notblank,max=100"`
	Email *string `json:"email" validate:"omitempty,email|eq="`
}

func (ap AccountPatch) IsEmpty() bool { return ap.Name == nil && ap.Email == nil }

// NewAdmin contains information needed to create an administrator.
type NewAdmin struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAdmin) Clean() {
	na.Name = core.CleanString(na.Name)
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
}

// ChangePassword is the self-service password change of an authenticated user.
type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// user attributes the new password must not resemble
	name, username, email string
}

// ResetPassword is an administrator setting a password, without policy checks.
type ResetPassword struct {
	Password string `json:"password" validate:"required,min=6"`
}

type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
