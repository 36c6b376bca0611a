// Package importer bulk-creates students and teachers from an uploaded sheet.
// A file is accepted as a whole or not at all.
package importer

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/user"
)

var (
	ErrEmptyFile       = errors.New("the file has no data rows")
	ErrUnsupportedFile = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "only .xlsx and .csv files are supported"})
)

// RowError is one problem found on one sheet row.
type RowError struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Error  string `json:"error"`
}

// ValidationFailed carries every row error of a rejected file.
type ValidationFailed struct {
	Errors []RowError
}

func (err *ValidationFailed) Error() string {
	return fmt.Sprintf("validation failed: %d errors", len(err.Errors))
}

type Result struct {
	Count int `json:"count"`
}

type (
	Accounts interface {
		Seal(pwd string) (credential.Credentials, error)
		CheckUniqueness(ctx context.Context, uname, email string, excludedIDs []string, exec ...core.DBExecutor) error
		NotifyCreated(usr user.User)
	}

	Students interface {
		CreateInTx(ctx context.Context, exec core.DBExecutor, ns student.NewStudent, creds credential.Credentials) (student.Student, error)
	}

	Teachers interface {
		CreateInTx(ctx context.Context, exec core.DBExecutor, nt teacher.NewTeacher, creds credential.Credentials) (teacher.Teacher, error)
	}

	Classes interface {
		Find(ctx context.Context, ref string, exec ...core.DBExecutor) (classgroup.ClassGroup, error)
	}

	Subjects interface {
		Resolve(ctx context.Context, refs []string, exec ...core.DBExecutor) ([]subject.Subject, []string, error)
	}
)

type Importer struct {
	db         core.DB
	accounts   Accounts
	students   Students
	teachers   Teachers
	classes    Classes
	subjects   Subjects
	validate   *validator.Validate
	translator ut.Translator
	conf       *core.Config
	logger     core.Logger
}

func New(
	db core.DB,
	accounts Accounts,
	students Students,
	teachers Teachers,
	classes Classes,
	subjects Subjects,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
	logger core.Logger,
) *Importer {
	return &Importer{
		db:         db,
		accounts:   accounts,
		students:   students,
		teachers:   teachers,
		classes:    classes,
		subjects:   subjects,
		validate:   validate,
		translator: translator,
		conf:       conf,
		logger:     logger,
	}
}

// report accumulates the row errors of one import.
type report struct {
	errors    []RowError
	usernames map[string]int
	emails    map[string]int
}

func newReport() *report {
	return &report{usernames: make(map[string]int), emails: make(map[string]int)}
}

func (rep *report) add(row int, column, msg string) {
	rep.errors = append(rep.errors, RowError{Row: row, Column: column, Error: msg})
}

// seen flags a username or e-mail already used by an earlier row of the file.
func (rep *report) seen(row int, username, email string) bool {
	dup := false
	if prev, ok := rep.usernames[username]; ok {
		rep.add(row, "username", fmt.Sprintf("username %q is already used on row %d", username, prev))
		dup = true
	} else {
		rep.usernames[username] = row
	}
	if email == "" {
		return dup
	}
	if prev, ok := rep.emails[email]; ok {
		rep.add(row, "email", fmt.Sprintf("email %q is already used on row %d", email, prev))
		dup = true
	} else {
		rep.emails[email] = row
	}
	return dup
}

// fieldErrors turns a failed struct validation into row errors named after sheet columns.
// It returns false when err is not a validation failure.
func (imp *Importer) fieldErrors(rep *report, row int, columns map[string]string, err error) bool {
	verrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return false
	}
	for _, fe := range verrs {
		col, ok := columns[fe.Field()]
		if !ok {
			col = fe.Field()
		}
		rep.add(row, col, fe.Translate(imp.translator))
	}
	return true
}

// checkAccount runs the account cross-reference checks shared by every import kind.
func (imp *Importer) checkAccount(ctx context.Context, rep *report, row int, username, email string) (bool, error) {
	ok := !rep.seen(row, username, email)
	err := imp.accounts.CheckUniqueness(ctx, username, email, nil)
	if err != nil {
		verr, isValidation := errors.Cause(err).(*core.ValidationError)
		if !isValidation {
			return false, err
		}
		for _, f := range verr.Fields {
			rep.add(row, f.Field, f.Error)
		}
		ok = false
	}
	return ok, nil
}

// commit seals every accepted row, then creates them all in one transaction.
func commit[T any](
	ctx context.Context,
	imp *Importer,
	accepted []T,
	password func(T) string,
	create func(exec core.DBExecutor, item T, creds credential.Credentials) (user.User, error),
) (Result, error) {
	creds := make([]credential.Credentials, len(accepted))
	for i, item := range accepted {
		c, err := imp.accounts.Seal(password(item))
		if err != nil {
			return Result{}, err
		}
		creds[i] = c
	}

	var (
		count   int
		created []user.User
	)
	err := core.InTx(ctx, imp.db, func(exec core.DBExecutor) error {
		for i, item := range accepted {
			usr, err := create(exec, item, creds[i])
			if err != nil {
				return err
			}
			created = append(created, usr)
			count++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	for _, usr := range created {
		imp.accounts.NotifyCreated(usr)
	}
	return Result{Count: count}, nil
}
