package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/sequence"
	"github.com/trezcool/lophoc/core/user"
)

var errClassNotFound = core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class does not exist"})

type Service struct {
	db       core.DB
	repo     Repository
	accounts Accounts
	seq      *sequence.Generator
	classes  ClassChecker
	conf     *core.Config
}

func NewService(
	db core.DB,
	repo Repository,
	accounts Accounts,
	seq *sequence.Generator,
	classes ClassChecker,
	conf *core.Config,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		accounts: accounts,
		seq:      seq,
		classes:  classes,
		conf:     conf,
	}
}

func (svc *Service) checkClass(ctx context.Context, classID string, exec core.DBExecutor) error {
	if classID == "" {
		return nil
	}
	ok, err := svc.classes.ClassGroupExists(ctx, classID, exec)
	if err != nil {
		return errors.Wrap(err, "checking class")
	}
	if !ok {
		return errClassNotFound
	}
	return nil
}

// Create seals the password (the configured default when none is given) before opening
// the transaction that inserts the account, draws the student id and inserts the profile.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	pwd := ns.Password
	if pwd == "" {
		pwd = svc.conf.Defaults.StudentPassword
	}
	creds, err := svc.accounts.Seal(pwd)
	if err != nil {
		return Student{}, err
	}

	var st Student
	err = core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		st, err = svc.CreateInTx(ctx, exec, ns, creds)
		return err
	})
	if err != nil {
		return Student{}, err
	}
	svc.accounts.NotifyCreated(st.Account())
	return st, nil
}

// CreateInTx does the inserts of Create inside the caller's transaction.
func (svc *Service) CreateInTx(ctx context.Context, exec core.DBExecutor, ns NewStudent, creds credential.Credentials) (Student, error) {
	ns.Clean()
	if err := svc.checkClass(ctx, ns.ClassID, exec); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	if ns.EnrollmentYear == 0 {
		ns.EnrollmentYear = now.Year()
	}

	usr, err := svc.accounts.CreateInTx(ctx, exec, user.NewAccount{
		Name:        ns.Name,
		Username:    ns.Username,
		Email:       ns.Email,
		Role:        user.RoleStudent,
		Credentials: creds,
	})
	if err != nil {
		return Student{}, err
	}

	id := ns.StudentID
	if id == "" {
		if id, err = svc.seq.StudentID(ctx, ns.EnrollmentYear, exec); err != nil {
			return Student{}, err
		}
	}

	st := Student{
		ID:                 id,
		UserID:             usr.ID,
		Name:               usr.Name,
		Username:           usr.Username,
		Email:              usr.Email,
		IsActive:           usr.IsActive,
		ClassID:            null.NewString(ns.ClassID, ns.ClassID != ""),
		EnrollmentYear:     ns.EnrollmentYear,
		DateOfBirth:        ns.DateOfBirth,
		Gender:             ns.Gender,
		Address:            ns.Address,
		ParentName:         ns.ParentName,
		ParentPhone:        ns.ParentPhone,
		ParentEmail:        ns.ParentEmail,
		Notes:              ns.Notes,
		WeeklyScoreHistory: []float64{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if st.Notes == nil {
		st.Notes = []string{}
	}
	if err = svc.repo.CreateStudent(ctx, st, exec); err != nil {
		return Student{}, err
	}
	return st, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// Update applies the account part, then the profile part, in one transaction.
func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	var st Student
	err := core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if st, err = svc.repo.GetStudent(ctx, id, exec); err != nil {
			return err
		}
		if !us.Account.IsEmpty() {
			if _, err = svc.accounts.UpdateAccountInTx(ctx, exec, st.UserID, us.Account); err != nil {
				return errors.Wrap(err, "updating account")
			}
		}

		pf := us.Profile
		if pf.ClassID != nil {
			if err = svc.checkClass(ctx, *pf.ClassID, exec); err != nil {
				return err
			}
			st.ClassID = null.NewString(*pf.ClassID, *pf.ClassID != "")
		}
		setInt(&st.EnrollmentYear, pf.EnrollmentYear)
		setString(&st.DateOfBirth, pf.DateOfBirth)
		setString(&st.Gender, pf.Gender)
		setString(&st.Address, pf.Address)
		setString(&st.ParentName, pf.ParentName)
		setString(&st.ParentPhone, pf.ParentPhone)
		setString(&st.ParentEmail, pf.ParentEmail)
		if pf.Notes != nil {
			st.Notes = *pf.Notes
		}
		if pf.WeeklyScoreHistory != nil {
			st.WeeklyScoreHistory = *pf.WeeklyScoreHistory
		}
		if st.Notes == nil {
			st.Notes = []string{}
		}
		if st.WeeklyScoreHistory == nil {
			st.WeeklyScoreHistory = []float64{}
		}
		st.UpdatedAt = time.Now().UTC()

		if err = svc.repo.UpdateStudent(ctx, st, exec); err != nil {
			return err
		}
		st, err = svc.repo.GetStudent(ctx, id, exec)
		return err
	})
	return st, err
}

// Delete removes the profile, then its account.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		st, err := svc.repo.GetStudent(ctx, id, exec)
		if err != nil {
			return err
		}
		if err = svc.repo.DeleteStudent(ctx, id, exec); err != nil {
			return err
		}
		return errors.Wrap(svc.accounts.DeleteInTx(ctx, exec, st.UserID), "deleting account")
	})
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
