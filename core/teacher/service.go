package teacher

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/sequence"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/user"
)

type Service struct {
	db        core.DB
	repo      Repository
	accounts  Accounts
	seq       *sequence.Generator
	subjects  SubjectResolver
	homerooms HomeroomLinks
	timetable TimetableCascade
	conf      *core.Config
}

func NewService(
	db core.DB,
	repo Repository,
	accounts Accounts,
	seq *sequence.Generator,
	subjects SubjectResolver,
	homerooms HomeroomLinks,
	timetable TimetableCascade,
	conf *core.Config,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		accounts:  accounts,
		seq:       seq,
		subjects:  subjects,
		homerooms: homerooms,
		timetable: timetable,
		conf:      conf,
	}
}

// resolveSubjects maps subject ids or names to subject ids. Unknown ones are a validation error.
func (svc *Service) resolveSubjects(ctx context.Context, refs []string, exec core.DBExecutor) ([]subject.Subject, error) {
	found, missing, err := svc.subjects.Resolve(ctx, refs, exec)
	if err != nil {
		return nil, errors.Wrap(err, "resolving subjects")
	}
	if len(missing) > 0 {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "subject_ids",
			Error: "unknown subjects: " + strings.Join(missing, ", "),
		})
	}
	return found, nil
}

func subjectIDs(subjects []subject.Subject) []string {
	ids := make([]string, 0, len(subjects))
	for _, s := range subjects {
		ids = append(ids, s.ID)
	}
	return ids
}

func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	pwd := nt.Password
	if pwd == "" {
		pwd = svc.conf.Defaults.TeacherPassword
	}
	creds, err := svc.accounts.Seal(pwd)
	if err != nil {
		return Teacher{}, err
	}

	var t Teacher
	err = core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		t, err = svc.CreateInTx(ctx, exec, nt, creds)
		return err
	})
	if err != nil {
		return Teacher{}, err
	}
	svc.accounts.NotifyCreated(t.Account())
	return t, nil
}

// CreateInTx inserts the account, draws the teacher id and inserts the profile inside the caller's transaction.
// Without an explicit department the teacher joins the department of their first subject.
func (svc *Service) CreateInTx(ctx context.Context, exec core.DBExecutor, nt NewTeacher, creds credential.Credentials) (Teacher, error) {
	nt.Clean()
	subjects, err := svc.resolveSubjects(ctx, nt.SubjectIDs, exec)
	if err != nil {
		return Teacher{}, err
	}
	if nt.Department == "" && len(subjects) > 0 {
		nt.Department = string(subjects[0].Department)
	}

	now := time.Now().UTC()
	if nt.JoinYear == 0 {
		nt.JoinYear = now.Year()
	}

	usr, err := svc.accounts.CreateInTx(ctx, exec, user.NewAccount{
		Name:        nt.Name,
		Username:    nt.Username,
		Email:       nt.Email,
		Role:        user.RoleTeacher,
		Credentials: creds,
	})
	if err != nil {
		return Teacher{}, err
	}

	id := nt.TeacherID
	if id == "" {
		if id, err = svc.seq.TeacherID(ctx, nt.JoinYear, exec); err != nil {
			return Teacher{}, err
		}
	}

	t := Teacher{
		ID:            id,
		UserID:        usr.ID,
		Name:          usr.Name,
		Username:      usr.Username,
		Email:         usr.Email,
		IsActive:      usr.IsActive,
		JoinYear:      nt.JoinYear,
		Phone:         nt.Phone,
		Department:    subject.Department(nt.Department),
		Qualification: nt.Qualification,
		SubjectIDs:    subjectIDs(subjects),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = svc.repo.CreateTeacher(ctx, t, exec); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Teacher, error) {
	filter.Clean()
	return svc.repo.QueryTeachers(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, upd UpdateTeacher) (Teacher, error) {
	var t Teacher
	err := core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if t, err = svc.repo.GetTeacher(ctx, id, exec); err != nil {
			return err
		}
		if !upd.Account.IsEmpty() {
			if _, err = svc.accounts.UpdateAccountInTx(ctx, exec, t.UserID, upd.Account); err != nil {
				return errors.Wrap(err, "updating account")
			}
		}

		pf := upd.Profile
		if pf.JoinYear != nil {
			t.JoinYear = *pf.JoinYear
		}
		if pf.Phone != nil {
			t.Phone = *pf.Phone
		}
		if pf.Department != nil {
			t.Department = subject.Department(*pf.Department)
		}
		if pf.Qualification != nil {
			t.Qualification = *pf.Qualification
		}
		if pf.SubjectIDs != nil {
			subjects, err := svc.resolveSubjects(ctx, *pf.SubjectIDs, exec)
			if err != nil {
				return err
			}
			t.SubjectIDs = subjectIDs(subjects)
		}
		t.UpdatedAt = time.Now().UTC()

		if err = svc.repo.UpdateTeacher(ctx, t, exec); err != nil {
			return err
		}
		t, err = svc.repo.GetTeacher(ctx, id, exec)
		return err
	})
	return t, err
}

// Delete detaches the teacher from the classes they lead and from schedule items,
// deletes their teaching assignments and the assignments they authored,
// then deletes the profile and finally the account. All of it or nothing.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		t, err := svc.repo.GetTeacher(ctx, id, exec)
		if err != nil {
			return err
		}
		if _, err = svc.homerooms.ClearHomeroomTeacher(ctx, id, exec); err != nil {
			return errors.Wrap(err, "detaching homeroom classes")
		}
		if _, err = svc.timetable.ClearScheduleTeacher(ctx, id, exec); err != nil {
			return errors.Wrap(err, "detaching schedule items")
		}
		if _, err = svc.timetable.DeleteTeachingAssignmentsByTeacher(ctx, id, exec); err != nil {
			return errors.Wrap(err, "deleting teaching assignments")
		}
		if _, err = svc.timetable.DeleteAssignmentsByTeacher(ctx, id, exec); err != nil {
			return errors.Wrap(err, "deleting authored assignments")
		}
		if err = svc.repo.DeleteTeacher(ctx, id, exec); err != nil {
			return err
		}
		return errors.Wrap(svc.accounts.DeleteInTx(ctx, exec, t.UserID), "deleting account")
	})
}
