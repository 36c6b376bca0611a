// Package subject holds taught subjects and the closed list of departments they belong to.
package subject

import (
	"context"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lophoc/core"
)

type Department string

const (
	Mathematics       Department = "Mathematics"
	Literature        Department = "Literature"
	ForeignLanguages  Department = "Foreign Languages"
	NaturalSciences   Department = "Natural Sciences"
	SocialSciences    Department = "Social Sciences"
	PhysicalEducation Department = "Physical Education"
	Arts              Department = "Arts"
	Informatics       Department = "Informatics"
)

var (
	Departments = []Department{
		Mathematics, Literature, ForeignLanguages, NaturalSciences,
		SocialSciences, PhysicalEducation, Arts, Informatics,
	}

	ErrNotFound   = core.NewNotFoundError("subject")
	ErrNameExists = core.NewDuplicateError("subject", "name")

	departmentTag  = "department"
	departmentText = "unknown department"
)

// ParseDepartment matches a department name case-insensitively.
func ParseDepartment(s string) (Department, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Departments {
		if strings.EqualFold(string(d), s) {
			return d, true
		}
	}
	return "", false
}

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(departmentTag, func(fl validator.FieldLevel) bool {
		d, ok := ParseDepartment(fl.Field().String())
		return ok && string(d) == fl.Field().String()
	})
	core.RegisterCustomTranslation(validate, translator, departmentTag, departmentText)
}

type Subject struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Department Department `json:"department" db:"department"`
}

type NewSubject struct {
	Name       string `json:"name" validate:"required,max=100"`
	Department string `json:"department" validate:"required,department"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	if d, ok := ParseDepartment(ns.Department); ok {
		ns.Department = string(d)
	}
	return validate.Struct(ns)
}

type (
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]Subject, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, Department: Department(ns.Department)})
}

func (svc *Service) Get(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

// Resolve looks references up by id or name and keeps their order.
// Unmatched references are returned in missing.
func (svc *Service) Resolve(ctx context.Context, refs []string, exec ...core.DBExecutor) (found []Subject, missing []string, err error) {
	if len(refs) == 0 {
		return nil, nil, nil
	}
	all, err := svc.repo.QuerySubjects(ctx, exec...)
	if err != nil {
		return nil, nil, err
	}
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		var match *Subject
		for i := range all {
			if all[i].ID == ref || strings.EqualFold(all[i].Name, ref) {
				match = &all[i]
				break
			}
		}
		if match == nil {
			missing = append(missing, ref)
			continue
		}
		found = append(found, *match)
	}
	return found, missing, nil
}
