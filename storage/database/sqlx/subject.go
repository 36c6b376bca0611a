package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/subject"
)

type subjectRepository struct {
	baseRepository
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(exec core.DBExecutor) *subjectRepository {
	return &subjectRepository{baseRepository{exec: exec}}
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject, exec ...core.DBExecutor) (subject.Subject, error) {
	e := repo.getExec(exec)
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	q := e.Rebind(`INSERT INTO subjects (id, name, department) VALUES (?, ?, ?)`)
	if _, err := e.ExecContext(ctx, q, sub.ID, sub.Name, sub.Department); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return subject.Subject{}, subject.ErrNameExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo subjectRepository) GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (subject.Subject, error) {
	e := repo.getExec(exec)
	var sub subject.Subject
	err := e.GetContext(ctx, &sub, e.Rebind(`SELECT id, name, department FROM subjects WHERE id = ?`), id)
	if err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "selecting subject")
	}
	return sub, nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]subject.Subject, error) {
	e := repo.getExec(exec)
	subjects := make([]subject.Subject, 0)
	if err := e.SelectContext(ctx, &subjects, `SELECT id, name, department FROM subjects ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	return subjects, nil
}
