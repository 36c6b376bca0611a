package classgroup

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/sequence"
)

var errHomeroomNotFound = core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "teacher does not exist"})

type Service struct {
	db        core.DB
	repo      Repository
	seq       *sequence.Generator
	students  StudentLinks
	timetable TimetableCascade
	teachers  TeacherChecker
}

func NewService(
	db core.DB,
	repo Repository,
	seq *sequence.Generator,
	students StudentLinks,
	timetable TimetableCascade,
	teachers TeacherChecker,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		seq:       seq,
		students:  students,
		timetable: timetable,
		teachers:  teachers,
	}
}

func (svc *Service) checkHomeroom(ctx context.Context, teacherID string, exec core.DBExecutor) error {
	if teacherID == "" {
		return nil
	}
	ok, err := svc.teachers.TeacherExists(ctx, teacherID, exec)
	if err != nil {
		return errors.Wrap(err, "checking homeroom teacher")
	}
	if !ok {
		return errHomeroomNotFound
	}
	return nil
}

// Create numbers the class from its academic start year (C2025-001) in the same transaction as the insert.
func (svc *Service) Create(ctx context.Context, nc NewClassGroup) (ClassGroup, error) {
	var cg ClassGroup
	err := core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		if err := svc.checkHomeroom(ctx, nc.TeacherID, exec); err != nil {
			return err
		}
		id, err := svc.seq.ClassID(ctx, nc.AcademicYear, exec)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		cg, err = svc.repo.CreateClassGroup(ctx, ClassGroup{
			ID:           id,
			Name:         nc.Name,
			Grade:        nc.Grade,
			AcademicYear: nc.AcademicYear,
			TeacherID:    null.NewString(nc.TeacherID, nc.TeacherID != ""),
			Room:         nc.Room,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, exec)
		return err
	})
	return cg, err
}

func (svc *Service) Get(ctx context.Context, id string) (ClassGroup, error) {
	return svc.repo.GetClassGroup(ctx, id)
}

// Find resolves an id or a class name.
func (svc *Service) Find(ctx context.Context, ref string, exec ...core.DBExecutor) (ClassGroup, error) {
	return svc.repo.FindClassGroup(ctx, core.CleanString(ref), exec...)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]ClassGroup, error) {
	filter.Clean()
	return svc.repo.QueryClassGroups(ctx, filter, ordering)
}

// Update never changes the id nor the academic year it was generated from.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateClassGroup) (ClassGroup, error) {
	var cg ClassGroup
	err := core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		var err error
		if cg, err = svc.repo.GetClassGroup(ctx, id, exec); err != nil {
			return err
		}
		if uc.Name != nil {
			cg.Name = *uc.Name
		}
		if uc.Grade != nil {
			cg.Grade = *uc.Grade
		}
		if uc.Room != nil {
			cg.Room = *uc.Room
		}
		if uc.TeacherID != nil {
			if err = svc.checkHomeroom(ctx, *uc.TeacherID, exec); err != nil {
				return err
			}
			cg.TeacherID = null.NewString(*uc.TeacherID, *uc.TeacherID != "")
		}
		cg.UpdatedAt = time.Now().UTC()
		cg, err = svc.repo.UpdateClassGroup(ctx, cg, exec)
		return err
	})
	return cg, err
}

// Delete detaches students, then removes schedule items and teaching assignments, then the class.
// Any failure rolls the whole cascade back.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetClassGroup(ctx, id, exec); err != nil {
			return err
		}
		if _, err := svc.students.ClearClass(ctx, id, exec); err != nil {
			return errors.Wrap(err, "detaching students")
		}
		if _, err := svc.timetable.DeleteScheduleItemsByClass(ctx, id, exec); err != nil {
			return errors.Wrap(err, "deleting schedule items")
		}
		if _, err := svc.timetable.DeleteTeachingAssignmentsByClass(ctx, id, exec); err != nil {
			return errors.Wrap(err, "deleting teaching assignments")
		}
		return svc.repo.DeleteClassGroup(ctx, id, exec)
	})
}
