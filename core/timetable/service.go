package timetable

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
)

type Service struct {
	repo Repository
	refs References
}

func NewService(repo Repository, refs References) *Service {
	return &Service{repo: repo, refs: refs}
}

// checkRefs turns missing referenced rows into field errors.
func (svc *Service) checkRefs(ctx context.Context, classID, teacherID, subjectID string) error {
	var flds []core.FieldError
	check := func(field, id string, exists func(context.Context, string, ...core.DBExecutor) (bool, error)) error {
		if id == "" {
			return nil
		}
		ok, err := exists(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "checking %s", field)
		}
		if !ok {
			flds = append(flds, core.FieldError{Field: field, Error: "does not exist"})
		}
		return nil
	}
	if err := check("class_id", classID, svc.refs.ClassGroupExists); err != nil {
		return err
	}
	if err := check("teacher_id", teacherID, svc.refs.TeacherExists); err != nil {
		return err
	}
	if err := check("subject_id", subjectID, svc.refs.SubjectExists); err != nil {
		return err
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (svc *Service) CreateScheduleItem(ctx context.Context, ns NewScheduleItem) (ScheduleItem, error) {
	if err := svc.checkRefs(ctx, ns.ClassID, ns.TeacherID, ns.SubjectID); err != nil {
		return ScheduleItem{}, err
	}
	return svc.repo.CreateScheduleItem(ctx, ScheduleItem{
		ClassID:   ns.ClassID,
		TeacherID: null.NewString(ns.TeacherID, ns.TeacherID != ""),
		SubjectID: ns.SubjectID,
		DayOfWeek: ns.DayOfWeek,
		Period:    ns.Period,
		Room:      ns.Room,
	})
}

func (svc *Service) QueryScheduleItems(ctx context.Context, filter Filter) ([]ScheduleItem, error) {
	return svc.repo.QueryScheduleItems(ctx, filter)
}

func (svc *Service) CreateTeachingAssignment(ctx context.Context, nt NewTeachingAssignment) (TeachingAssignment, error) {
	if err := svc.checkRefs(ctx, nt.ClassID, nt.TeacherID, nt.SubjectID); err != nil {
		return TeachingAssignment{}, err
	}
	return svc.repo.CreateTeachingAssignment(ctx, TeachingAssignment{
		TeacherID: nt.TeacherID,
		ClassID:   nt.ClassID,
		SubjectID: nt.SubjectID,
	})
}

func (svc *Service) QueryTeachingAssignments(ctx context.Context, filter Filter) ([]TeachingAssignment, error) {
	return svc.repo.QueryTeachingAssignments(ctx, filter)
}

func (svc *Service) CreateAssignment(ctx context.Context, na NewAssignment) (Assignment, error) {
	if err := svc.checkRefs(ctx, na.ClassID, na.TeacherID, na.SubjectID); err != nil {
		return Assignment{}, err
	}
	return svc.repo.CreateAssignment(ctx, Assignment{
		TeacherID:   na.TeacherID,
		ClassID:     na.ClassID,
		SubjectID:   na.SubjectID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) QueryAssignments(ctx context.Context, filter Filter) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, filter)
}
