package classgroup_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/sequence"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/timetable"
	sqlxrepos "github.com/trezcool/lophoc/storage/database/sqlx"
	testutil "github.com/trezcool/lophoc/tests"
)

func TestService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	tchr := testutil.CreateTeacher(t, app, teacher.NewTeacher{Name: "Thu", Username: "thu"})

	tests := []struct {
		name    string
		nc      classgroup.NewClassGroup
		wantID  string
		wantErr bool
	}{
		{name: "first of 2025", nc: classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026"}, wantID: "C2025-001"},
		{name: "second of 2025", nc: classgroup.NewClassGroup{Name: "10A2", Grade: 10, AcademicYear: "2025-2026", TeacherID: tchr.ID}, wantID: "C2025-002"},
		{name: "first of 2026", nc: classgroup.NewClassGroup{Name: "11A1", Grade: 11, AcademicYear: "2026-2027"}, wantID: "C2026-001"},
		{name: "unknown homeroom teacher", nc: classgroup.NewClassGroup{Name: "12A1", Grade: 12, AcademicYear: "2025-2026", TeacherID: "GV1999-001"}, wantErr: true},
		{name: "bad academic year", nc: classgroup.NewClassGroup{Name: "12A2", Grade: 12, AcademicYear: "next year"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cg, err := app.Classes.Create(ctx, tt.nc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("failed! err = %v; wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if cg.ID != tt.wantID {
				t.Errorf("failed! id = %v; want %v", cg.ID, tt.wantID)
			}
			if tt.nc.TeacherID != "" && cg.TeacherID.String != tt.nc.TeacherID {
				t.Errorf("failed! teacher_id = %v; want %v", cg.TeacherID.String, tt.nc.TeacherID)
			}
		})
	}

	// a failed create does not burn a class number
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A3", Grade: 10, AcademicYear: "2025-2026"})
	assert.Equal(t, "C2025-003", cg.ID)
}

func TestService_Update(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	tchr := testutil.CreateTeacher(t, app, teacher.NewTeacher{Name: "Thu", Username: "thu"})
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026", TeacherID: tchr.ID})

	var uc classgroup.UpdateClassGroup
	require.NoError(t, uc.UnmarshalJSON([]byte(`{"name": "10B1", "teacher_id": null}`)))
	updated, err := app.Classes.Update(ctx, cg.ID, uc)
	require.NoError(t, err)
	assert.Equal(t, cg.ID, updated.ID)
	assert.Equal(t, "10B1", updated.Name)
	assert.Equal(t, "2025-2026", updated.AcademicYear)
	assert.False(t, updated.TeacherID.Valid)

	_, err = app.Classes.Update(ctx, cg.ID, classgroup.UpdateClassGroup{TeacherID: core.StringPtr("nobody")})
	assert.Error(t, err)

	_, err = app.Classes.Update(ctx, "C1999-001", classgroup.UpdateClassGroup{Name: core.StringPtr("x")})
	assert.True(t, core.IsNotFound(err))
}

type classFixture struct {
	class    classgroup.ClassGroup
	other    classgroup.ClassGroup
	teacher  teacher.Teacher
	subject  subject.Subject
	students []student.Student
}

func seedClass(t *testing.T, app *testutil.App) classFixture {
	ctx := context.Background()
	var fx classFixture
	fx.subject = testutil.CreateSubject(t, app, "Algebra", subject.Mathematics)
	fx.teacher = testutil.CreateTeacher(t, app, teacher.NewTeacher{Name: "Thu", Username: "thu", SubjectIDs: []string{fx.subject.ID}})
	fx.class = testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026", TeacherID: fx.teacher.ID})
	fx.other = testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A2", Grade: 10, AcademicYear: "2025-2026"})

	for _, uname := range []string{"anh", "binh", "chi"} {
		fx.students = append(fx.students, testutil.CreateStudent(t, app, student.NewStudent{Name: uname, Username: uname, ClassID: fx.class.ID}))
	}
	testutil.CreateStudent(t, app, student.NewStudent{Name: "Dung", Username: "dung", ClassID: fx.other.ID})

	for _, classID := range []string{fx.class.ID, fx.class.ID, fx.other.ID} {
		_, err := app.Timetable.CreateScheduleItem(ctx, timetable.NewScheduleItem{
			ClassID: classID, TeacherID: fx.teacher.ID, SubjectID: fx.subject.ID, DayOfWeek: 1, Period: 1,
		})
		require.NoError(t, err)
		_, err = app.Timetable.CreateTeachingAssignment(ctx, timetable.NewTeachingAssignment{
			TeacherID: fx.teacher.ID, ClassID: classID, SubjectID: fx.subject.ID,
		})
		require.NoError(t, err)
	}
	_, err := app.Timetable.CreateAssignment(ctx, timetable.NewAssignment{
		TeacherID: fx.teacher.ID, ClassID: fx.class.ID, SubjectID: fx.subject.ID, Title: "Homework 1",
	})
	require.NoError(t, err)
	return fx
}

func TestService_Delete(t *testing.T) {
	app := testutil.NewApp(t)
	fx := seedClass(t, app)

	require.NoError(t, app.Classes.Delete(context.Background(), fx.class.ID))

	assert.Equal(t, 0, testutil.Count(t, app, "class_groups", "id = ?", fx.class.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "schedule_items", "class_id = ?", fx.class.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "teaching_assignments", "class_id = ?", fx.class.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "students", "class_id = ?", fx.class.ID))
	for _, st := range fx.students {
		got, err := app.Students.Get(context.Background(), st.ID)
		require.NoError(t, err)
		assert.False(t, got.ClassID.Valid, st.ID)
	}

	// other class untouched; authored homework outlives the class
	assert.Equal(t, 1, testutil.Count(t, app, "schedule_items", "class_id = ?", fx.other.ID))
	assert.Equal(t, 1, testutil.Count(t, app, "teaching_assignments", "class_id = ?", fx.other.ID))
	assert.Equal(t, 1, testutil.Count(t, app, "students", "class_id = ?", fx.other.ID))
	assert.Equal(t, 1, testutil.Count(t, app, "assignments", "class_id = ?", fx.class.ID))

	err := app.Classes.Delete(context.Background(), fx.class.ID)
	assert.True(t, core.IsNotFound(err))
}

// failingCascade detaches nothing from the timetable and fails instead.
type failingCascade struct {
	timetable.Repository
}

var errCascade = errors.New("cascade failed")

func (failingCascade) DeleteTeachingAssignmentsByClass(context.Context, string, ...core.DBExecutor) (int64, error) {
	return 0, errCascade
}

func TestService_DeleteRollsBack(t *testing.T) {
	app := testutil.NewApp(t)
	fx := seedClass(t, app)

	svc := classgroup.NewService(
		app.DB,
		sqlxrepos.NewClassGroupRepository(app.DB),
		sequence.NewGenerator(sqlxrepos.NewCounterRepository(app.DB)),
		sqlxrepos.NewStudentRepository(app.DB),
		failingCascade{sqlxrepos.NewTimetableRepository(app.DB)},
		sqlxrepos.NewReferenceRepository(app.DB),
	)

	err := svc.Delete(context.Background(), fx.class.ID)
	require.Error(t, err)
	assert.Equal(t, errCascade, errors.Cause(err))

	// nothing of the first steps survived the rollback
	assert.Equal(t, 1, testutil.Count(t, app, "class_groups", "id = ?", fx.class.ID))
	assert.Equal(t, len(fx.students), testutil.Count(t, app, "students", "class_id = ?", fx.class.ID))
	assert.Equal(t, 2, testutil.Count(t, app, "schedule_items", "class_id = ?", fx.class.ID))
	assert.Equal(t, 2, testutil.Count(t, app, "teaching_assignments", "class_id = ?", fx.class.ID))
}
