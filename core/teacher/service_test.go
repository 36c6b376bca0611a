package teacher_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/timetable"
	"github.com/trezcool/lophoc/core/user"
	testutil "github.com/trezcool/lophoc/tests"
)

func TestService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	physics := testutil.CreateSubject(t, app, "Physics", subject.NaturalSciences)
	algebra := testutil.CreateSubject(t, app, "Algebra", subject.Mathematics)

	tests := []struct {
		name     string
		nt       teacher.NewTeacher
		wantID   string
		wantDept subject.Department
		wantSubj []string
		wantErr  bool
	}{
		{
			name:     "department from first subject",
			nt:       teacher.NewTeacher{Name: "Thu", Username: "thu", JoinYear: 2024, SubjectIDs: []string{"physics", algebra.ID}},
			wantID:   "GV2024-001",
			wantDept: subject.NaturalSciences,
			wantSubj: []string{physics.ID, algebra.ID},
		},
		{
			name:     "explicit department wins",
			nt:       teacher.NewTeacher{Name: "Lan", Username: "lan", JoinYear: 2024, Department: "arts", SubjectIDs: []string{"Algebra"}},
			wantID:   "GV2024-002",
			wantDept: subject.Arts,
			wantSubj: []string{algebra.ID},
		},
		{
			name:     "provided id kept",
			nt:       teacher.NewTeacher{Name: "Hai", Username: "hai", TeacherID: "GV2010-042"},
			wantID:   "GV2010-042",
			wantSubj: []string{},
		},
		{name: "unknown subject", nt: teacher.NewTeacher{Name: "Mai", Username: "mai", SubjectIDs: []string{"Alchemy"}}, wantErr: true},
		{name: "duplicate username", nt: teacher.NewTeacher{Name: "Thu 2", Username: "THU"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tchr, err := app.Teachers.Create(ctx, tt.nt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("failed! err = %v; wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			assert.Equal(t, tt.wantID, tchr.ID)
			assert.Equal(t, tt.wantDept, tchr.Department)

			got, err := app.Teachers.Get(ctx, tchr.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubj, got.SubjectIDs)
			assert.Equal(t, user.RoleTeacher, got.Account().Role)

			_, err = app.Users.Authenticate(ctx, tt.nt.Username, app.Conf.Defaults.TeacherPassword, user.RoleTeacher)
			assert.NoError(t, err)
		})
	}

	// failed creates leave neither an account nor a profile behind
	assert.Equal(t, 3, testutil.Count(t, app, "teachers", ""))
	assert.Equal(t, 3, testutil.Count(t, app, "accounts", ""))
	assert.Equal(t, 0, testutil.Count(t, app, "accounts", "username = ?", "mai"))
}

func TestService_Update(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	algebra := testutil.CreateSubject(t, app, "Algebra", subject.Mathematics)
	tchr := testutil.CreateTeacher(t, app, teacher.NewTeacher{Name: "Thu", Username: "thu", Email: "thu@lophoc.test", SubjectIDs: []string{algebra.ID}})

	var upd teacher.UpdateTeacher
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Thu Nguyen", "phone": "0901", "subject_ids": null, "id": "GV1900-001"}`), &upd))
	require.NoError(t, upd.Validate(app.Validate))

	got, err := app.Teachers.Update(ctx, tchr.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, tchr.ID, got.ID)
	assert.Equal(t, "Thu Nguyen", got.Name)
	assert.Equal(t, "thu@lophoc.test", got.Email)
	assert.Equal(t, "0901", got.Phone)
	assert.Equal(t, []string{}, got.SubjectIDs)

	_, err = app.Teachers.Update(ctx, tchr.ID, teacher.UpdateTeacher{Profile: teacher.ProfileFields{SubjectIDs: &[]string{"Alchemy"}}})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestService_Delete(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	algebra := testutil.CreateSubject(t, app, "Algebra", subject.Mathematics)
	tchr := testutil.CreateTeacher(t, app, teacher.NewTeacher{Name: "Thu", Username: "thu", SubjectIDs: []string{algebra.ID}})
	other := testutil.CreateTeacher(t, app, teacher.NewTeacher{Name: "Lan", Username: "lan"})
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026", TeacherID: tchr.ID})

	for _, teacherID := range []string{tchr.ID, other.ID} {
		_, err := app.Timetable.CreateScheduleItem(ctx, timetable.NewScheduleItem{ClassID: cg.ID, TeacherID: teacherID, SubjectID: algebra.ID, DayOfWeek: 2, Period: 3})
		require.NoError(t, err)
		_, err = app.Timetable.CreateTeachingAssignment(ctx, timetable.NewTeachingAssignment{TeacherID: teacherID, ClassID: cg.ID, SubjectID: algebra.ID})
		require.NoError(t, err)
		_, err = app.Timetable.CreateAssignment(ctx, timetable.NewAssignment{TeacherID: teacherID, ClassID: cg.ID, SubjectID: algebra.ID, Title: "Exercises"})
		require.NoError(t, err)
	}

	require.NoError(t, app.Teachers.Delete(ctx, tchr.ID))

	got, err := app.Classes.Get(ctx, cg.ID)
	require.NoError(t, err)
	assert.False(t, got.TeacherID.Valid)

	assert.Equal(t, 2, testutil.Count(t, app, "schedule_items", "class_id = ?", cg.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "schedule_items", "teacher_id = ?", tchr.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "teaching_assignments", "teacher_id = ?", tchr.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "assignments", "teacher_id = ?", tchr.ID))
	assert.Equal(t, 1, testutil.Count(t, app, "assignments", "teacher_id = ?", other.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "teachers", "id = ?", tchr.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "accounts", "id = ?", tchr.UserID))

	_, err = app.Teachers.Get(ctx, tchr.ID)
	assert.Equal(t, teacher.ErrNotFound, errors.Cause(err))
}
