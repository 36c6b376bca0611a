package student_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/user"
	testutil "github.com/trezcool/lophoc/tests"
)

func TestService_Create(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026"})

	st := testutil.CreateStudent(t, app, student.NewStudent{Name: "Anh", Username: "anh", EnrollmentYear: 2025, ClassID: cg.ID})
	assert.Equal(t, "HS2025-001", st.ID)
	assert.Equal(t, cg.ID, st.ClassID.String)
	assert.Equal(t, []string{}, st.Notes)
	assert.Equal(t, []float64{}, st.WeeklyScoreHistory)

	st2 := testutil.CreateStudent(t, app, student.NewStudent{Name: "Binh", Username: "binh", EnrollmentYear: 2025})
	assert.Equal(t, "HS2025-002", st2.ID)
	assert.False(t, st2.ClassID.Valid)

	st3 := testutil.CreateStudent(t, app, student.NewStudent{Name: "Chi", Username: "chi"})
	assert.Equal(t, time.Now().UTC().Year(), st3.EnrollmentYear)

	usr, err := app.Users.GetByID(ctx, st.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.True(t, app.Codec.Verify(app.Conf.Defaults.StudentPassword, usr.PasswordHash))
	pwd, err := app.Codec.Decrypt(usr.PasswordEncrypted)
	require.NoError(t, err)
	assert.Equal(t, app.Conf.Defaults.StudentPassword, pwd)

	tests := []struct {
		name    string
		ns      student.NewStudent
		wantErr error
	}{
		{name: "duplicate username", ns: student.NewStudent{Name: "Anh 2", Username: "Anh"}, wantErr: user.ErrUsernameExists},
		{name: "duplicate student id", ns: student.NewStudent{Name: "Dung", Username: "dung", StudentID: "HS2025-001"}},
		{name: "unknown class", ns: student.NewStudent{Name: "Em", Username: "em_1", ClassID: "C1999-001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Students.Create(ctx, tt.ns)
			require.Error(t, err)
			if tt.wantErr != nil && errors.Cause(err) != tt.wantErr {
				t.Errorf("failed! err = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}

	// nothing half-created by the failures
	assert.Equal(t, 3, testutil.Count(t, app, "students", ""))
	assert.Equal(t, 3, testutil.Count(t, app, "accounts", ""))
}

func TestService_Update(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026"})
	st := testutil.CreateStudent(t, app, student.NewStudent{
		Name: "Anh", Username: "anh", Email: "anh@lophoc.test", ClassID: cg.ID, Notes: []string{"asthma"},
	})

	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, got student.Student)
	}{
		{
			name: "account and profile together",
			body: `{"name": "Anh Tran", "parent_name": "Mrs Tran", "weekly_score_history": [7.5, 8]}`,
			check: func(t *testing.T, got student.Student) {
				assert.Equal(t, "Anh Tran", got.Name)
				assert.Equal(t, "Mrs Tran", got.ParentName)
				assert.Equal(t, []float64{7.5, 8}, got.WeeklyScoreHistory)
				assert.Equal(t, []string{"asthma"}, got.Notes)
				assert.Equal(t, cg.ID, got.ClassID.String)
			},
		},
		{
			name: "null class and notes",
			body: `{"class_id": null, "notes": null}`,
			check: func(t *testing.T, got student.Student) {
				assert.False(t, got.ClassID.Valid)
				assert.Equal(t, []string{}, got.Notes)
				assert.Equal(t, []float64{7.5, 8}, got.WeeklyScoreHistory)
			},
		},
		{
			name: "empty class detaches",
			body: `{"class_id": ""}`,
			check: func(t *testing.T, got student.Student) {
				assert.False(t, got.ClassID.Valid)
			},
		},
		{
			name: "clear email; id and role ignored",
			body: `{"email": "", "id": "HS1900-001", "role": "ADMIN", "class_id": "` + cg.ID + `"}`,
			check: func(t *testing.T, got student.Student) {
				assert.Equal(t, "", got.Email)
				assert.Equal(t, st.ID, got.ID)
				assert.Equal(t, cg.ID, got.ClassID.String)
				assert.Equal(t, user.RoleStudent, got.Account().Role)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var us student.UpdateStudent
			require.NoError(t, json.Unmarshal([]byte(tt.body), &us))
			require.NoError(t, us.Validate(app.Validate))
			got, err := app.Students.Update(ctx, st.ID, us)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}

	usr, err := app.Users.GetByID(ctx, st.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, usr.Role)

	t.Run("unknown class rolls the account change back", func(t *testing.T) {
		var us student.UpdateStudent
		require.NoError(t, json.Unmarshal([]byte(`{"name": "Changed", "class_id": "C1999-001"}`), &us))
		_, err := app.Students.Update(ctx, st.ID, us)
		require.Error(t, err)

		got, err := app.Students.Get(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, "Anh Tran", got.Name)
	})

	_, err = app.Students.Update(ctx, "HS1900-001", student.UpdateStudent{Account: user.AccountPatch{Name: core.StringPtr("x")}})
	assert.True(t, core.IsNotFound(err))
}

func TestService_Delete(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, app, student.NewStudent{Name: "Anh", Username: "anh"})

	require.NoError(t, app.Students.Delete(ctx, st.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "students", "id = ?", st.ID))
	assert.Equal(t, 0, testutil.Count(t, app, "accounts", "id = ?", st.UserID))

	err := app.Students.Delete(ctx, st.ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_Query(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026"})
	anh := testutil.CreateStudent(t, app, student.NewStudent{Name: "Anh", Username: "anh", EnrollmentYear: 2024, ClassID: cg.ID})
	binh := testutil.CreateStudent(t, app, student.NewStudent{Name: "Binh", Username: "binh", EnrollmentYear: 2025})
	chau := testutil.CreateStudent(t, app, student.NewStudent{Name: "Chau", Username: "chau", EnrollmentYear: 2025, ClassID: cg.ID})

	ids := func(sts []student.Student) []string {
		out := make([]string, 0, len(sts))
		for _, st := range sts {
			out = append(out, st.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   student.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", want: []string{anh.ID, binh.ID, chau.ID}},
		{name: "search", filter: student.QueryFilter{Search: "BIN"}, want: []string{binh.ID}},
		{name: "class", filter: student.QueryFilter{ClassID: cg.ID}, want: []string{anh.ID, chau.ID}},
		{name: "year", filter: student.QueryFilter{EnrollmentYear: 2025}, want: []string{binh.ID, chau.ID}},
		{name: "name desc", ordering: []core.DBOrdering{{Field: "name"}}, want: []string{chau.ID, binh.ID, anh.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.Students.Query(ctx, tt.filter, tt.ordering...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}
