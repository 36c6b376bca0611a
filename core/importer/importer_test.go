package importer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/importer"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/user"
	testutil "github.com/trezcool/lophoc/tests"
)

func readCSV(t *testing.T, lines ...string) []importer.Row {
	t.Helper()
	rows, err := importer.ReadSheet("upload.csv", strings.NewReader(strings.Join(lines, "\n")+"\n"))
	require.NoError(t, err)
	return rows
}

func validationFailed(t *testing.T, err error) *importer.ValidationFailed {
	t.Helper()
	var vf *importer.ValidationFailed
	if !errors.As(err, &vf) {
		t.Fatalf("failed! err = %v; want *ValidationFailed", err)
	}
	return vf
}

func TestImporter_ImportStudents(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026"})

	rows := readCSV(t,
		"name,username,email,class,dateOfBirth,gender,enrollmentYear",
		"Nguyen Anh,anh,anh@lophoc.test,10A1,01/02/2011,Nữ,2025",
		"Tran Binh,binh,,"+cg.ID+",2010-05-01,nam,",
		"Le Chi,chi,chi@lophoc.test,,,,2024.0",
	)
	res, err := app.Importer.ImportStudents(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)

	students, err := app.Students.Query(ctx, student.QueryFilter{ClassID: cg.ID})
	require.NoError(t, err)
	assert.Len(t, students, 2)

	chi, err := app.Students.Query(ctx, student.QueryFilter{Search: "chi"})
	require.NoError(t, err)
	require.Len(t, chi, 1)
	assert.Equal(t, 2024, chi[0].EnrollmentYear)
	assert.False(t, chi[0].ClassID.Valid)

	anh, err := app.Students.Query(ctx, student.QueryFilter{Search: "anh"})
	require.NoError(t, err)
	require.Len(t, anh, 1)
	assert.Equal(t, "2011-02-01", anh[0].DateOfBirth)
	assert.Equal(t, "female", anh[0].Gender)

	// default import password
	_, err = app.Users.Authenticate(ctx, "binh", app.Conf.Defaults.ImportStudentPassword, user.RoleStudent)
	assert.NoError(t, err)

	// only the rows with an e-mail are notified
	assert.Len(t, app.MailMock.SentMessages(), 2)
}

func TestImporter_AllOrNothing(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	testutil.CreateStudent(t, app, student.NewStudent{Name: "Existing", Username: "taken"})
	accountsBefore := testutil.Count(t, app, "accounts", "")

	tests := []struct {
		name    string
		lines   []string
		wantErr []importer.RowError
	}{
		{
			name: "invalid email on row 3",
			lines: []string{
				"name,username,email",
				"One,one,one@lophoc.test",
				"Two,two,not-an-email",
				"Three,three,",
				"Four,four,",
				"Five,five,",
			},
			wantErr: []importer.RowError{{Row: 3, Column: "email"}},
		},
		{
			name: "unknown class",
			lines: []string{
				"name,username,class",
				"One,one,",
				"Two,two,12Z9",
			},
			wantErr: []importer.RowError{{Row: 3, Column: "class"}},
		},
		{
			name: "username already in database",
			lines: []string{
				"name,username",
				"One,one",
				"Taken,taken",
			},
			wantErr: []importer.RowError{{Row: 3, Column: "username"}},
		},
		{
			name: "duplicate within the file is reported on the later row",
			lines: []string{
				"name,username,email",
				"One,one,dup@lophoc.test",
				"Again,One,",
				"Other,other,DUP@lophoc.test",
			},
			wantErr: []importer.RowError{{Row: 3, Column: "username"}, {Row: 4, Column: "email"}},
		},
		{
			name: "bad year and missing name",
			lines: []string{
				"name,username,enrollmentYear",
				"One,one,soon",
				",nameless,",
			},
			wantErr: []importer.RowError{{Row: 2, Column: "enrollmentYear"}, {Row: 3, Column: "name"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Importer.ImportStudents(ctx, readCSV(t, tt.lines...))
			vf := validationFailed(t, err)
			if len(vf.Errors) != len(tt.wantErr) {
				t.Fatalf("failed! errors = %+v; want %+v", vf.Errors, tt.wantErr)
			}
			for i, want := range tt.wantErr {
				got := vf.Errors[i]
				if got.Row != want.Row || got.Column != want.Column || got.Error == "" {
					t.Errorf("failed! errors[%d] = %+v; want row %d column %q", i, got, want.Row, want.Column)
				}
			}
			if n := testutil.Count(t, app, "accounts", ""); n != accountsBefore {
				t.Errorf("failed! accounts = %d; want %d", n, accountsBefore)
			}
		})
	}
}

func TestImporter_ImportTeachers(t *testing.T) {
	app := testutil.NewApp(t)
	ctx := context.Background()
	algebra := testutil.CreateSubject(t, app, "Algebra", subject.Mathematics)
	testutil.CreateSubject(t, app, "Painting", subject.Arts)

	t.Run("unknown subject rejects the file", func(t *testing.T) {
		rows := readCSV(t,
			"name,username,subjects,joinYear",
			"Pham Dung,dung,Algebra,2020",
			`Vo Em,em,"Painting, Chemistry",2021`,
		)
		_, err := app.Importer.ImportTeachers(ctx, rows)
		vf := validationFailed(t, err)
		require.Len(t, vf.Errors, 1)
		assert.Equal(t, 3, vf.Errors[0].Row)
		assert.Equal(t, "subjects", vf.Errors[0].Column)
		assert.Contains(t, vf.Errors[0].Error, "Chemistry")
		assert.Equal(t, 0, testutil.Count(t, app, "teachers", ""))
	})

	t.Run("success", func(t *testing.T) {
		rows := readCSV(t,
			"name,username,subjects,joinYear,password",
			`Pham Dung,dung,"Painting, `+algebra.ID+`",2020,`,
			"Vo Em,em,,2021,s3cret!pw",
		)
		res, err := app.Importer.ImportTeachers(ctx, rows)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count)

		teachers, err := app.Teachers.Query(ctx, teacher.QueryFilter{Search: "dung"})
		require.NoError(t, err)
		require.Len(t, teachers, 1)
		assert.Equal(t, subject.Arts, teachers[0].Department)
		assert.Len(t, teachers[0].SubjectIDs, 2)
		assert.Contains(t, teachers[0].SubjectIDs, algebra.ID)

		_, err = app.Users.Authenticate(ctx, "dung", app.Conf.Defaults.ImportTeacherPassword, user.RoleTeacher)
		assert.NoError(t, err)
		_, err = app.Users.Authenticate(ctx, "em", "s3cret!pw", user.RoleTeacher)
		assert.NoError(t, err)
	})
}

func TestImporter_Empty(t *testing.T) {
	app := testutil.NewApp(t)
	if _, err := app.Importer.ImportStudents(context.Background(), nil); err != importer.ErrEmptyFile {
		t.Errorf("failed! err = %v; want ErrEmptyFile", err)
	}
	if _, err := app.Importer.ImportTeachers(context.Background(), nil); err != importer.ErrEmptyFile {
		t.Errorf("failed! err = %v; want ErrEmptyFile", err)
	}
}
