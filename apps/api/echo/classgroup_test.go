package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/timetable"
	testutil "github.com/trezcool/lophoc/tests"
)

func Test_classApi(t *testing.T) {
	app, srv := setup(t)
	admin := testutil.CreateAdmin(t, app, "admin", "s3cret!Pass")
	token := getToken(t, app, admin)
	algebra := testutil.CreateSubject(t, app, "Algebra", subject.Mathematics)
	tchr := testutil.CreateTeacher(t, app, teacher.NewTeacher{Name: "Pham Dung", Username: "dung", SubjectIDs: []string{algebra.ID}})
	teacherToken := getToken(t, app, tchr.Account())

	var cg classgroup.ClassGroup
	t.Run("create", func(t *testing.T) {
		body := marshalObj(t, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026", TeacherID: tchr.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &cg)
		assert.Equal(t, "C2025-001", cg.ID)
	})

	st := testutil.CreateStudent(t, app, student.NewStudent{Name: "Anh", Username: "anh", ClassID: cg.ID})

	tests := []httpTest{
		{
			name:     "teacher cannot create classes",
			method:   http.MethodPost,
			path:     "/v1/classes",
			body:     marshalObj(t, classgroup.NewClassGroup{Name: "10A2", Grade: 10, AcademicYear: "2025-2026"}),
			token:    teacherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "bad academic year",
			method:   http.MethodPost,
			path:     "/v1/classes",
			body:     []byte(`{"name":"10A2","grade":10,"academic_year":"2025"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "schedule item",
			method:   http.MethodPost,
			path:     "/v1/classes/" + cg.ID + "/schedule",
			body:     marshalObj(t, timetable.NewScheduleItem{TeacherID: tchr.ID, SubjectID: algebra.ID, DayOfWeek: 1, Period: 2}),
			token:    token,
			wantCode: http.StatusCreated,
		},
		{
			name:     "teaching assignment",
			method:   http.MethodPost,
			path:     "/v1/teaching-assignments",
			body:     marshalObj(t, timetable.NewTeachingAssignment{TeacherID: tchr.ID, ClassID: cg.ID, SubjectID: algebra.ID}),
			token:    token,
			wantCode: http.StatusCreated,
		},
		{
			name:     "teacher posts homework",
			method:   http.MethodPost,
			path:     "/v1/assignments",
			body:     marshalObj(t, timetable.NewAssignment{TeacherID: tchr.ID, ClassID: cg.ID, SubjectID: algebra.ID, Title: "Exercises 1-10", DueDate: "2025-10-01"}),
			token:    teacherToken,
			wantCode: http.StatusCreated,
		},
		{
			name:     "homework for an unknown class",
			method:   http.MethodPost,
			path:     "/v1/assignments",
			body:     marshalObj(t, timetable.NewAssignment{TeacherID: tchr.ID, ClassID: "C1999-001", SubjectID: algebra.ID, Title: "Lost"}),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "schedule of unknown class",
			method:   http.MethodGet,
			path:     "/v1/classes/C1999-001/schedule",
			token:    token,
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("list schedule", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+cg.ID+"/schedule", teacherToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var items []timetable.ScheduleItem
		unmarshal(t, rec, &items)
		require.Len(t, items, 1)
		assert.Equal(t, tchr.ID, items[0].TeacherID.String)
	})

	t.Run("delete cascades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+cg.ID, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		assert.Equal(t, 0, testutil.Count(t, app, "class_groups", ""))
		assert.Equal(t, 0, testutil.Count(t, app, "schedule_items", ""))
		assert.Equal(t, 0, testutil.Count(t, app, "teaching_assignments", ""))
		assert.Equal(t, 1, testutil.Count(t, app, "assignments", ""))

		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+st.ID, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var got student.Student
		unmarshal(t, rec, &got)
		assert.False(t, got.ClassID.Valid)
	})

	t.Run("delete teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/teachers/"+tchr.ID, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		assert.Equal(t, 0, testutil.Count(t, app, "assignments", ""))
		assert.Equal(t, 0, testutil.Count(t, app, "accounts", "username = ?", "dung"))

		// the token outlives the account
		req, rec = newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", teacherToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
