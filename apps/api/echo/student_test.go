package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/student"
	testutil "github.com/trezcool/lophoc/tests"
)

func Test_studentApi(t *testing.T) {
	app, srv := setup(t)
	admin := testutil.CreateAdmin(t, app, "admin", "s3cret!Pass")
	token := getToken(t, app, admin)
	cg := testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026"})

	var created student.Student
	t.Run("create", func(t *testing.T) {
		body := marshalObj(t, student.NewStudent{Name: "Nguyen Anh", Username: "Anh", ClassID: cg.ID, EnrollmentYear: 2025})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		unmarshal(t, rec, &created)
		assert.Equal(t, "HS2025-001", created.ID)
		assert.Equal(t, "anh", created.Username)
		assert.Equal(t, cg.ID, created.ClassID.String)
	})

	tests := []httpTest{
		{
			name:     "duplicate username",
			method:   http.MethodPost,
			path:     "/v1/students",
			body:     marshalObj(t, student.NewStudent{Name: "Other Anh", Username: "anh"}),
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: "a user with this username already exists"}),
		},
		{
			name:     "invalid fields",
			method:   http.MethodPost,
			path:     "/v1/students",
			body:     []byte(`{"username":"x","email":"nope"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown class",
			method:   http.MethodPost,
			path:     "/v1/students",
			body:     marshalObj(t, student.NewStudent{Name: "Binh", Username: "binh", ClassID: "C1999-001"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not found",
			method:   http.MethodGet,
			path:     "/v1/students/HS1999-001",
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "student not found"}),
		},
		{
			name:     "update detaches class",
			method:   http.MethodPut,
			path:     "/v1/students/HS2025-001",
			body:     []byte(`{"name":"Nguyen Van Anh","class_id":null,"notes":["prefect"]}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("retrieve after update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+created.ID, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var st student.Student
		unmarshal(t, rec, &st)
		assert.Equal(t, "Nguyen Van Anh", st.Name)
		assert.False(t, st.ClassID.Valid)
		assert.Equal(t, []string{"prefect"}, st.Notes)
	})

	t.Run("query", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students?search=van&ordering=-name", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var list []student.Student
		unmarshal(t, rec, &list)
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/students/"+created.ID, token)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 0, testutil.Count(t, app, "accounts", "username = ?", "anh"))

		req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+created.ID, token)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_studentApi_import(t *testing.T) {
	app, srv := setup(t)
	admin := testutil.CreateAdmin(t, app, "admin", "s3cret!Pass")
	token := getToken(t, app, admin)
	testutil.CreateClass(t, app, classgroup.NewClassGroup{Name: "10A1", Grade: 10, AcademicYear: "2025-2026"})

	csv := func(lines ...string) []byte { return []byte(strings.Join(lines, "\n") + "\n") }

	tests := []struct {
		httpTest
		filename string
		content  []byte
		count    int
	}{
		{
			httpTest: httpTest{
				name:     "row errors reject the file",
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"message":"Validation Failed","errors":[{"row":3,"column":"class","error":"class \"12Z9\" does not exist"}]}`),
			},
			filename: "students.csv",
			content:  csv("name,username,class", "Anh,anh,10A1", "Binh,binh,12Z9"),
		},
		{
			httpTest: httpTest{name: "header only", wantCode: http.StatusBadRequest, wantData: []byte(`{"error":"the file has no data rows"}`)},
			filename: "students.csv",
			content:  csv("name,username"),
		},
		{
			httpTest: httpTest{name: "unsupported type", wantCode: http.StatusBadRequest, wantData: []byte(`{"file":"only .xlsx and .csv files are supported"}`)},
			filename: "students.txt",
			content:  []byte("hello"),
		},
		{
			httpTest: httpTest{name: "missing file", wantCode: http.StatusBadRequest},
		},
		{
			httpTest: httpTest{name: "success", wantCode: http.StatusCreated, wantData: []byte(`{"count":2}`)},
			filename: "students.csv",
			content:  csv("name,username,class,gender", "Anh,anh,10A1,Nữ", "Binh,binh,,nam"),
			count:    2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/v1/students/import", token, tt.filename, tt.content)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)
			if n := testutil.Count(t, app, "students", ""); n != tt.count {
				t.Errorf("failed! students = %d; want %d", n, tt.count)
			}
		})
	}
}
