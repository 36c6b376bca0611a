package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/user"
)

var teacherColumns = map[string]string{
	"name":          "name",
	"username":      "username",
	"email":         "email",
	"password":      "password",
	"phone":         "phone",
	"subject_ids":   "subjects",
	"qualification": "qualification",
	"join_year":     "joinYear",
	"teacher_id":    "teacherId",
	"department":    "subjects",
}

func (imp *Importer) teacherFromRow(rep *report, row Row) (teacher.NewTeacher, bool) {
	nt := teacher.NewTeacher{
		Name:          row.Get("name"),
		Username:      row.Get("username"),
		Email:         row.Get("email"),
		Password:      row.Get("password"),
		TeacherID:     row.Get("teacherId"),
		Phone:         row.Get("phone"),
		Qualification: row.Get("qualification"),
		SubjectIDs:    splitList(row.Get("subjects")),
	}

	ok := true
	year, valid := coerceYear(row.Get("joinYear"))
	if !valid {
		rep.add(row.Number, "joinYear", "join year must be a number")
		ok = false
	}
	nt.JoinYear = year
	return nt, ok
}

// ImportTeachers validates every row, then creates all teachers or none.
// Subjects are given by name or id; the teacher joins the department of the first one.
func (imp *Importer) ImportTeachers(ctx context.Context, rows []Row) (Result, error) {
	if len(rows) == 0 {
		return Result{}, ErrEmptyFile
	}

	rep := newReport()
	accepted := make([]teacher.NewTeacher, 0, len(rows))
	for _, row := range rows {
		nt, ok := imp.teacherFromRow(rep, row)
		if err := nt.Validate(imp.validate); err != nil {
			if !imp.fieldErrors(rep, row.Number, teacherColumns, err) {
				return Result{}, err
			}
			ok = false
		}
		if !ok {
			continue
		}

		if len(nt.SubjectIDs) > 0 {
			found, missing, err := imp.subjects.Resolve(ctx, nt.SubjectIDs)
			if err != nil {
				return Result{}, err
			}
			if len(missing) > 0 {
				rep.add(row.Number, "subjects", "unknown subjects: "+strings.Join(missing, ", "))
				ok = false
			} else {
				nt.SubjectIDs = nt.SubjectIDs[:0]
				for _, s := range found {
					nt.SubjectIDs = append(nt.SubjectIDs, s.ID)
				}
				nt.Department = string(found[0].Department)
			}
		}

		unique, err := imp.checkAccount(ctx, rep, row.Number, nt.Username, nt.Email)
		if err != nil {
			return Result{}, err
		}
		if ok && unique {
			accepted = append(accepted, nt)
		}
	}

	if len(rep.errors) > 0 {
		return Result{}, &ValidationFailed{Errors: rep.errors}
	}

	res, err := commit(ctx, imp, accepted,
		func(nt teacher.NewTeacher) string {
			if nt.Password != "" {
				return nt.Password
			}
			return imp.conf.Defaults.ImportTeacherPassword
		},
		func(exec core.DBExecutor, nt teacher.NewTeacher, creds credential.Credentials) (user.User, error) {
			t, err := imp.teachers.CreateInTx(ctx, exec, nt, creds)
			return t.Account(), err
		},
	)
	if err != nil {
		return Result{}, err
	}
	imp.logger.Info(fmt.Sprintf("imported %d teachers", res.Count))
	return res, nil
}
