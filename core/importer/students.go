package importer

import (
	"context"
	"fmt"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/user"
)

// student sheet columns, keyed by the NewStudent json name they fill
var studentColumns = map[string]string{
	"name":            "name",
	"username":        "username",
	"email":           "email",
	"password":        "password",
	"class_id":        "class",
	"date_of_birth":   "dateOfBirth",
	"gender":          "gender",
	"address":         "address",
	"parent_name":     "parentName",
	"parent_phone":    "parentPhone",
	"parent_email":    "parentEmail",
	"enrollment_year": "enrollmentYear",
	"student_id":      "studentId",
}

func (imp *Importer) studentFromRow(rep *report, row Row) (student.NewStudent, bool) {
	ns := student.NewStudent{
		Name:        row.Get("name"),
		Username:    row.Get("username"),
		Email:       row.Get("email"),
		Password:    row.Get("password"),
		StudentID:   row.Get("studentId"),
		ClassID:     row.Get("class"),
		DateOfBirth: coerceDate(row.Get("dateOfBirth")),
		Gender:      coerceGender(row.Get("gender")),
		Address:     row.Get("address"),
		ParentName:  row.Get("parentName"),
		ParentPhone: row.Get("parentPhone"),
		ParentEmail: row.Get("parentEmail"),
	}

	ok := true
	year, valid := coerceYear(row.Get("enrollmentYear"))
	if !valid {
		rep.add(row.Number, "enrollmentYear", "enrollment year must be a number")
		ok = false
	}
	ns.EnrollmentYear = year
	return ns, ok
}

// ImportStudents validates every row, then creates all students or none.
func (imp *Importer) ImportStudents(ctx context.Context, rows []Row) (Result, error) {
	if len(rows) == 0 {
		return Result{}, ErrEmptyFile
	}

	rep := newReport()
	accepted := make([]student.NewStudent, 0, len(rows))
	for _, row := range rows {
		ns, ok := imp.studentFromRow(rep, row)
		if err := ns.Validate(imp.validate); err != nil {
			if !imp.fieldErrors(rep, row.Number, studentColumns, err) {
				return Result{}, err
			}
			ok = false
		}
		if !ok {
			continue
		}

		if ns.ClassID != "" {
			cg, err := imp.classes.Find(ctx, ns.ClassID)
			switch {
			case core.IsNotFound(err):
				rep.add(row.Number, "class", fmt.Sprintf("class %q does not exist", ns.ClassID))
				ok = false
			case err != nil:
				return Result{}, err
			default:
				ns.ClassID = cg.ID
			}
		}

		unique, err := imp.checkAccount(ctx, rep, row.Number, ns.Username, ns.Email)
		if err != nil {
			return Result{}, err
		}
		if ok && unique {
			accepted = append(accepted, ns)
		}
	}

	if len(rep.errors) > 0 {
		return Result{}, &ValidationFailed{Errors: rep.errors}
	}

	res, err := commit(ctx, imp, accepted,
		func(ns student.NewStudent) string {
			if ns.Password != "" {
				return ns.Password
			}
			return imp.conf.Defaults.ImportStudentPassword
		},
		func(exec core.DBExecutor, ns student.NewStudent, creds credential.Credentials) (user.User, error) {
			st, err := imp.students.CreateInTx(ctx, exec, ns, creds)
			return st.Account(), err
		},
	)
	if err != nil {
		return Result{}, err
	}
	imp.logger.Info(fmt.Sprintf("imported %d students", res.Count))
	return res, nil
}
