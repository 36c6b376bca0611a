// Package testutil builds a throwaway, migrated SQLite database and the services on top of it.
package testutil

import (
	"context"
	"encoding/base64"
	"io"
	"net/mail"
	"path/filepath"
	"testing"
	"time"

	"github.com/trezcool/lophoc/apps/di"
	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/user"
	emailsvc "github.com/trezcool/lophoc/services/email"
	"github.com/trezcool/lophoc/storage/database"
)

// ZeroKey is the base64 of 32 zero bytes.
var ZeroKey = base64.StdEncoding.EncodeToString(make([]byte, 32))

// App is a fully wired container plus the e-mail mock it sends through.
type App struct {
	*di.Container
	MailMock *emailsvc.ConsoleServiceMock
}

func NewConfig(t *testing.T) *core.Config {
	conf := &core.Config{
		Env:              "TEST",
		Debug:            true,
		TestMode:         true,
		AppName:          "Lophoc",
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "Lophoc", Address: "noreply@lophoc.test"},
		FrontendBaseURL:  "http://localhost:3000",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   filepath.Join(t.TempDir(), "lophoc.db"),
		},
		Defaults: core.DefaultsConfig{
			StudentPassword:       "student123",
			TeacherPassword:       "teacher123",
			ImportStudentPassword: "123456",
			ImportTeacherPassword: "123456",
		},
	}
	conf.SetEncryptionKey(ZeroKey)
	return conf
}

// NewApp opens a fresh migrated database and wires every service on it.
// E-mails are sent synchronously to a mock.
func NewApp(t *testing.T) *App {
	return NewAppWithConfig(t, NewConfig(t))
}

func NewAppWithConfig(t *testing.T, conf *core.Config) *App {
	t.Helper()
	db, err := di.SetUpDB(conf)
	if err != nil {
		t.Fatalf("setting up database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := di.NewLogger("TEST", conf, io.Discard)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	return &App{
		Container: di.NewContainer(conf, db, logger, mailSvc, user.NewServiceMock),
		MailMock:  mailSvc,
	}
}

func CreateAdmin(t *testing.T, app *App, uname, pwd string) user.User {
	t.Helper()
	usr, err := app.Users.CreateAdmin(context.Background(), user.NewAdmin{
		Name:            "Admin " + uname,
		Username:        uname,
		Email:           uname + "@lophoc.test",
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, app *App, name string, dept subject.Department) subject.Subject {
	t.Helper()
	s, err := app.Subjects.Create(context.Background(), subject.NewSubject{Name: name, Department: string(dept)})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

func CreateTeacher(t *testing.T, app *App, nt teacher.NewTeacher) teacher.Teacher {
	t.Helper()
	tchr, err := app.Teachers.Create(context.Background(), nt)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateClass(t *testing.T, app *App, nc classgroup.NewClassGroup) classgroup.ClassGroup {
	t.Helper()
	cg, err := app.Classes.Create(context.Background(), nc)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cg
}

func CreateStudent(t *testing.T, app *App, ns student.NewStudent) student.Student {
	t.Helper()
	st, err := app.Students.Create(context.Background(), ns)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

// CreateLegacyUser inserts an account the way old data stored it:
// the plaintext in the hash column and no encrypted copy.
func CreateLegacyUser(t *testing.T, app *App, uname, plaintext, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	_, err := app.DB.Exec(
		app.DB.Rebind(`INSERT INTO accounts (id, name, username, email, password_hash, password_encrypted, role, is_active, created_at, updated_at)
			VALUES (?, ?, ?, NULL, ?, NULL, ?, ?, ?, ?)`),
		"legacy-"+uname, uname, uname, []byte(plaintext), role, true, now, now,
	)
	if err != nil {
		t.Fatalf("CreateLegacyUser() failed: %v", err)
	}
	usr, err := app.Users.GetByUsername(context.Background(), uname)
	if err != nil {
		t.Fatalf("CreateLegacyUser() failed: %v", err)
	}
	return usr
}

// Count returns the number of rows in table matching the optional where clause.
func Count(t *testing.T, app *App, table, where string, args ...interface{}) int {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	if err := app.DB.Get(&n, app.DB.Rebind(q), args...); err != nil {
		t.Fatalf("Count(%s) failed: %v", table, err)
	}
	return n
}

// Codec returns a codec on the all-zero test key.
func Codec() *credential.Codec {
	return credential.NewCodec(func() string { return ZeroKey })
}
