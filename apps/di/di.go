// Package di wires repositories and services together by hand.
// The API server, the admin CLI and the tests all build their dependencies here.
package di

import (
	"io"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/classgroup"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/importer"
	"github.com/trezcool/lophoc/core/sequence"
	"github.com/trezcool/lophoc/core/student"
	"github.com/trezcool/lophoc/core/subject"
	"github.com/trezcool/lophoc/core/teacher"
	"github.com/trezcool/lophoc/core/timetable"
	"github.com/trezcool/lophoc/core/user"
	emailsvc "github.com/trezcool/lophoc/services/email"
	logsvc "github.com/trezcool/lophoc/services/logger"
	"github.com/trezcool/lophoc/storage/database"
	sqlxrepos "github.com/trezcool/lophoc/storage/database/sqlx"
)

// UserServiceFunc builds the account service; user.NewService or user.NewServiceMock.
type UserServiceFunc func(
	db core.DB,
	repo user.Repository,
	codec user.PasswordCodec,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *user.Service

type Container struct {
	Conf       *core.Config
	DB         *sqlx.DB
	Logger     core.Logger
	Mail       core.EmailService
	Validate   *validator.Validate
	Translator ut.Translator
	Codec      *credential.Codec

	Users     *user.Service
	Subjects  *subject.Service
	Classes   *classgroup.Service
	Students  *student.Service
	Teachers  *teacher.Service
	Timetable *timetable.Service
	Importer  *importer.Importer
}

func NewContainer(
	conf *core.Config,
	db *sqlx.DB,
	logger core.Logger,
	mailSvc core.EmailService,
	newUserSvc UserServiceFunc,
) *Container {
	translator := NewTranslator()
	validate := NewValidator(translator)
	core.ParseEmailTemplates(logger)

	// repositories
	userRepo := sqlxrepos.NewUserRepository(db)
	subjectRepo := sqlxrepos.NewSubjectRepository(db)
	classRepo := sqlxrepos.NewClassGroupRepository(db)
	studentRepo := sqlxrepos.NewStudentRepository(db)
	teacherRepo := sqlxrepos.NewTeacherRepository(db)
	timetableRepo := sqlxrepos.NewTimetableRepository(db)
	refs := sqlxrepos.NewReferenceRepository(db)

	codec := credential.NewCodec(conf.EncryptionKey)
	seq := sequence.NewGenerator(sqlxrepos.NewCounterRepository(db))

	// services
	usrSvc := newUserSvc(db, userRepo, codec, mailSvc, conf, logger)
	subjectSvc := subject.NewService(subjectRepo)
	classSvc := classgroup.NewService(db, classRepo, seq, studentRepo, timetableRepo, refs)
	studentSvc := student.NewService(db, studentRepo, usrSvc, seq, refs, conf)
	teacherSvc := teacher.NewService(db, teacherRepo, usrSvc, seq, subjectSvc, classRepo, timetableRepo, conf)
	timetableSvc := timetable.NewService(timetableRepo, refs)
	imp := importer.New(db, usrSvc, studentSvc, teacherSvc, classSvc, subjectSvc, validate, translator, conf, logger)

	return &Container{
		Conf:       conf,
		DB:         db,
		Logger:     logger,
		Mail:       mailSvc,
		Validate:   validate,
		Translator: translator,
		Codec:      codec,
		Users:      usrSvc,
		Subjects:   subjectSvc,
		Classes:    classSvc,
		Students:   studentSvc,
		Teachers:   teacherSvc,
		Timetable:  timetableSvc,
		Importer:   imp,
	}
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator knowing every custom tag of the app.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	subject.InitValidators(validate, translator)
	return validate
}

// NewLogger returns a Rollbar-backed logger printing with prefix; nil out means stdout.
func NewLogger(prefix string, conf *core.Config, out io.Writer) *logsvc.RollbarLogger {
	if out == nil {
		out = os.Stdout
	}
	return logsvc.NewRollbarLogger(log.New(out, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func NewMailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// SetUpDB creates the database when needed, opens it and applies pending migrations.
func SetUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
