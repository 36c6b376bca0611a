package user

import "github.com/trezcool/lophoc/core"

// NewServiceMock returns a Service that sends its e-mails synchronously, so tests can inspect them.
func NewServiceMock(
	db core.DB,
	repo Repository,
	codec PasswordCodec,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return NewSyncService(db, repo, codec, mailSvc, conf, logger)
}
