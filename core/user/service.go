package user

import (
	"context"
	"crypto/subtle"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
)

var (
	// errors
	ErrNotFound              = core.NewNotFoundError("user")
	ErrEmailExists           = core.NewDuplicateError("user", "email")
	ErrUsernameExists        = core.NewDuplicateError("user", "username")
	ErrAccountDeactivated    = errors.New("account deactivated")
	ErrNoRecoverablePassword = errors.New("this account has no recoverable password; reset it instead")
	ErrInvalidPassword       = core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "invalid password"})

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when taken by an account not in excludedIDs.
		CheckUniqueness(ctx context.Context, username, email string, excludedIDs []string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdatePassword(ctx context.Context, id string, creds credential.Credentials, exec ...core.DBExecutor) error
		SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
		DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		db      core.DB
		repo    Repository
		codec   PasswordCodec
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger

		sendAsync bool
	}
)

func NewService(
	db core.DB,
	repo Repository,
	codec PasswordCodec,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		codec:     codec,
		mailSvc:   mailSvc,
		conf:      conf,
		logger:    logger,
		sendAsync: true,
	}
}

// NewSyncService returns a Service that sends its e-mails before returning,
// for short-lived processes like the admin CLI.
func NewSyncService(
	db core.DB,
	repo Repository,
	codec PasswordCodec,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	svc := NewService(db, repo, codec, mailSvc, conf, logger)
	svc.sendAsync = false
	return svc
}

func (svc *Service) Codec() PasswordCodec { return svc.codec }

// Seal hashes and encrypts a password, ready for NewAccount.Credentials.
func (svc *Service) Seal(pwd string) (credential.Credentials, error) {
	creds, err := svc.codec.Seal(pwd)
	return creds, errors.Wrap(err, "sealing password")
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, excludedIDs []string, exec ...core.DBExecutor) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excludedIDs, exec...); err != nil {
		dup, ok := core.AsDuplicate(err)
		if !ok {
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: dup.Field, Error: err.Error()})
	}
	return nil
}

// CreateInTx creates the account of a new profile inside the caller's transaction.
// Uniqueness is enforced by storage: duplicates surface as ErrUsernameExists / ErrEmailExists.
func (svc *Service) CreateInTx(ctx context.Context, exec core.DBExecutor, na NewAccount) (User, error) {
	na.Clean()
	if len(na.Credentials.Hash) == 0 || na.Credentials.Encrypted == "" {
		return User{}, errors.New("account credentials are not sealed")
	}
	if !IsValidRole(na.Role) {
		return User{}, errors.Errorf("invalid role %q", na.Role)
	}

	now := NowFunc()
	usr := User{
		Name:      na.Name,
		Username:  na.Username,
		Email:     na.Email,
		Role:      na.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetCredentials(na.Credentials)
	return svc.repo.CreateUser(ctx, usr, exec)
}

// CreateAdmin creates an administrator with the given password.
func (svc *Service) CreateAdmin(ctx context.Context, na NewAdmin) (User, error) {
	na.Clean()
	creds, err := svc.Seal(na.Password)
	if err != nil {
		return User{}, err
	}
	var usr User
	err = core.InTx(ctx, svc.db, func(exec core.DBExecutor) error {
		usr, err = svc.CreateInTx(ctx, exec, NewAccount{
			Name:        na.Name,
			Username:    na.Username,
			Email:       na.Email,
			Role:        RoleAdmin,
			Credentials: creds,
		})
		return err
	})
	return usr, err
}

// UpdateAccountInTx applies an AccountPatch (name, email) inside the caller's transaction.
func (svc *Service) UpdateAccountInTx(ctx context.Context, exec core.DBExecutor, id string, patch AccountPatch) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id}, exec)
	if err != nil {
		return User{}, err
	}
	if patch.IsEmpty() {
		return usr, nil
	}
	if patch.Name != nil {
		usr.Name = core.CleanString(*patch.Name)
	}
	if patch.Email != nil {
		usr.Email = core.CleanString(*patch.Email, true /* lower */)
	}
	usr.UpdatedAt = NowFunc()
	return svc.repo.UpdateUser(ctx, usr, exec)
}

func (svc *Service) DeleteInTx(ctx context.Context, exec core.DBExecutor, id string) error {
	return svc.repo.DeleteUser(ctx, id, exec)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Authenticate checks username (or email), password and the portal role.
// Unknown user, role mismatch and wrong password are indistinguishable to the caller.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd, role string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, core.ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if usr.Role != role {
		return User{}, core.ErrAuthenticationFailed
	}

	ok, err := svc.verify(ctx, &usr, pwd)
	if err != nil {
		return User{}, errors.Wrap(err, "verifying password")
	}
	if !ok {
		return User{}, core.ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr, err = svc.SetLastLogin(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

// VerifyPassword reports whether pwd is the account's password, upgrading legacy rows on match.
func (svc *Service) VerifyPassword(ctx context.Context, id, pwd string) (bool, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return svc.verify(ctx, &usr, pwd)
}

// verify checks the hash first. Legacy rows (no encrypted copy) that stored the password
// in clear are accepted once, then rewritten with a real hash and ciphertext.
func (svc *Service) verify(ctx context.Context, usr *User, pwd string) (bool, error) {
	if usr.CheckPassword(svc.codec, pwd) {
		return true, nil
	}
	if !usr.IsLegacy() || credential.LooksHashed(usr.PasswordHash) {
		return false, nil
	}
	if subtle.ConstantTimeCompare(usr.PasswordHash, []byte(pwd)) != 1 {
		return false, nil
	}

	if err := usr.SetPassword(svc.codec, pwd); err != nil {
		return false, errors.Wrap(err, "upgrading legacy password")
	}
	if err := svc.repo.UpdatePassword(ctx, usr.ID, credential.Credentials{Hash: usr.PasswordHash, Encrypted: usr.PasswordEncrypted}); err != nil {
		return false, errors.Wrap(err, "saving upgraded legacy password")
	}
	svc.logger.Info("legacy password upgraded", *usr)
	return true, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := NowFunc()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, err
	}
	usr.LastLogin = now
	return usr, nil
}

// RecoverPassword decrypts the stored password for an administrator.
func (svc *Service) RecoverPassword(ctx context.Context, id string) (string, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if usr.IsLegacy() {
		return "", ErrNoRecoverablePassword
	}
	pwd, err := svc.codec.Decrypt(usr.PasswordEncrypted)
	return pwd, errors.Wrap(err, "decrypting password")
}

// ResetPassword sets a new password without policy checks (admin, CLI).
func (svc *Service) ResetPassword(ctx context.Context, id, pwd string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	creds, err := svc.Seal(pwd)
	if err != nil {
		return err
	}
	return svc.repo.UpdatePassword(ctx, id, creds)
}

// ChangePassword lets a user replace their own password; the new one must pass the password policy.
func (svc *Service) ChangePassword(ctx context.Context, id string, cp ChangePassword, validate *validator.Validate) error {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cp.name, cp.username, cp.email = usr.Name, usr.Username, usr.Email
	if err = validate.Struct(cp); err != nil {
		return err
	}

	ok, err := svc.verify(ctx, &usr, cp.OldPassword)
	if err != nil {
		return errors.Wrap(err, "verifying password")
	}
	if !ok {
		return ErrInvalidPassword
	}
	return svc.ResetPassword(ctx, id, cp.Password)
}

// NotifyCreated e-mails a new account holder their username. The password is never sent.
func (svc *Service) NotifyCreated(usr User) {
	if usr.Email == "" || svc.mailSvc == nil {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your " + svc.conf.AppName + " account",
		TemplateName: "account_created",
		TemplateData: map[string]string{"Name": usr.Name, "Username": usr.Username, "Role": usr.Role},
	}
	if svc.sendAsync {
		go svc.mailSvc.SendMessages(msg)
	} else {
		svc.mailSvc.SendMessages(msg)
	}
}
