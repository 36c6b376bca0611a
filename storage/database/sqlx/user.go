package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/credential"
	"github.com/trezcool/lophoc/core/user"
)

const accountColumns = `id, name, username, email, password_hash, password_encrypted, role, is_active, created_at, updated_at, last_login`

type accountRow struct {
	ID                string      `db:"id"`
	Name              string      `db:"name"`
	Username          string      `db:"username"`
	Email             null.String `db:"email"`
	PasswordHash      []byte      `db:"password_hash"`
	PasswordEncrypted null.String `db:"password_encrypted"`
	Role              string      `db:"role"`
	IsActive          bool        `db:"is_active"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
	LastLogin         null.Time   `db:"last_login"`
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) toRow(usr user.User) accountRow {
	return accountRow{
		ID:                usr.ID,
		Name:              usr.Name,
		Username:          usr.Username,
		Email:             null.NewString(usr.Email, usr.Email != ""),
		PasswordHash:      usr.PasswordHash,
		PasswordEncrypted: null.NewString(usr.PasswordEncrypted, usr.PasswordEncrypted != ""),
		Role:              usr.Role,
		IsActive:          usr.IsActive,
		CreatedAt:         usr.CreatedAt.UTC(),
		UpdatedAt:         usr.UpdatedAt.UTC(),
		LastLogin:         null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row accountRow) user.User {
	return user.User{
		ID:                row.ID,
		Name:              row.Name,
		Username:          row.Username,
		Email:             row.Email.String,
		PasswordHash:      row.PasswordHash,
		PasswordEncrypted: row.PasswordEncrypted.String,
		Role:              row.Role,
		IsActive:          row.IsActive,
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
		LastLogin:         row.LastLogin.Time.UTC(),
	}
}

// trapUniqueErr maps unique violations on accounts to the user sentinels.
func (repo userRepository) trapUniqueErr(err error, msg string) error {
	if desc, ok := uniqueViolation(err); ok {
		switch {
		case strings.Contains(desc, "username"):
			return user.ErrUsernameExists
		case strings.Contains(desc, "email"):
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs []string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)

	var where whereClause
	if email != "" {
		where.add("(username = ? OR email = ?)", username, email)
	} else {
		where.add("username = ?", username)
	}
	if len(excludedIDs) > 0 {
		where.add("id NOT IN (?)", excludedIDs)
	}
	q, args, err := in(e, "SELECT username, email FROM accounts"+where.String()+" LIMIT 1", where.args...)
	if err != nil {
		return err
	}

	var found struct {
		Username string      `db:"username"`
		Email    null.String `db:"email"`
	}
	if err = e.GetContext(ctx, &found, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if found.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	e := repo.getExec(exec)
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)

	q := e.Rebind(`INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := e.ExecContext(ctx, q,
		row.ID, row.Name, row.Username, row.Email, row.PasswordHash, row.PasswordEncrypted,
		row.Role, row.IsActive, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	e := repo.getExec(exec)

	var where whereClause
	switch {
	case filter.ID != "":
		where.add("id = ?", filter.ID)
	case filter.Username != "":
		where.add("username = ?", filter.Username)
	case filter.Email != "":
		where.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		where.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	args := where.args
	order := ""
	if filter.UsernameOrEmail != "" && filter.ID == "" && filter.Username == "" && filter.Email == "" {
		// an exact username match wins over another account's email
		order = " ORDER BY username = ? DESC"
		args = append(args, filter.UsernameOrEmail)
	}

	var row accountRow
	q := e.Rebind("SELECT " + accountColumns + " FROM accounts" + where.String() + order + " LIMIT 1")
	if err := e.GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	e := repo.getExec(exec)
	row := repo.toRow(usr)

	q := e.Rebind(`UPDATE accounts SET name = ?, email = ?, is_active = ?, updated_at = ? WHERE id = ?`)
	res, err := e.ExecContext(ctx, q, row.Name, row.Email, row.IsActive, row.UpdatedAt, row.ID)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "updating user")
	}
	if err = mustAffect(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) UpdatePassword(ctx context.Context, id string, creds credential.Credentials, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	q := e.Rebind(`UPDATE accounts SET password_hash = ?, password_encrypted = ?, updated_at = ? WHERE id = ?`)
	res, err := e.ExecContext(ctx, q,
		creds.Hash, null.NewString(creds.Encrypted, creds.Encrypted != ""), time.Now().UTC(), id,
	)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	return mustAffect(res, user.ErrNotFound)
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`UPDATE accounts SET last_login = ? WHERE id = ?`), at.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return mustAffect(res, user.ErrNotFound)
}

func (repo userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return mustAffect(res, user.ErrNotFound)
}
