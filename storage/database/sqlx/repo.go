// Package sqlxrepos implements the core repositories on top of jmoiron/sqlx.
// Queries are written with "?" placeholders and rebound for the driver, so the same
// code runs on postgres and sqlite3.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
)

const pqUniqueViolation = "23505"

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// uniqueViolation reports whether err is a unique/primary key violation and returns
// a description naming the constraint or column.
func uniqueViolation(err error) (string, bool) {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		if e.Code == pqUniqueViolation {
			return e.Constraint + " " + e.Detail, true
		}
	case sqlite3.Error:
		if e.ExtendedCode == sqlite3.ErrConstraintUnique || e.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return e.Error(), true
		}
	}
	return "", false
}

// trapNoRowsErr maps "no rows" to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// mustAffect returns notFound when res touched no row.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading rows affected")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// orderBy renders an ORDER BY clause from whitelisted fields; unknown fields are ignored.
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// whereClause collects AND-ed conditions and their arguments.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// search matches keyword case-insensitively against any of columns.
func (w *whereClause) search(keyword string, columns ...string) {
	if keyword == "" {
		return
	}
	val := "%" + strings.ToLower(keyword) + "%"
	likes := make([]string, 0, len(columns))
	for _, col := range columns {
		likes = append(likes, "LOWER("+col+") LIKE ?")
		w.args = append(w.args, val)
	}
	w.conds = append(w.conds, "("+strings.Join(likes, " OR ")+")")
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// list columns are stored as JSON text

func marshalList(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encoding list column")
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func unmarshalList(s string, dest interface{}) error {
	if s == "" {
		s = "[]"
	}
	return errors.Wrap(json.Unmarshal([]byte(s), dest), "decoding list column")
}

func exists(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (bool, error) {
	var n int
	err := exec.QueryRowxContext(ctx, exec.Rebind(query), args...).Scan(&n)
	if errors.Cause(err) == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "checking existence")
	}
	return true, nil
}

func in(exec core.DBExecutor, query string, args ...interface{}) (string, []interface{}, error) {
	q, qArgs, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding IN clause")
	}
	return exec.Rebind(q), qArgs, nil
}
