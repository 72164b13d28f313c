package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/amork0112-rgb/frageedu/core"
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// where accumulates AND-ed conditions with postgres positional args.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, replacing every "?" with the next positional arg.
func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) arg(v interface{}) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func sqlxNamedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, exec, query, arg)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
