package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/audit"
)

const auditColumns = `id, admin_id, admin_name, action, target_id, detail, created_at`

type auditRow struct {
	ID        string    `db:"id"`
	AdminID   string    `db:"admin_id"`
	AdminName string    `db:"admin_name"`
	Action    string    `db:"action"`
	TargetID  string    `db:"target_id"`
	Detail    string    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

type auditRepository struct {
	baseRepository
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(exec core.DBExecutor) audit.Repository {
	return &auditRepository{baseRepository{exec: exec}}
}

func (repo auditRepository) CreateEntry(ctx context.Context, e audit.Entry, exec ...core.DBExecutor) (audit.Entry, error) {
	row := auditRow(e)
	row.CreatedAt = row.CreatedAt.UTC()
	q := `INSERT INTO "audit_logs" (` + auditColumns + `) VALUES (:id, :admin_id, :admin_name, :action, :target_id,
		:detail, :created_at)`
	if _, err := sqlxNamedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return e, nil
}

func (repo auditRepository) QueryEntries(
	ctx context.Context,
	filter audit.QueryFilter,
	offset, limit int,
	exec ...core.DBExecutor,
) ([]audit.Entry, int, error) {
	var w where
	if filter.TargetID != "" {
		w.add("target_id = ?", filter.TargetID)
	}
	if filter.Action != "" {
		w.add("action = ?", filter.Action)
	}

	var total int
	if err := repo.getExec(exec).GetContext(ctx, &total, `SELECT COUNT(*) FROM "audit_logs"`+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting audit entries")
	}

	q := `SELECT ` + auditColumns + ` FROM "audit_logs"` + w.String() +
		` ORDER BY created_at DESC LIMIT ` + w.arg(limit) + ` OFFSET ` + w.arg(offset)
	var rows []auditRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting audit entries")
	}
	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e := audit.Entry(row)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, total, nil
}
