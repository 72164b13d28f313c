package inmemdb

import (
	"context"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, e audit.Entry, _ ...core.DBExecutor) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows = append(repo.db.rows, e)
	return e, nil
}

func (repo *auditRepository) QueryEntries(
	_ context.Context,
	filter audit.QueryFilter,
	offset, limit int,
	_ ...core.DBExecutor,
) ([]audit.Entry, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	// rows are append-only, so walking backwards is newest first
	entries := make([]audit.Entry, 0)
	for i := len(repo.db.rows) - 1; i >= 0; i-- {
		e := repo.db.rows[i]
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		entries = append(entries, e)
	}
	return paginate(entries, offset, limit), len(entries), nil
}
