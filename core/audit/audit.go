// Package audit records the destructive or bulk actions admins take on members, articles and other admins.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
)

// Actions
const (
	ActionResetPassword = "RESET_PW"
	ActionStatusChange  = "STATUS_CHANGE"
	ActionBulkExport    = "BULK_EXPORT"
	ActionBulkNotify    = "BULK_NOTIFY"
	ActionNewsCreate    = "NEWS_CREATE"
	ActionNewsUpdate    = "NEWS_UPDATE"
	ActionNewsDelete    = "NEWS_DELETE"
	ActionRoleChange    = "ROLE_CHANGE"
)

const maxPageSize = 100

type Entry struct {
	ID        string    `json:"id"`
	AdminID   string    `json:"admin_id"`
	AdminName string    `json:"admin_name"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	TargetID string `query:"targetId"`
	Action   string `query:"type"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
		// QueryEntries returns one page, newest first, plus the total match count.
		QueryEntries(ctx context.Context, filter QueryFilter, offset, limit int, exec ...core.DBExecutor) ([]Entry, int, error)
	}

	Service interface {
		Record(ctx context.Context, adminID, adminName, action, targetID, detail string) (Entry, error)
		Query(ctx context.Context, filter QueryFilter) ([]Entry, core.Page, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Record(ctx context.Context, adminID, adminName, action, targetID, detail string) (Entry, error) {
	e, err := svc.repo.CreateEntry(ctx, Entry{
		ID:        uuid.New().String(),
		AdminID:   adminID,
		AdminName: adminName,
		Action:    action,
		TargetID:  targetID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return e, errors.Wrap(err, "creating audit entry")
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Entry, core.Page, error) {
	filter.TargetID = core.CleanString(filter.TargetID)
	filter.Action = core.CleanString(filter.Action)
	offset, limit := core.Paginate(filter.Page, filter.Limit, maxPageSize)
	page := core.Page{Page: offset/limit + 1, PageSize: limit}

	entries, total, err := svc.repo.QueryEntries(ctx, filter, offset, limit)
	if err != nil {
		return nil, page, errors.Wrap(err, "querying audit entries")
	}
	if entries == nil {
		entries = []Entry{}
	}
	page.Total = total
	return entries, page, nil
}
