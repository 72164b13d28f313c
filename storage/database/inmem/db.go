package inmemdb

import (
	"context"
	"sync"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/audit"
	"github.com/amork0112-rgb/frageedu/core/news"
	"github.com/amork0112-rgb/frageedu/core/user"
)

type (
	DB struct {
		user      *userTable
		admission *admissionTable
		admin     *adminTable
		news      *newsTable
		audit     *auditTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	admissionTable struct {
		sync.RWMutex
		table map[string]*admission.Admission // {householdToken: record}
	}

	adminTable struct {
		sync.RWMutex
		table map[string]*admin.Admin
	}

	newsTable struct {
		sync.RWMutex
		table map[string]*news.Article
	}

	auditTable struct {
		sync.RWMutex
		rows []audit.Entry
	}
)

// Open returns an empty in-memory database. Nothing is persisted across restarts.
func Open() *DB {
	return &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		admission: &admissionTable{table: make(map[string]*admission.Admission)},
		admin:     &adminTable{table: make(map[string]*admin.Admin)},
		news:      &newsTable{table: make(map[string]*news.Article)},
		audit:     &auditTable{},
	}
}

type transactor struct{}

var _ core.Transactor = (*transactor)(nil)

// NewTransactor runs functions directly: every in-memory write is applied immediately.
func NewTransactor() core.Transactor {
	return transactor{}
}

func (transactor) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}
