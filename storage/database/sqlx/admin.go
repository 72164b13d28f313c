package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
)

const adminColumns = `id, username, email, password_hash, role, branches, is_active, created_at, updated_at, last_login`

type adminRow struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	PasswordHash []byte         `db:"password_hash"`
	Role         string         `db:"role"`
	Branches     pq.StringArray `db:"branches"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

type adminRepository struct {
	baseRepository
}

var _ admin.Repository = (*adminRepository)(nil)

func NewAdminRepository(exec core.DBExecutor) admin.Repository {
	return &adminRepository{baseRepository{exec: exec}}
}

func (repo adminRepository) toRow(adm admin.Admin) adminRow {
	branches := pq.StringArray(adm.Branches)
	if branches == nil {
		branches = pq.StringArray{}
	}
	return adminRow{
		ID:           adm.ID,
		Username:     adm.Username,
		Email:        adm.Email,
		PasswordHash: adm.PasswordHash,
		Role:         adm.Role,
		Branches:     branches,
		IsActive:     adm.IsActive,
		CreatedAt:    adm.CreatedAt.UTC(),
		UpdatedAt:    adm.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(adm.LastLogin.UTC(), !adm.LastLogin.IsZero()),
	}
}

func (repo adminRepository) fromRow(row adminRow) admin.Admin {
	adm := admin.Admin{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
		Branches:     []string(row.Branches),
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if adm.Branches == nil {
		adm.Branches = []string{}
	}
	if row.LastLogin.Valid {
		adm.LastLogin = row.LastLogin.Time.UTC()
	}
	return adm
}

// trapNoRowsErr maps psql "no rows" err to admin.ErrNotFound
func (repo adminRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return admin.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo adminRepository) CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error {
	var taken struct {
		Username bool `db:"username"`
		Email    bool `db:"email"`
	}
	q := `SELECT EXISTS (SELECT 1 FROM "admins" WHERE username = $1) AS username,
		EXISTS (SELECT 1 FROM "admins" WHERE email = $2) AS email`
	if err := repo.getExec(exec).GetContext(ctx, &taken, q, username, email); err != nil {
		return errors.Wrap(err, "checking admin uniqueness")
	}
	switch {
	case taken.Username:
		return admin.ErrUsernameExists
	case taken.Email:
		return admin.ErrEmailExists
	}
	return nil
}

func (repo adminRepository) CountAdmins(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var n int
	// lock the table so two concurrent first signups cannot both become super admin
	if _, err := repo.getExec(exec).ExecContext(ctx, `LOCK TABLE "admins" IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, errors.Wrap(err, "locking admins")
	}
	if err := repo.getExec(exec).GetContext(ctx, &n, `SELECT COUNT(*) FROM "admins"`); err != nil {
		return 0, errors.Wrap(err, "counting admins")
	}
	return n, nil
}

func (repo adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin, exec ...core.DBExecutor) (admin.Admin, error) {
	q := `INSERT INTO "admins" (` + adminColumns + `) VALUES (:id, :username, :email, :password_hash, :role, :branches,
		:is_active, :created_at, :updated_at, :last_login)`
	if _, err := sqlxNamedExec(ctx, repo.getExec(exec), q, repo.toRow(adm)); err != nil {
		return admin.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return adm, nil
}

func (repo adminRepository) GetAdmin(ctx context.Context, filter admin.GetFilter, exec ...core.DBExecutor) (admin.Admin, error) {
	var w where
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return admin.Admin{}, admin.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return admin.Admin{}, admin.ErrNotFound
	}

	var row adminRow
	q := `SELECT ` + adminColumns + ` FROM "admins"` + w.String() + ` LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, w.args...); err != nil {
		return admin.Admin{}, repo.trapNoRowsErr(err, "getting admin")
	}
	return repo.fromRow(row), nil
}

func (repo adminRepository) QueryAdmins(ctx context.Context, exec ...core.DBExecutor) ([]admin.Admin, error) {
	var rows []adminRow
	q := `SELECT ` + adminColumns + ` FROM "admins" ORDER BY created_at`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting admins")
	}
	admins := make([]admin.Admin, 0, len(rows))
	for _, row := range rows {
		admins = append(admins, repo.fromRow(row))
	}
	return admins, nil
}

func (repo adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin, exec ...core.DBExecutor) (admin.Admin, error) {
	q := `UPDATE "admins" SET username = :username, email = :email, password_hash = :password_hash, role = :role,
		branches = :branches, is_active = :is_active, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, repo.getExec(exec), q, repo.toRow(adm))
	if err != nil {
		return admin.Admin{}, errors.Wrap(err, "updating admin")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admin.Admin{}, admin.ErrNotFound
	}
	return adm, nil
}
