package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/user"
)

const userColumns = `id, email, phone, parent_name, student_name, branch, status, email_verified,
	household_token, password_hash, created_at, updated_at, last_login`

var userSortable = map[string]bool{
	"created_at": true, "last_login": true, "email": true, "parent_name": true,
	"student_name": true, "branch": true, "status": true,
}

type userRow struct {
	ID             string    `db:"id"`
	Email          string    `db:"email"`
	Phone          string    `db:"phone"`
	ParentName     string    `db:"parent_name"`
	StudentName    string    `db:"student_name"`
	Branch         string    `db:"branch"`
	Status         string    `db:"status"`
	EmailVerified  bool      `db:"email_verified"`
	HouseholdToken string    `db:"household_token"`
	PasswordHash   []byte    `db:"password_hash"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	LastLogin      null.Time `db:"last_login"`
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:             usr.ID,
		Email:          usr.Email,
		Phone:          usr.Phone,
		ParentName:     usr.ParentName,
		StudentName:    usr.StudentName,
		Branch:         usr.Branch,
		Status:         usr.Status,
		EmailVerified:  usr.EmailVerified,
		HouseholdToken: usr.HouseholdToken,
		PasswordHash:   usr.PasswordHash,
		CreatedAt:      usr.CreatedAt.UTC(),
		UpdatedAt:      usr.UpdatedAt.UTC(),
		LastLogin:      null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	usr := user.User{
		ID:             row.ID,
		Email:          row.Email,
		Phone:          row.Phone,
		ParentName:     row.ParentName,
		StudentName:    row.StudentName,
		Branch:         row.Branch,
		Status:         row.Status,
		EmailVerified:  row.EmailVerified,
		HouseholdToken: row.HouseholdToken,
		PasswordHash:   row.PasswordHash,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	return usr
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO "users" (` + userColumns + `) VALUES (:id, :email, :phone, :parent_name, :student_name, :branch,
		:status, :email_verified, :household_token, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlxNamedExec(ctx, repo.getExec(exec), q, repo.toRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.HouseholdToken != "":
		if !isUUID(filter.HouseholdToken) {
			return user.User{}, user.ErrNotFound
		}
		w.add("household_token = ?", filter.HouseholdToken)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := `SELECT ` + userColumns + ` FROM "users"` + w.String() + ` LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, w.args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsers(
	ctx context.Context,
	filter user.QueryFilter,
	ordering []core.DBOrdering,
	offset, limit int,
	exec ...core.DBExecutor,
) ([]user.User, int, error) {
	var w where
	if filter.Query != "" {
		val := "%" + filter.Query + "%"
		w.add("(email ILIKE ? OR parent_name ILIKE ? OR student_name ILIKE ? OR phone ILIKE ?)", val, val, val, val)
	}
	if filter.Branch != "" {
		w.add("branch = ?", filter.Branch)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Branches != nil {
		w.add("branch = ANY(?)", pq.Array(filter.Branches))
	}

	var total int
	if err := repo.getExec(exec).GetContext(ctx, &total, `SELECT COUNT(*) FROM "users"`+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	q := `SELECT ` + userColumns + ` FROM "users"` + w.String() +
		orderBy(ordering, userSortable, "created_at DESC") +
		` LIMIT ` + w.arg(limit) + ` OFFSET ` + w.arg(offset)
	var rows []userRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting users")
	}
	return repo.fromRows(rows), total, nil
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []user.User{}, nil
	}

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM "users" WHERE id = ANY($1::uuid[]) ORDER BY created_at`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, pq.Array(valid)); err != nil {
		return nil, errors.Wrap(err, "selecting users by ID")
	}
	return repo.fromRows(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE "users" SET email = :email, phone = :phone, parent_name = :parent_name, student_name = :student_name,
		branch = :branch, status = :status, email_verified = :email_verified, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	res, err := sqlxNamedExec(ctx, repo.getExec(exec), q, repo.toRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) EmailExists(ctx context.Context, email string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM "users" WHERE email = $1)`
	if err := repo.getExec(exec).GetContext(ctx, &exists, q, email); err != nil {
		return false, errors.Wrap(err, "checking email")
	}
	return exists, nil
}
