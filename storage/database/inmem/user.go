package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.table {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		switch {
		case filter.ID != "":
			if usr.ID == filter.ID {
				return *usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return *usr, nil
			}
		case filter.HouseholdToken != "":
			if usr.HouseholdToken == filter.HouseholdToken {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(
	_ context.Context,
	filter user.QueryFilter,
	ordering []core.DBOrdering,
	offset, limit int,
	_ ...core.DBExecutor,
) ([]user.User, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q := strings.ToLower(filter.Query)
	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if q != "" && !(strings.Contains(strings.ToLower(usr.Email), q) ||
			strings.Contains(strings.ToLower(usr.ParentName), q) ||
			strings.Contains(strings.ToLower(usr.StudentName), q) ||
			strings.Contains(usr.Phone, q)) {
			continue
		}
		if filter.Branch != "" && usr.Branch != filter.Branch {
			continue
		}
		if filter.Status != "" && usr.Status != filter.Status {
			continue
		}
		if filter.Branches != nil && !core.StringInSlice(usr.Branch, filter.Branches) {
			continue
		}
		users = append(users, usr)
	}

	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareUsers(users[i], users[j], ord.Field); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return users[i].ID < users[j].ID
	})
	return paginate(users, offset, limit), len(users), nil
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "last_login":
		return compareTimes(a.LastLogin, b.LastLogin)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "parent_name":
		return strings.Compare(a.ParentName, b.ParentName)
	case "student_name":
		return strings.Compare(a.StudentName, b.StudentName)
	case "branch":
		return strings.Compare(a.Branch, b.Branch)
	case "status":
		return strings.Compare(a.Status, b.Status)
	}
	return 0
}

func (repo *userRepository) GetUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.table[id]; ok {
			users = append(users, *usr)
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) EmailExists(_ context.Context, email string, _ ...core.DBExecutor) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if usr.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func paginate[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
