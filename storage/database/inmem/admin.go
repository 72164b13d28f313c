package inmemdb

import (
	"context"
	"sort"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
)

type adminRepository struct {
	db *adminTable
}

var _ admin.Repository = (*adminRepository)(nil)

func NewAdminRepository(db *DB) admin.Repository {
	return &adminRepository{db: db.admin}
}

func copyAdmin(adm admin.Admin) admin.Admin {
	adm.Branches = append([]string{}, adm.Branches...)
	return adm
}

func (repo *adminRepository) CheckUniqueness(_ context.Context, username, email string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, adm := range repo.db.table {
		if adm.Username == username {
			return admin.ErrUsernameExists
		}
		if adm.Email == email {
			return admin.ErrEmailExists
		}
	}
	return nil
}

func (repo *adminRepository) CountAdmins(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table), nil
}

func (repo *adminRepository) CreateAdmin(_ context.Context, adm admin.Admin, _ ...core.DBExecutor) (admin.Admin, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	adm = copyAdmin(adm)
	repo.db.table[adm.ID] = &adm
	return copyAdmin(adm), nil
}

func (repo *adminRepository) GetAdmin(_ context.Context, filter admin.GetFilter, _ ...core.DBExecutor) (admin.Admin, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, adm := range repo.db.table {
		switch {
		case filter.ID != "":
			if adm.ID == filter.ID {
				return copyAdmin(*adm), nil
			}
		case filter.UsernameOrEmail != "":
			if adm.Username == filter.UsernameOrEmail || adm.Email == filter.UsernameOrEmail {
				return copyAdmin(*adm), nil
			}
		}
	}
	return admin.Admin{}, admin.ErrNotFound
}

func (repo *adminRepository) QueryAdmins(_ context.Context, _ ...core.DBExecutor) ([]admin.Admin, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	admins := make([]admin.Admin, 0, len(repo.db.table))
	for _, adm := range repo.db.table {
		admins = append(admins, copyAdmin(*adm))
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	return admins, nil
}

func (repo *adminRepository) UpdateAdmin(_ context.Context, adm admin.Admin, _ ...core.DBExecutor) (admin.Admin, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[adm.ID]; !ok {
		return admin.Admin{}, admin.ErrNotFound
	}
	adm = copyAdmin(adm)
	repo.db.table[adm.ID] = &adm
	return copyAdmin(adm), nil
}
