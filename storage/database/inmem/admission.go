package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
)

var errAdmissionExists = errors.New("admission record already exists")

type admissionRepository struct {
	db *admissionTable
}

var _ admission.Repository = (*admissionRepository)(nil)

func NewAdmissionRepository(db *DB) admission.Repository {
	return &admissionRepository{db: db.admission}
}

func (repo *admissionRepository) CreateAdmission(
	_ context.Context,
	adm admission.Admission,
	_ ...core.DBExecutor,
) (admission.Admission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[adm.HouseholdToken]; ok {
		return admission.Admission{}, errAdmissionExists
	}
	repo.db.table[adm.HouseholdToken] = &adm
	return adm, nil
}

func (repo *admissionRepository) GetAdmission(
	_ context.Context,
	householdToken string,
	_ ...core.DBExecutor,
) (admission.Admission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if adm, ok := repo.db.table[householdToken]; ok {
		return *adm, nil
	}
	return admission.Admission{}, admission.ErrNotFound
}

func (repo *admissionRepository) UpdateAdmission(
	_ context.Context,
	adm admission.Admission,
	_ ...core.DBExecutor,
) (admission.Admission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[adm.HouseholdToken]; !ok {
		return admission.Admission{}, admission.ErrNotFound
	}
	repo.db.table[adm.HouseholdToken] = &adm
	return adm, nil
}
