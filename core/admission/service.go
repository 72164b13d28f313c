package admission

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
)

// ErrNotFound is returned for unknown household tokens.
var ErrNotFound = &core.NotFoundError{Detail: "Admission data not found"}

type (
	Repository interface {
		CreateAdmission(ctx context.Context, adm Admission, exec ...core.DBExecutor) (Admission, error)
		GetAdmission(ctx context.Context, householdToken string, exec ...core.DBExecutor) (Admission, error)
		UpdateAdmission(ctx context.Context, adm Admission, exec ...core.DBExecutor) (Admission, error)
	}

	Service interface {
		// Open creates the pending record of a new household.
		Open(ctx context.Context, householdToken string, exec ...core.DBExecutor) (Admission, error)
		Get(ctx context.Context, householdToken string) (Admission, error)
		UpdateConsent(ctx context.Context, householdToken string, data ConsentUpdate) error
		UpdateForms(ctx context.Context, householdToken string, data FormsUpdate) error
		MarkGuidesViewed(ctx context.Context, householdToken string) error
		UpdateChecklist(ctx context.Context, householdToken string, data ChecklistUpdate) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Open(ctx context.Context, householdToken string, exec ...core.DBExecutor) (Admission, error) {
	adm, err := svc.repo.CreateAdmission(ctx, New(householdToken), exec...)
	return adm, errors.Wrap(err, "creating admission")
}

func (svc *service) Get(ctx context.Context, householdToken string) (Admission, error) {
	return svc.repo.GetAdmission(ctx, householdToken)
}

// complete marks a category completed, replacing its data unless data is nil.
func (svc *service) complete(ctx context.Context, householdToken string, cat Category, data Data) error {
	adm, err := svc.repo.GetAdmission(ctx, householdToken)
	if err != nil {
		return err
	}

	switch cat {
	case CategoryConsent:
		adm.ConsentStatus = StatusCompleted
		adm.ConsentData = data
	case CategoryForms:
		adm.FormsStatus = StatusCompleted
		adm.FormsData = data
	case CategoryGuides:
		adm.GuidesStatus = StatusCompleted
	case CategoryChecklist:
		adm.ChecklistStatus = StatusCompleted
		adm.ChecklistData = data
	}
	adm.UpdatedAt = time.Now().UTC()

	_, err = svc.repo.UpdateAdmission(ctx, adm)
	return errors.Wrapf(err, "updating %s", cat)
}

func (svc *service) UpdateConsent(ctx context.Context, householdToken string, data ConsentUpdate) error {
	d, err := toData(data)
	if err != nil {
		return errors.Wrap(err, "encoding consent")
	}
	return svc.complete(ctx, householdToken, CategoryConsent, d)
}

func (svc *service) UpdateForms(ctx context.Context, householdToken string, data FormsUpdate) error {
	d, err := toData(data)
	if err != nil {
		return errors.Wrap(err, "encoding forms")
	}
	return svc.complete(ctx, householdToken, CategoryForms, d)
}

func (svc *service) MarkGuidesViewed(ctx context.Context, householdToken string) error {
	return svc.complete(ctx, householdToken, CategoryGuides, nil)
}

func (svc *service) UpdateChecklist(ctx context.Context, householdToken string, data ChecklistUpdate) error {
	d, err := toData(data)
	if err != nil {
		return errors.Wrap(err, "encoding checklist")
	}
	return svc.complete(ctx, householdToken, CategoryChecklist, d)
}
