package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
)

var (
	// errors
	ErrNotFound           = &core.NotFoundError{Detail: "Admin not found"}
	ErrUsernameExists     = errors.New("Username already registered")
	ErrEmailExists        = errors.New("Email already registered")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrAccountDisabled    = errors.New("Account disabled")
	ErrPermissionDenied   = errors.New("Permission denied")
	ErrRoleTooHigh        = errors.New("not enough rights to grant this role")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when taken.
		CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error
		CountAdmins(ctx context.Context, exec ...core.DBExecutor) (int, error)
		CreateAdmin(ctx context.Context, adm Admin, exec ...core.DBExecutor) (Admin, error)
		GetAdmin(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Admin, error)
		QueryAdmins(ctx context.Context, exec ...core.DBExecutor) ([]Admin, error)
		UpdateAdmin(ctx context.Context, adm Admin, exec ...core.DBExecutor) (Admin, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, username, email string) error
		// Signup creates a back-office account. The very first one becomes super admin, later ones unscoped staff.
		Signup(ctx context.Context, na NewAdmin) (Admin, error)
		Authenticate(ctx context.Context, usernameOrEmail, pwd string) (Admin, error)
		GetByID(ctx context.Context, id string) (Admin, error)
		Query(ctx context.Context) ([]Admin, error)
		UpdateRoles(ctx context.Context, actor Admin, id string, ru RolesUpdate) (Admin, error)
	}

	service struct {
		repo Repository
		tx   core.Transactor
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor) Service {
	return &service{repo: repo, tx: tx}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Signup(ctx context.Context, na NewAdmin) (Admin, error) {
	now := time.Now().UTC()
	adm := Admin{
		ID:        uuid.New().String(),
		Username:  na.Username,
		Email:     na.Email,
		Role:      RoleStaff, // no branches until a super admin grants a scope
		Branches:  []string{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := adm.SetPassword(na.Password); err != nil {
		return Admin{}, errors.Wrap(err, "setting password")
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		count, err := svc.repo.CountAdmins(ctx, exec)
		if err != nil {
			return errors.Wrap(err, "counting admins")
		}
		if count == 0 {
			adm.Role = RoleSuperAdmin
		}
		adm, err = svc.repo.CreateAdmin(ctx, adm, exec)
		return errors.Wrap(err, "creating admin")
	})
	if err != nil {
		return Admin{}, err
	}
	return adm, nil
}

func (svc *service) Authenticate(ctx context.Context, usernameOrEmail, pwd string) (Admin, error) {
	adm, err := svc.repo.GetAdmin(ctx, GetFilter{UsernameOrEmail: core.CleanString(usernameOrEmail, true /* lower */)})
	if err != nil {
		if core.IsNotFound(err) {
			return Admin{}, ErrInvalidCredentials
		}
		return Admin{}, errors.Wrap(err, "finding admin")
	}
	if err = adm.CheckPassword(pwd); err != nil {
		return Admin{}, ErrInvalidCredentials
	}
	if !adm.IsActive {
		return Admin{}, ErrAccountDisabled
	}

	adm.LastLogin = time.Now().UTC()
	adm, err = svc.repo.UpdateAdmin(ctx, adm)
	return adm, errors.Wrap(err, "setting lastLogin")
}

func (svc *service) GetByID(ctx context.Context, id string) (Admin, error) {
	return svc.repo.GetAdmin(ctx, GetFilter{ID: id})
}

func (svc *service) Query(ctx context.Context) ([]Admin, error) {
	admins, err := svc.repo.QueryAdmins(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying admins")
	}
	if admins == nil {
		admins = []Admin{}
	}
	return admins, nil
}

// UpdateRoles lets actor change another admin's role. actor cannot touch themselves,
// anyone ranked above them, or grant a role above their own.
func (svc *service) UpdateRoles(ctx context.Context, actor Admin, id string, ru RolesUpdate) (Admin, error) {
	if !actor.Can(PermManageAdmins) || actor.ID == id {
		return Admin{}, ErrPermissionDenied
	}
	adm, err := svc.GetByID(ctx, id)
	if err != nil {
		return Admin{}, err
	}
	if adm.Priority() > actor.Priority() {
		return Admin{}, ErrPermissionDenied
	}
	if RolePriority(ru.Role) > actor.Priority() {
		return Admin{}, core.NewValidationError(ErrRoleTooHigh, core.FieldError{Field: "role", Error: ErrRoleTooHigh.Error()})
	}

	adm.Role = ru.Role
	if ru.Branches != nil {
		adm.Branches = ru.Branches
	}
	if ru.IsActive != nil {
		adm.IsActive = *ru.IsActive
	}
	adm.UpdatedAt = time.Now().UTC()
	adm, err = svc.repo.UpdateAdmin(ctx, adm)
	return adm, errors.Wrap(err, "updating admin")
}
