package admin

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/entrance"
)

// Roles
const (
	RoleSuperAdmin  = "super_admin"
	RoleAdmin       = "admin"
	RoleKinderAdmin = "kinder_admin"
	RoleJuniorAdmin = "junior_admin"
	RoleMiddleAdmin = "middle_admin"
	RoleStaff       = "staff"
)

// Permissions
const (
	PermViewStudent   = "can_view_student"
	PermEditStudent   = "can_edit_student"
	PermViewClass     = "can_view_class"
	PermManageMembers = "can_manage_members"
	PermExportMembers = "can_export_members"
	PermNotifyMembers = "can_notify_members"
	PermManageNews    = "can_manage_news"
	PermViewAudit     = "can_view_audit"
	PermManageAdmins  = "can_manage_admins"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleAdmin, RoleKinderAdmin, RoleJuniorAdmin, RoleMiddleAdmin, RoleStaff}

	AllPermissions = []string{
		PermViewStudent, PermEditStudent, PermViewClass,
		PermManageMembers, PermExportMembers, PermNotifyMembers,
		PermManageNews, PermViewAudit, PermManageAdmins,
	}

	rolePriorities = map[string]int{
		RoleSuperAdmin:  30,
		RoleAdmin:       20,
		RoleKinderAdmin: 15,
		RoleJuniorAdmin: 15,
		RoleMiddleAdmin: 15,
		RoleStaff:       10,
	}

	branchAdminPerms = []string{
		PermViewStudent, PermEditStudent, PermViewClass,
		PermManageMembers, PermExportMembers, PermNotifyMembers,
		PermManageNews, PermViewAudit,
	}

	rolePermissions = map[string][]string{
		RoleSuperAdmin:  AllPermissions,
		RoleAdmin:       AllPermissions,
		RoleKinderAdmin: branchAdminPerms,
		RoleJuniorAdmin: branchAdminPerms,
		RoleMiddleAdmin: branchAdminPerms,
		RoleStaff:       {PermViewStudent, PermViewClass},
	}

	// staff have no fixed scope; their own Branches apply
	roleBranches = map[string][]string{
		RoleSuperAdmin:  entrance.AllBranches,
		RoleAdmin:       entrance.AllBranches,
		RoleKinderAdmin: {string(entrance.BranchKinder)},
		RoleJuniorAdmin: {string(entrance.BranchJunior), string(entrance.BranchKinderSingle), string(entrance.BranchMiddle)},
		RoleMiddleAdmin: {string(entrance.BranchMiddle)},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// Admin is a staff account of the back office.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Branches     []string  `json:"branches"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`           // UTC
	UpdatedAt    time.Time `json:"updated_at"`           // UTC
	LastLogin    time.Time `json:"last_login,omitempty"` // UTC
}

func (a *Admin) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Admin) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a Admin) Priority() int {
	return RolePriority(a.Role)
}

func (a Admin) IsSuper() bool {
	return a.Role == RoleSuperAdmin
}

// AllowedBranches lists the member branches this admin may see.
func (a Admin) AllowedBranches() []string {
	branches, ok := roleBranches[a.Role]
	if !ok {
		branches = a.Branches
	}
	out := make([]string, 0, len(branches))
	return append(out, branches...)
}

func (a Admin) Permissions() []string {
	perms := rolePermissions[a.Role]
	out := make([]string, 0, len(perms))
	return append(out, perms...)
}

func (a Admin) Can(perm string) bool {
	return core.StringInSlice(perm, rolePermissions[a.Role])
}

// NewAdmin is the back-office signup payload.
type NewAdmin struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (na *NewAdmin) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, na.Username, na.Email)
}

// RolesUpdate changes an admin's role and branch scope.
type RolesUpdate struct {
	Role     string   `json:"role" validate:"required,adminrole"`
	Branches []string `json:"branches" validate:"omitempty,dive,branch"`
	IsActive *bool    `json:"is_active"`
}

func (ru *RolesUpdate) Validate(validate *validator.Validate) error {
	ru.Role = core.CleanString(ru.Role, true /* lower */)
	for i, b := range ru.Branches {
		ru.Branches[i] = core.CleanString(b, true /* lower */)
	}
	return validate.Struct(ru)
}

type GetFilter struct {
	ID              string
	UsernameOrEmail string
}
