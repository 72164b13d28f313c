package admin_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	inmemdb "github.com/amork0112-rgb/frageedu/storage/database/inmem"
	testutil "github.com/amork0112-rgb/frageedu/tests"
)

const pwd = "Adm1n!pass#"

func setup() (admin.Service, admin.Repository) {
	repo := inmemdb.NewAdminRepository(inmemdb.Open())
	return admin.NewService(repo, inmemdb.NewTransactor()), repo
}

func TestNewAdmin_Validate(t *testing.T) {
	svc, repo := setup()
	validate, _ := testutil.NewValidator()
	testutil.CreateAdmin(t, repo, "taken", "taken@frage.edu", pwd, admin.RoleStaff, nil, true)

	tests := []struct {
		name    string
		na      admin.NewAdmin
		wantTag string
		wantErr error
	}{
		{name: "too short", na: admin.NewAdmin{Username: "boss", Email: "boss@frage.edu", Password: "Ab1!"}, wantTag: "pwdminlen"},
		{name: "whitespace", na: admin.NewAdmin{Username: "boss", Email: "boss@frage.edu", Password: "Adm1n! pass"}, wantTag: "pwdnospace"},
		{name: "all numeric", na: admin.NewAdmin{Username: "boss", Email: "boss@frage.edu", Password: "1234567890"}, wantTag: "pwdnotallnum"},
		{name: "not complex", na: admin.NewAdmin{Username: "boss", Email: "boss@frage.edu", Password: "adminpass"}, wantTag: "pwdcplx"},
		{name: "like the username", na: admin.NewAdmin{Username: "bossman", Email: "x@frage.edu", Password: "Bossman1!"}, wantTag: "pwdtoosim"},
		{name: "bad username", na: admin.NewAdmin{Username: "the boss", Email: "boss@frage.edu", Password: pwd}, wantTag: "alphanum_"},
		{name: "username taken", na: admin.NewAdmin{Username: " Taken ", Email: "boss@frage.edu", Password: pwd}, wantErr: admin.ErrUsernameExists},
		{name: "email taken", na: admin.NewAdmin{Username: "boss", Email: "TAKEN@frage.edu", Password: pwd}, wantErr: admin.ErrEmailExists},
		{name: "valid", na: admin.NewAdmin{Username: "Boss", Email: "Boss@Frage.edu", Password: pwd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(context.Background(), validate, svc)
			switch {
			case tt.wantTag != "":
				var vErrs validator.ValidationErrors
				require.True(t, errors.As(err, &vErrs), err)
				assert.Equal(t, tt.wantTag, vErrs[0].Tag())
			case tt.wantErr != nil:
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), err)
				assert.Equal(t, tt.wantErr, vErr.Err)
			default:
				require.NoError(t, err)
				assert.Equal(t, "boss", tt.na.Username)
				assert.Equal(t, "boss@frage.edu", tt.na.Email)
			}
		})
	}
}

func TestSignup(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	first, err := svc.Signup(ctx, admin.NewAdmin{Username: "boss", Email: "boss@frage.edu", Password: pwd})
	require.NoError(t, err)
	assert.Equal(t, admin.RoleSuperAdmin, first.Role)
	assert.True(t, first.IsActive)

	second, err := svc.Signup(ctx, admin.NewAdmin{Username: "clerk", Email: "clerk@frage.edu", Password: pwd})
	require.NoError(t, err)
	assert.Equal(t, admin.RoleStaff, second.Role)
	assert.Empty(t, second.AllowedBranches())
}

func TestAuthenticate(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()
	testutil.CreateAdmin(t, repo, "boss", "boss@frage.edu", pwd, admin.RoleSuperAdmin, nil, true)
	testutil.CreateAdmin(t, repo, "gone", "gone@frage.edu", pwd, admin.RoleStaff, nil, false)

	tests := []struct {
		name    string
		login   string
		pwd     string
		wantErr error
	}{
		{name: "unknown", login: "nobody", pwd: pwd, wantErr: admin.ErrInvalidCredentials},
		{name: "wrong password", login: "boss", pwd: "nope", wantErr: admin.ErrInvalidCredentials},
		{name: "disabled", login: "gone", pwd: pwd, wantErr: admin.ErrAccountDisabled},
		{name: "by username", login: " BOSS ", pwd: pwd},
		{name: "by email", login: "boss@frage.edu", pwd: pwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adm, err := svc.Authenticate(ctx, tt.login, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "boss", adm.Username)
			assert.False(t, adm.LastLogin.IsZero())
		})
	}
}

func TestUpdateRoles(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()

	super := testutil.CreateAdmin(t, repo, "boss", "boss@frage.edu", pwd, admin.RoleSuperAdmin, nil, true)
	adm := testutil.CreateAdmin(t, repo, "manager", "manager@frage.edu", pwd, admin.RoleAdmin, nil, true)
	kinder := testutil.CreateAdmin(t, repo, "kim", "kim@frage.edu", pwd, admin.RoleKinderAdmin, nil, true)
	staff := testutil.CreateAdmin(t, repo, "clerk", "clerk@frage.edu", pwd, admin.RoleStaff, nil, true)
	inactive := false

	tests := []struct {
		name    string
		actor   admin.Admin
		id      string
		ru      admin.RolesUpdate
		wantErr error
	}{
		{name: "no permission", actor: kinder, id: staff.ID, ru: admin.RolesUpdate{Role: admin.RoleStaff}, wantErr: admin.ErrPermissionDenied},
		{name: "self", actor: super, id: super.ID, ru: admin.RolesUpdate{Role: admin.RoleStaff}, wantErr: admin.ErrPermissionDenied},
		{name: "higher target", actor: adm, id: super.ID, ru: admin.RolesUpdate{Role: admin.RoleStaff}, wantErr: admin.ErrPermissionDenied},
		{name: "unknown target", actor: super, id: "nope", ru: admin.RolesUpdate{Role: admin.RoleStaff}, wantErr: admin.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateRoles(ctx, tt.actor, tt.id, tt.ru)
			assert.Equal(t, tt.wantErr, err)
		})
	}

	t.Run("role above the actor", func(t *testing.T) {
		_, err := svc.UpdateRoles(ctx, adm, staff.ID, admin.RolesUpdate{Role: admin.RoleSuperAdmin})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), err)
		assert.Equal(t, admin.ErrRoleTooHigh, vErr.Err)
	})

	t.Run("grant a branch scope", func(t *testing.T) {
		updated, err := svc.UpdateRoles(ctx, adm, staff.ID, admin.RolesUpdate{Role: admin.RoleStaff, Branches: []string{"middle"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"middle"}, updated.AllowedBranches())
		assert.True(t, updated.IsActive)
	})

	t.Run("branches are kept when omitted", func(t *testing.T) {
		updated, err := svc.UpdateRoles(ctx, super, staff.ID, admin.RolesUpdate{Role: admin.RoleStaff, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, []string{"middle"}, updated.Branches)
		assert.False(t, updated.IsActive)
	})
}

func TestAdmin_scope(t *testing.T) {
	tests := []struct {
		role         string
		branches     []string
		wantBranches []string
		canManage    bool
		canNews      bool
	}{
		{role: admin.RoleSuperAdmin, wantBranches: []string{"kinder", "junior", "middle", "kinder_single"}, canManage: true, canNews: true},
		{role: admin.RoleAdmin, wantBranches: []string{"kinder", "junior", "middle", "kinder_single"}, canManage: true, canNews: true},
		{role: admin.RoleKinderAdmin, branches: []string{"middle"}, wantBranches: []string{"kinder"}, canNews: true},
		{role: admin.RoleJuniorAdmin, wantBranches: []string{"junior", "kinder_single", "middle"}, canNews: true},
		{role: admin.RoleMiddleAdmin, wantBranches: []string{"middle"}, canNews: true},
		{role: admin.RoleStaff, branches: []string{"junior"}, wantBranches: []string{"junior"}},
		{role: admin.RoleStaff, wantBranches: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			adm := admin.Admin{Role: tt.role, Branches: tt.branches}
			assert.Equal(t, tt.wantBranches, adm.AllowedBranches())
			assert.Equal(t, tt.canManage, adm.Can(admin.PermManageAdmins))
			assert.Equal(t, tt.canNews, adm.Can(admin.PermManageNews))
			assert.Equal(t, tt.role == admin.RoleSuperAdmin, adm.IsSuper())
		})
	}

	assert.True(t, admin.RolePriority(admin.RoleSuperAdmin) > admin.RolePriority(admin.RoleAdmin))
	assert.True(t, admin.RolePriority(admin.RoleAdmin) > admin.RolePriority(admin.RoleJuniorAdmin))
	assert.True(t, admin.RolePriority(admin.RoleJuniorAdmin) > admin.RolePriority(admin.RoleStaff))
}
