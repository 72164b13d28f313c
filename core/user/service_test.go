package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/user"
	emailsvc "github.com/amork0112-rgb/frageedu/services/email"
	inmemdb "github.com/amork0112-rgb/frageedu/storage/database/inmem"
	testutil "github.com/amork0112-rgb/frageedu/tests"
)

const pwd = "pa55word"

type testEnv struct {
	svc    user.Service
	repo   user.Repository
	admSvc admission.Service
}

func setup(t *testing.T) testEnv {
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	repo := inmemdb.NewUserRepository(db)
	admSvc := admission.NewService(inmemdb.NewAdmissionRepository(db))
	emailsvc.ResetSentMessages()

	svc := user.NewServiceMock(repo, admSvc, inmemdb.NewTransactor(), emailsvc.NewConsoleServiceMock(conf), testutil.NewLogger(t, conf), conf)
	return testEnv{svc: svc, repo: repo, admSvc: admSvc}
}

func newUser(email string) user.NewUser {
	return user.NewUser{
		Email:         email,
		Phone:         "010-1234-5678",
		ParentName:    "김부모",
		StudentName:   "김학생",
		Branch:        "kinder",
		Password:      pwd,
		TermsAccepted: true,
	}
}

func TestNewUser_Validate(t *testing.T) {
	env := setup(t)
	validate, translator := testutil.NewValidator()
	testutil.CreateUser(t, env.repo, "taken@frage.edu", pwd, "kinder", user.StatusActive)
	ctx := context.Background()

	t.Run("cleans and accepts", func(t *testing.T) {
		nu := newUser("  New@Frage.EDU ")
		nu.ParentName = "  김부모  "
		require.NoError(t, nu.Validate(ctx, validate, env.svc))
		assert.Equal(t, "new@frage.edu", nu.Email)
		assert.Equal(t, "김부모", nu.ParentName)
	})

	t.Run("terms", func(t *testing.T) {
		nu := newUser("new@frage.edu")
		nu.TermsAccepted = false
		var vErr *core.ValidationError
		require.True(t, errors.As(nu.Validate(ctx, validate, env.svc), &vErr))
		assert.Equal(t, user.ErrTermsRequired, vErr.Err)
	})

	t.Run("email taken", func(t *testing.T) {
		nu := newUser("TAKEN@frage.edu")
		var vErr *core.ValidationError
		require.True(t, errors.As(nu.Validate(ctx, validate, env.svc), &vErr))
		assert.Equal(t, user.ErrEmailExists, vErr.Err)
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "email", vErr.Fields[0].Field)
	})

	t.Run("bad fields", func(t *testing.T) {
		nu := newUser("not-an-email")
		nu.Phone = "call me"
		nu.Branch = "college"
		nu.StudentName = " "

		var vErrs validator.ValidationErrors
		require.True(t, errors.As(nu.Validate(ctx, validate, env.svc), &vErrs))
		got := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			got[fe.Field()] = fe.Translate(translator)
		}
		assert.Equal(t, "invalid phone number", got["phone"])
		assert.Equal(t, "invalid branch", got["branch"])
		assert.Equal(t, "this field is required", got["student_name"])
		assert.Contains(t, got, "email")
	})
}

func TestSignup(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr, err := env.svc.Signup(ctx, newUser("parent@frage.edu"))
	require.NoError(t, err)
	assert.Equal(t, user.StatusActive, usr.Status)
	assert.NotEmpty(t, usr.HouseholdToken)
	assert.NoError(t, usr.CheckPassword(pwd))

	adm, err := env.admSvc.Get(ctx, usr.HouseholdToken)
	require.NoError(t, err)
	assert.Equal(t, 0, adm.Progress().Completed)

	byHousehold, err := env.svc.GetByHousehold(ctx, usr.HouseholdToken)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, byHousehold.ID)
}

func TestAuthenticate(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.repo, "parent@frage.edu", pwd, "junior", user.StatusActive)
	testutil.CreateUser(t, env.repo, "gone@frage.edu", pwd, "junior", user.StatusDisabled)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown", email: "nobody@frage.edu", pwd: pwd, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: "parent@frage.edu", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "disabled", email: "gone@frage.edu", pwd: pwd, wantErr: user.ErrAccountDisabled},
		{name: "ok", email: " Parent@Frage.edu ", pwd: pwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := env.svc.Authenticate(context.Background(), tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

func TestPasswordReset(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.repo, "parent@frage.edu", pwd, "junior", user.StatusActive)

	require.NoError(t, env.svc.RequestPasswordReset(ctx, usr.Email))
	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, usr.Email, msg.To[0].Address)
	uid := user.EncodeUID(usr)
	assert.Contains(t, msg.TextContent, uid)

	token := msg.TemplateData.(map[string]string)["Token"]
	require.NotEmpty(t, token)

	t.Run("bad token", func(t *testing.T) {
		err := env.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "nope", Password: "n3w", PasswordConfirm: "n3w"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, user.ErrInvalidResetToken, vErr.Err)
	})

	t.Run("bad uid", func(t *testing.T) {
		err := env.svc.ResetPassword(ctx, user.ResetUserPassword{UID: "%%%", Token: token, Password: "n3w", PasswordConfirm: "n3w"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
	})

	t.Run("ok", func(t *testing.T) {
		require.NoError(t, env.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "n3w", PasswordConfirm: "n3w"}))
		_, err := env.svc.Authenticate(ctx, usr.Email, "n3w")
		assert.NoError(t, err)
	})

	t.Run("token is single use", func(t *testing.T) {
		err := env.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "again", PasswordConfirm: "again"})
		assert.Error(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		assert.True(t, core.IsNotFound(env.svc.RequestPasswordReset(ctx, "nobody@frage.edu")))
	})
}

func TestQuery(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.repo, "a@frage.edu", pwd, "kinder", user.StatusActive)
	testutil.CreateUser(t, env.repo, "b@frage.edu", pwd, "junior", user.StatusDisabled)
	testutil.CreateUser(t, env.repo, "c@frage.edu", pwd, "middle", user.StatusActive)

	emails := func(users []user.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Email)
		}
		return out
	}

	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []string
	}{
		{name: "all", filter: user.QueryFilter{Sort: "email:asc"}, want: []string{"a@frage.edu", "b@frage.edu", "c@frage.edu"}},
		{name: "descending", filter: user.QueryFilter{Sort: "email:desc"}, want: []string{"c@frage.edu", "b@frage.edu", "a@frage.edu"}},
		{name: "status", filter: user.QueryFilter{Status: " Disabled "}, want: []string{"b@frage.edu"}},
		{name: "branch", filter: user.QueryFilter{Branch: "middle"}, want: []string{"c@frage.edu"}},
		{name: "scope", filter: user.QueryFilter{Branches: []string{"kinder", "junior"}, Sort: "email"}, want: []string{"a@frage.edu", "b@frage.edu"}},
		{name: "empty scope", filter: user.QueryFilter{Branches: []string{}}, want: []string{}},
		{name: "search", filter: user.QueryFilter{Query: "Student C@"}, want: []string{"c@frage.edu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, page, err := env.svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, emails(users))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}

	t.Run("paging", func(t *testing.T) {
		users, page, err := env.svc.Query(ctx, user.QueryFilter{Sort: "email", Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"c@frage.edu"}, emails(users))
		assert.Equal(t, core.Page{Page: 2, PageSize: 2, Total: 3}, page)
	})
}

func TestMemberAdministration(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	active := testutil.CreateUser(t, env.repo, "a@frage.edu", pwd, "kinder", user.StatusActive)
	disabled := testutil.CreateUser(t, env.repo, "b@frage.edu", pwd, "junior", user.StatusDisabled)
	_, err := env.admSvc.Open(ctx, active.HouseholdToken)
	require.NoError(t, err)

	t.Run("detail", func(t *testing.T) {
		detail, err := env.svc.Detail(ctx, active.ID)
		require.NoError(t, err)
		assert.Equal(t, active.Email, detail.Parent.Email)
		require.Len(t, detail.Students, 1)
		adm, ok := detail.Students[0].Admission.(admission.Admission)
		require.True(t, ok)
		assert.Equal(t, active.HouseholdToken, adm.HouseholdToken)

		// no admission record yet
		detail, err = env.svc.Detail(ctx, disabled.ID)
		require.NoError(t, err)
		assert.Nil(t, detail.Students[0].Admission)

		_, err = env.svc.Detail(ctx, "nope")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("temporary password", func(t *testing.T) {
		usr, tmp, err := env.svc.ResetToTemporaryPassword(ctx, active.ID)
		require.NoError(t, err)
		assert.Len(t, tmp, 12)
		assert.NoError(t, usr.CheckPassword(tmp))
		assert.Error(t, usr.CheckPassword(pwd))

		msg, ok := emailsvc.LastSentMessage()
		require.True(t, ok)
		assert.Contains(t, msg.TextContent, tmp)
	})

	t.Run("status", func(t *testing.T) {
		usr, err := env.svc.SetStatus(ctx, disabled.ID, user.StatusActive)
		require.NoError(t, err)
		assert.True(t, usr.IsActive())
		usr, err = env.svc.SetStatus(ctx, disabled.ID, user.StatusDisabled)
		require.NoError(t, err)
		assert.False(t, usr.IsActive())
	})

	t.Run("export", func(t *testing.T) {
		out, err := env.svc.ExportCSV(ctx, []string{active.ID, disabled.ID, "unknown"})
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "id,email,phone,parent_name"))
	})

	t.Run("notify skips disabled members", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		sent, err := env.svc.Notify(ctx, []string{active.ID, disabled.ID}, "Open house on Friday")
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		msg, ok := emailsvc.LastSentMessage()
		require.True(t, ok)
		assert.Equal(t, active.Email, msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "Open house on Friday")
	})
}
