package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/amork0112-rgb/frageedu/apps/api/echo"
	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/audit"
	"github.com/amork0112-rgb/frageedu/core/news"
	"github.com/amork0112-rgb/frageedu/core/user"
	emailsvc "github.com/amork0112-rgb/frageedu/services/email"
	mediasvc "github.com/amork0112-rgb/frageedu/services/media"
	throttlesvc "github.com/amork0112-rgb/frageedu/services/throttle"
	inmemdb "github.com/amork0112-rgb/frageedu/storage/database/inmem"
	testutil "github.com/amork0112-rgb/frageedu/tests"
)

type testEnv struct {
	client  *Client
	newsSvc news.Service
}

func setup(t *testing.T) testEnv {
	conf := core.NewTestConfig()
	conf.Media.Dir = t.TempDir()

	db := inmemdb.Open()
	tx := inmemdb.NewTransactor()
	logger := testutil.NewLogger(t, conf)
	validate, translator := testutil.NewValidator()

	admissionSvc := admission.NewService(inmemdb.NewAdmissionRepository(db))
	newsSvc := news.NewService(inmemdb.NewNewsRepository(db), conf)
	media, err := mediasvc.NewLocalStore(conf)
	require.NoError(t, err)

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		UserSvc:      user.NewServiceMock(inmemdb.NewUserRepository(db), admissionSvc, tx, emailsvc.NewConsoleServiceMock(conf), logger, conf),
		AdmissionSvc: admissionSvc,
		AdminSvc:     admin.NewService(inmemdb.NewAdminRepository(db), tx),
		NewsSvc:      newsSvc,
		AuditSvc:     audit.NewService(inmemdb.NewAuditRepository(db)),
		Limiter:      throttlesvc.NewMemoryLimiter(conf),
		Media:        media,
		Validate:     validate,
		Translator:   translator,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return testEnv{client: New(ts.URL + "/api"), newsSvc: newsSvc}
}

func boolPtr(b bool) *bool { return &b }

func TestClient_auth(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	nu := user.NewUser{
		Email:         "parent@frage.edu",
		Phone:         "010-1234-5678",
		ParentName:    "김부모",
		StudentName:   "김학생",
		Branch:        "junior",
		Password:      "pa55word",
		TermsAccepted: true,
	}
	signedUp, err := env.client.Signup(ctx, nu)
	require.NoError(t, err)
	assert.Equal(t, "User created successfully", signedUp.Message)
	assert.NotEmpty(t, signedUp.Token)
	assert.Equal(t, signedUp.User.HouseholdToken, signedUp.HouseholdToken)

	t.Run("duplicate signup", func(t *testing.T) {
		_, err := env.client.Signup(ctx, nu)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), err)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.NotEmpty(t, apiErr.Detail)
	})

	t.Run("bad credentials", func(t *testing.T) {
		_, err := env.client.Login(ctx, nu.Email, "nope")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), err)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Invalid credentials", apiErr.Detail)
	})

	t.Run("profile needs a token", func(t *testing.T) {
		_, err := env.client.Profile(ctx)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), err)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Not authenticated", apiErr.Detail)
	})

	t.Run("login then profile", func(t *testing.T) {
		resp, err := env.client.Login(ctx, "Parent@Frage.edu", nu.Password)
		require.NoError(t, err)

		usr, err := env.client.WithToken(resp.Token).Profile(ctx)
		require.NoError(t, err)
		assert.Equal(t, nu.Email, usr.Email)
		assert.Equal(t, "junior", usr.Branch)
	})
}

func TestClient_admission(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	resp, err := env.client.Signup(ctx, user.NewUser{
		Email:         "parent@frage.edu",
		Phone:         "010-1234-5678",
		ParentName:    "김부모",
		StudentName:   "김학생",
		Password:      "pa55word",
		TermsAccepted: true,
	})
	require.NoError(t, err)
	token := resp.HouseholdToken

	adm, err := env.client.Admission(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 0, adm.Progress.Completed)

	require.NoError(t, env.client.UpdateConsent(ctx, token, admission.ConsentUpdate{
		RegulationAgreed: boolPtr(true),
		PrivacyAgreed:    boolPtr(true),
		PhotoConsent:     boolPtr(false),
		MedicalConsent:   boolPtr(true),
	}))
	require.NoError(t, env.client.UpdateGuides(ctx, token))
	require.NoError(t, env.client.UpdateChecklist(ctx, token, admission.ChecklistUpdate{
		Items: []map[string]interface{}{{"id": "uniform", "checked": true}},
	}))

	t.Run("invalid forms", func(t *testing.T) {
		err := env.client.UpdateForms(ctx, token, admission.FormsUpdate{StudentName: "김학생"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), err)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "this field is required", apiErr.Fields["birth_date"])
	})

	adm, err = env.client.Admission(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, admission.StatusCompleted, adm.ConsentStatus)
	assert.Equal(t, admission.StatusPending, adm.FormsStatus)
	assert.Equal(t, 3, adm.Progress.Completed)

	t.Run("unknown household", func(t *testing.T) {
		_, err := env.client.Admission(ctx, "00000000-0000-0000-0000-000000000000")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), err)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}

func TestClient_news(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.newsSvc.Create(ctx, "", news.ArticleInput{Title: "Open House", Slug: "open-house", Content: "**Welcome**", Published: true})
	require.NoError(t, err)
	_, err = env.newsSvc.Create(ctx, "", news.ArticleInput{Title: "Draft", Content: "soon"})
	require.NoError(t, err)

	page, err := env.client.News(ctx, news.QueryFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Articles, 1)
	assert.Equal(t, "open-house", page.Articles[0].Slug)
	assert.Equal(t, 1, page.Pagination.Total)

	detail, err := env.client.Article(ctx, "open-house")
	require.NoError(t, err)
	assert.Equal(t, "<strong>Welcome</strong>", detail.ContentHTML)

	_, err = env.client.Article(ctx, "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, "Article not found", apiErr.Detail)
}

func TestAPIError_fallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	}))
	defer ts.Close()

	_, err := New(ts.URL).Profile(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Detail)
	assert.Equal(t, "502: Bad Gateway", apiErr.Error())
}

func TestClient_requestShape(t *testing.T) {
	var got *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"articles": [], "pagination": {"page": 2, "pageSize": 5, "total": 0}}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL).WithToken("tkn").News(context.Background(), news.QueryFilter{Page: 2, Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/news", got.URL.Path)
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "5", got.URL.Query().Get("limit"))
	assert.Equal(t, "Bearer tkn", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
}

func TestClient_canceledContext(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(ts.URL).Profile(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), err)
	assert.False(t, called)
}
