package echoapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/admission"
)

func (app *testApp) getPage(path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	app.serve(req, rec)
	return rec
}

func sessionCookieOf(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", sessionCookie)
	return nil
}

func TestPublicPages(t *testing.T) {
	app := setup(t)

	for _, path := range []string{"/", "/login", "/signup", "/news", "/entrance/step?brchType=junior"} {
		t.Run(path, func(t *testing.T) {
			rec := app.getPage(path, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/html"))
			assert.Contains(t, rec.Body.String(), "Frage EDU")
		})
	}
}

func TestHouseholdGate(t *testing.T) {
	app := setup(t)

	for _, path := range []string{"/dashboard", "/consent", "/forms", "/guide", "/checklist"} {
		t.Run(path, func(t *testing.T) {
			rec := app.getPage(path, "")
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
		})
	}

	t.Run("an admin session is not a household", func(t *testing.T) {
		adm := app.createAdmin(t, "boss", admin.RoleSuperAdmin)
		rec := app.getPage("/dashboard", app.adminToken(t, adm))
		assert.Equal(t, http.StatusFound, rec.Code)
	})
}

func TestDashboardPage(t *testing.T) {
	app := setup(t)
	usr := app.createParent(t, "parent@frage.edu", "kinder")

	t.Run("household link", func(t *testing.T) {
		rec := app.getPage("/dashboard?id="+usr.HouseholdToken, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := rec.Body.String()
		assert.Equal(t, 4, strings.Count(body, "대기중"))
		assert.Contains(t, body, "0 / 4")
		assert.Contains(t, body, usr.StudentName)
		assert.Contains(t, body, "/consent?id="+usr.HouseholdToken)
	})

	t.Run("session cookie", func(t *testing.T) {
		rec := app.getPage("/dashboard", app.parentToken(t, usr))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "/logout")
	})

	t.Run("unknown household", func(t *testing.T) {
		rec := app.getPage("/dashboard?id=00000000-0000-0000-0000-000000000000", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "<h1>404</h1>")
	})
}

func TestLoginPage(t *testing.T) {
	app := setup(t)
	usr := app.createParent(t, "parent@frage.edu", "junior")

	t.Run("wrong password", func(t *testing.T) {
		req, rec := newFormRequest(http.MethodPost, "/login",
			url.Values{"email": {"parent@frage.edu"}, "password": {"nope"}}, "")
		app.serve(req, rec)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Invalid credentials")
		assert.Contains(t, body, `value="parent@frage.edu"`)
	})

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newFormRequest(http.MethodPost, "/login", url.Values{}, "")
		app.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newFormRequest(http.MethodPost, "/login",
			url.Values{"email": {"Parent@Frage.edu"}, "password": {parentPwd}}, "")
		app.serve(req, rec)
		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
		assert.Equal(t, "/dashboard?id="+usr.HouseholdToken, rec.Header().Get("Location"))

		cookie := sessionCookieOf(t, rec)
		assert.True(t, cookie.HttpOnly)
		assert.NotEmpty(t, cookie.Value)

		// logged-in parents skip the login page
		rec = app.getPage("/login", cookie.Value)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

		rec = app.getPage("/dashboard", cookie.Value)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("logout", func(t *testing.T) {
		rec := app.getPage("/logout", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.True(t, sessionCookieOf(t, rec).MaxAge < 0)
	})
}

func TestSignupPage(t *testing.T) {
	app := setup(t)

	form := url.Values{
		"email":        {"new@frage.edu"},
		"phone":        {"010-5555-1234"},
		"parent_name":  {"김부모"},
		"student_name": {"김학생"},
		"branch":       {"middle"},
		"password":     {parentPwd},
	}

	t.Run("terms not accepted", func(t *testing.T) {
		req, rec := newFormRequest(http.MethodPost, "/signup", form, "")
		app.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Terms must be accepted")
	})

	t.Run("success", func(t *testing.T) {
		form.Set("terms_accepted", "on")
		req, rec := newFormRequest(http.MethodPost, "/signup", form, "")
		app.serve(req, rec)
		require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
		assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/dashboard?id="))
		sessionCookieOf(t, rec)

		usr, err := app.UserSvc.GetByEmail(context.Background(), "new@frage.edu")
		require.NoError(t, err)
		assert.Equal(t, "middle", usr.Branch)
		_, err = app.AdmissionSvc.Get(context.Background(), usr.HouseholdToken)
		assert.NoError(t, err)
	})
}

func TestAdmissionPages(t *testing.T) {
	app := setup(t)
	usr := app.createParent(t, "parent@frage.edu", "kinder")
	token := usr.HouseholdToken
	ctx := context.Background()

	post := func(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
		req, rec := newFormRequest(http.MethodPost, path+"?id="+token, form, "")
		app.serve(req, rec)
		return rec
	}
	assertConfirmed := func(t *testing.T, rec *httptest.ResponseRecorder, heading string) {
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := rec.Body.String()
		assert.Contains(t, body, heading)
		assert.Contains(t, body, "/dashboard?id="+token)
	}

	t.Run("consent requires the mandatory boxes", func(t *testing.T) {
		rec := post(t, "/consent", url.Values{"regulation_agreed": {"on"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "필수 항목에 동의해 주세요.")
	})

	t.Run("consent", func(t *testing.T) {
		rec := post(t, "/consent", url.Values{
			"regulation_agreed": {"on"},
			"privacy_agreed":    {"on"},
			"parent_signature":  {"김부모"},
			"student_name":      {"김학생"},
		})
		assertConfirmed(t, rec, "동의 완료!")

		adm, err := app.AdmissionSvc.Get(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusCompleted, adm.ConsentStatus)
	})

	t.Run("guide", func(t *testing.T) {
		assertConfirmed(t, post(t, "/guide", url.Values{}), "안내사항 확인 완료!")

		adm, err := app.AdmissionSvc.Get(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusCompleted, adm.GuidesStatus)
	})

	t.Run("checklist", func(t *testing.T) {
		rec := app.getPage("/checklist?id="+token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		for _, item := range checklistItems {
			assert.Contains(t, rec.Body.String(), item)
		}

		assertConfirmed(t, post(t, "/checklist", url.Values{"item": checklistItems[:2]}), "체크리스트 저장 완료!")

		adm, err := app.AdmissionSvc.Get(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusCompleted, adm.ChecklistStatus)
	})

	t.Run("dashboard reflects progress", func(t *testing.T) {
		rec := app.getPage("/dashboard?id="+token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Equal(t, 1, strings.Count(body, "대기중"))
		assert.Contains(t, body, "3 / 4")
	})
}

func TestPageErrors(t *testing.T) {
	app := setup(t)

	t.Run("html for pages", func(t *testing.T) {
		rec := app.getPage("/no-such-page", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/html"))
		assert.Contains(t, rec.Body.String(), "<h1>404</h1>")
	})

	t.Run("json for the api", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/no-such-endpoint")
		app.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "application/json"))
	})

	t.Run("unpublished article", func(t *testing.T) {
		rec := app.getPage("/news/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Article not found")
	})

	t.Run("exam reservation needs a household", func(t *testing.T) {
		rec := app.getPage("/exam/reserve?brchType=junior", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})
}
