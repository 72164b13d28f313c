package echoapi

import (
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/news"
	"github.com/amork0112-rgb/frageedu/core/session"
	"github.com/amork0112-rgb/frageedu/core/user"
	appfs "github.com/amork0112-rgb/frageedu/fs"
)

const pageTemplatesDir = "templates/web"

// checklistItems are the preparation tasks offered on the checklist page.
var checklistItems = []string{
	"학용품 준비 (연필, 지우개, 공책)",
	"실내화 구입",
	"체육복 준비",
	"개인 물병 준비",
	"건강검진 서류 제출",
	"예방접종 증명서 제출",
	"통학 방법 확정",
	"비상연락망 등록",
}

var statusLabels = map[admission.Status]string{
	admission.StatusPending:   "대기중",
	admission.StatusCompleted: "완료",
}

type (
	pageRenderer struct {
		pages map[string]*template.Template
	}

	// pageData is what every page template receives.
	pageData struct {
		AppName string
		Title   string
		Session *session.Session
		Token   string // household token carried by the portal links
		Error   string
		Data    interface{}
	}

	confirmData struct {
		Heading  string
		Message  string
		Redirect string
	}

	errorData struct {
		Code   int
		Detail string
	}

	dashboardData struct {
		User      user.User
		Admission admission.Admission
		Progress  admission.Progress
	}
)

var _ echo.Renderer = (*pageRenderer)(nil)

// newPageRenderer parses every embedded page together with the shared layout.
func newPageRenderer() (*pageRenderer, error) {
	funcs := template.FuncMap{
		"statusLabel": func(st admission.Status) string { return statusLabels[st] },
		"completed":   func(st admission.Status) bool { return st == admission.StatusCompleted },
		// rendered article markdown is trusted author content
		"trusted": func(s string) template.HTML { return template.HTML(s) },
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
	}

	entries, err := fs.ReadDir(appfs.FS, pageTemplatesDir)
	if err != nil {
		return nil, errors.Wrap(err, "reading page templates dir")
	}
	r := &pageRenderer{pages: make(map[string]*template.Template)}
	base := path.Join(pageTemplatesDir, "_base.gohtml")
	for _, de := range entries {
		fname := de.Name()
		if de.IsDir() || strings.HasPrefix(fname, "_") || path.Ext(fname) != ".gohtml" {
			continue
		}
		tmpl, err := template.New(fname).Funcs(funcs).ParseFS(appfs.FS, base, path.Join(pageTemplatesDir, fname))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fname)
		}
		r.pages[strings.TrimSuffix(fname, ".gohtml")] = tmpl
	}
	return r, nil
}

func (r *pageRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("page template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// isPageRequest reports whether errors of this request should render an HTML page.
func isPageRequest(ctx echo.Context) bool {
	return !strings.HasPrefix(ctx.Request().URL.Path, "/api")
}

func (s *server) renderError(ctx echo.Context, code int, detail string) error {
	return s.render(ctx, code, "error", "", errorData{Code: code, Detail: detail})
}

func (s *server) render(ctx echo.Context, code int, name, token string, data interface{}, formErr ...string) error {
	pd := pageData{
		AppName: s.Conf.AppName,
		Session: getContextSession(ctx),
		Token:   token,
		Data:    data,
	}
	if len(formErr) > 0 {
		pd.Error = formErr[0]
	}
	return ctx.Render(code, name, pd)
}

// confirm renders the success page that sends the parent back to the dashboard.
func (s *server) confirm(ctx echo.Context, token, heading string) error {
	return s.render(ctx, http.StatusOK, "confirm", token, confirmData{
		Heading:  heading,
		Message:  "잠시 후 대시보드로 이동합니다.",
		Redirect: "/dashboard?id=" + token,
	})
}

func (s *server) registerWeb() {
	if dir := s.mediaDir(); dir != "" && strings.HasPrefix(s.Conf.Media.BaseURL, "/") {
		s.app.Static(s.Conf.Media.BaseURL, dir)
	}

	// route-level middleware; an empty-prefix group would swallow unmatched /api paths
	opt := s.optionalSession
	s.app.GET("/", s.homePage, opt)
	s.app.GET("/login", s.loginPage, opt)
	s.app.POST("/login", s.loginSubmit, opt)
	s.app.GET("/signup", s.signupPage, opt)
	s.app.POST("/signup", s.signupSubmit, opt)
	s.app.GET("/logout", s.logout)

	s.app.GET("/entrance/step", s.stepPage, opt)
	s.app.GET("/news", s.newsPage, opt)
	s.app.GET("/news/:id", s.articlePage, opt)
	s.app.GET("/exam/reserve", s.examReservePage, opt)

	gate := s.householdGate
	s.app.GET("/dashboard", s.dashboardPage, opt, gate)
	s.app.GET("/consent", s.consentPage, opt, gate)
	s.app.POST("/consent", s.consentSubmit, opt, gate)
	s.app.GET("/forms", s.formsPage, opt, gate)
	s.app.POST("/forms", s.formsSubmit, opt, gate)
	s.app.GET("/guide", s.guidePage, opt, gate)
	s.app.POST("/guide", s.guideSubmit, opt, gate)
	s.app.GET("/checklist", s.checklistPage, opt, gate)
	s.app.POST("/checklist", s.checklistSubmit, opt, gate)
}

func (s *server) setSessionCookie(ctx echo.Context, token string, maxAge int) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !(s.Conf.Debug || s.Conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	})
}

// Pages

func (s *server) homePage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "home", "", nil)
}

func (s *server) loginPage(ctx echo.Context) error {
	if getContextSession(ctx).IsParent() {
		return ctx.Redirect(http.StatusFound, "/dashboard")
	}
	return s.render(ctx, http.StatusOK, "login", "", LoginRequest{})
}

func (s *server) loginSubmit(ctx echo.Context) error {
	data := LoginRequest{Email: ctx.FormValue("email"), Password: ctx.FormValue("password")}
	if err := data.Validate(s.Validate); err != nil {
		return s.render(ctx, http.StatusBadRequest, "login", "", data, "이메일과 비밀번호를 입력해 주세요.")
	}

	usr, token, err := s.authenticateParent(ctx, data)
	if err != nil {
		code, body := s.errorResponse(err, ctx)
		if code == http.StatusInternalServerError {
			return err
		}
		data.Password = ""
		return s.render(ctx, code, "login", "", data, body.Detail)
	}
	s.setSessionCookie(ctx, token, int(s.Conf.Server.JWTExpirationDelta/time.Second))
	return ctx.Redirect(http.StatusSeeOther, "/dashboard?id="+usr.HouseholdToken)
}

func (s *server) signupPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "signup", "", user.NewUser{})
}

func (s *server) signupSubmit(ctx echo.Context) error {
	data := user.NewUser{
		Email:         ctx.FormValue("email"),
		Phone:         ctx.FormValue("phone"),
		ParentName:    ctx.FormValue("parent_name"),
		StudentName:   ctx.FormValue("student_name"),
		Branch:        ctx.FormValue("branch"),
		Password:      ctx.FormValue("password"),
		TermsAccepted: ctx.FormValue("terms_accepted") != "",
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.Validate, s.UserSvc); err != nil {
		code, body := s.errorResponse(err, ctx)
		if code == http.StatusInternalServerError {
			return err
		}
		data.Password = ""
		return s.render(ctx, code, "signup", "", data, body.Detail)
	}

	usr, err := s.UserSvc.Signup(rctx, data)
	if err != nil {
		return errors.Wrap(err, "signing user up")
	}
	token, err := s.tokens.GenerateToken(s.tokens.ParentClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	s.setSessionCookie(ctx, token, int(s.Conf.Server.JWTExpirationDelta/time.Second))
	return ctx.Redirect(http.StatusSeeOther, "/dashboard?id="+usr.HouseholdToken)
}

func (s *server) logout(ctx echo.Context) error {
	s.setSessionCookie(ctx, "", -1)
	return ctx.Redirect(http.StatusFound, "/")
}

func (s *server) stepPage(ctx echo.Context) error {
	st := stepperFromQuery(ctx)
	return s.render(ctx, http.StatusOK, "step", st.Token, st)
}

func (s *server) newsPage(ctx echo.Context) error {
	var filter news.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to news.QueryFilter")
	}
	sums, page, err := s.NewsSvc.PublicQuery(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying news")
	}
	return s.render(ctx, http.StatusOK, "news", "", struct {
		Articles   []news.Summary
		Pagination core.Page
	}{sums, page})
}

func (s *server) articlePage(ctx echo.Context) error {
	detail, err := s.NewsSvc.PublicGet(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return s.render(ctx, http.StatusOK, "article", "", detail)
}

func (s *server) examReservePage(ctx echo.Context) error {
	u, err := s.reservationURL(ctx, strings.TrimSpace(ctx.QueryParam("id")), ctx.QueryParam("brchType"))
	if err == errNoHousehold {
		return ctx.Redirect(http.StatusFound, "/login")
	}
	if err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, u)
}

func (s *server) dashboardPage(ctx echo.Context) error {
	token := household(ctx)
	rctx := ctx.Request().Context()
	usr, err := s.UserSvc.GetByHousehold(rctx, token)
	if err != nil {
		return err
	}
	adm, err := s.AdmissionSvc.Get(rctx, token)
	if err != nil {
		return err
	}
	return s.render(ctx, http.StatusOK, "dashboard", token, dashboardData{
		User:      usr,
		Admission: adm,
		Progress:  adm.Progress(),
	})
}

func (s *server) consentPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "consent", household(ctx), nil)
}

func checked(ctx echo.Context, name string) *bool {
	v := ctx.FormValue(name) != ""
	return &v
}

func (s *server) consentSubmit(ctx echo.Context) error {
	token := household(ctx)
	signature := ctx.FormValue("parent_signature")
	studentName := ctx.FormValue("student_name")
	now := time.Now().UTC()
	data := admission.ConsentUpdate{
		RegulationAgreed: checked(ctx, "regulation_agreed"),
		PrivacyAgreed:    checked(ctx, "privacy_agreed"),
		PhotoConsent:     checked(ctx, "photo_consent"),
		MedicalConsent:   checked(ctx, "medical_consent"),
		ParentSignature:  &signature,
		StudentName:      &studentName,
		SignedAt:         &now,
	}
	if !*data.RegulationAgreed || !*data.PrivacyAgreed {
		return s.render(ctx, http.StatusBadRequest, "consent", token, nil, "필수 항목에 동의해 주세요.")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	if err := s.AdmissionSvc.UpdateConsent(ctx.Request().Context(), token, data); err != nil {
		return err
	}
	return s.confirm(ctx, token, "동의 완료!")
}

func (s *server) formsPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "forms", household(ctx), admission.FormsUpdate{})
}

func (s *server) formsSubmit(ctx echo.Context) error {
	token := household(ctx)
	data := admission.FormsUpdate{
		StudentName:        ctx.FormValue("student_name"),
		BirthDate:          ctx.FormValue("birth_date"),
		ParentName:         ctx.FormValue("parent_name"),
		EmergencyContact:   ctx.FormValue("emergency_contact"),
		Allergies:          ctx.FormValue("allergies"),
		MilkProgram:        checked(ctx, "milk_program"),
		AfterschoolProgram: ctx.FormValue("afterschool_program"),
	}
	if err := data.Validate(s.Validate); err != nil {
		code, body := s.errorResponse(err, ctx)
		if code == http.StatusInternalServerError {
			return err
		}
		return s.render(ctx, code, "forms", token, data, body.Detail)
	}
	if err := s.AdmissionSvc.UpdateForms(ctx.Request().Context(), token, data); err != nil {
		return err
	}
	return s.confirm(ctx, token, "신청서 제출 완료!")
}

func (s *server) guidePage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "guide", household(ctx), nil)
}

func (s *server) guideSubmit(ctx echo.Context) error {
	token := household(ctx)
	if err := s.AdmissionSvc.MarkGuidesViewed(ctx.Request().Context(), token); err != nil {
		return err
	}
	return s.confirm(ctx, token, "안내사항 확인 완료!")
}

func (s *server) checklistPage(ctx echo.Context) error {
	return s.render(ctx, http.StatusOK, "checklist", household(ctx), checklistItems)
}

func (s *server) checklistSubmit(ctx echo.Context) error {
	token := household(ctx)
	form, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "parsing form")
	}
	done := form["item"]
	items := make([]map[string]interface{}, 0, len(checklistItems))
	for i, text := range checklistItems {
		items = append(items, map[string]interface{}{
			"id":      i + 1,
			"text":    text,
			"checked": core.StringInSlice(text, done),
		})
	}

	data := admission.ChecklistUpdate{Items: items}
	if err = data.Validate(s.Validate); err != nil {
		return err
	}
	if err = s.AdmissionSvc.UpdateChecklist(ctx.Request().Context(), token, data); err != nil {
		return err
	}
	return s.confirm(ctx, token, "체크리스트 저장 완료!")
}
