package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/entrance"
	"github.com/amork0112-rgb/frageedu/core/exam"
	"github.com/amork0112-rgb/frageedu/core/session"
)

// AdmissionResponse is the status snapshot plus the derived progress.
type AdmissionResponse struct {
	admission.Admission
	Progress admission.Progress `json:"progress"`
}

func (s *server) registerAdmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ag := g.Group("/admission")
	ag.GET("/steps", s.admissionSteps)

	// the household token in the path is the credential (shareable links)
	tg := ag.Group("/:token")
	tg.GET("", s.admissionStatus)
	tg.PUT("/consent", s.updateConsent)
	tg.PUT("/forms", s.updateForms)
	tg.PUT("/guides", s.markGuidesViewed)
	tg.PUT("/checklist", s.updateChecklist)

	g.POST("/exam/reserve", s.reserveExam, s.optionalSession)
}

// stepperFromQuery reads brchType, flowType, step and the household id the way the portal links them.
func stepperFromQuery(ctx echo.Context) entrance.Stepper {
	token := ctx.QueryParam("id")
	if token == "" {
		token = ctx.QueryParam("token")
	}
	branch := entrance.ParseBranch(core.CleanString(ctx.QueryParam("brchType"), true /* lower */))
	flow := entrance.ParseFlow(core.CleanString(ctx.QueryParam("flowType"), true /* lower */))
	current, err := strconv.Atoi(ctx.QueryParam("step"))
	if err != nil {
		current = 1
	}
	return entrance.NewStepper(branch, flow, current, strings.TrimSpace(token))
}

func (s *server) admissionSteps(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, stepperFromQuery(ctx))
}

func (s *server) admissionStatus(ctx echo.Context) error {
	adm, err := s.AdmissionSvc.Get(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AdmissionResponse{Admission: adm, Progress: adm.Progress()})
}

func (s *server) updateConsent(ctx echo.Context) error {
	var data admission.ConsentUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConsentUpdate")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	if err := s.AdmissionSvc.UpdateConsent(ctx.Request().Context(), ctx.Param("token"), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Consent updated successfully"})
}

func (s *server) updateForms(ctx echo.Context) error {
	var data admission.FormsUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FormsUpdate")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	if err := s.AdmissionSvc.UpdateForms(ctx.Request().Context(), ctx.Param("token"), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Forms updated successfully"})
}

func (s *server) markGuidesViewed(ctx echo.Context) error {
	if err := s.AdmissionSvc.MarkGuidesViewed(ctx.Request().Context(), ctx.Param("token")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Guides marked as viewed"})
}

func (s *server) updateChecklist(ctx echo.Context) error {
	var data admission.ChecklistUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChecklistUpdate")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	if err := s.AdmissionSvc.UpdateChecklist(ctx.Request().Context(), ctx.Param("token"), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Checklist updated successfully"})
}

// reservationURL resolves the household (link token first, session second) and prefills the exam form.
func (s *server) reservationURL(ctx echo.Context, urlToken, branch string) (string, error) {
	token, err := session.HouseholdFor(urlToken, getContextSession(ctx))
	if err != nil {
		return "", errNoHousehold
	}
	usr, err := s.UserSvc.GetByHousehold(ctx.Request().Context(), token)
	if err != nil {
		return "", err
	}

	brch := entrance.BranchType(core.CleanString(branch, true /* lower */))
	if brch == "" {
		brch = entrance.BranchType(usr.Branch)
	}
	return exam.ReservationURL(s.Conf.Exam, exam.Applicant{
		Name:  usr.StudentName,
		Email: usr.Email,
		Phone: usr.Phone,
		Token: usr.HouseholdToken,
	}, brch)
}

func (s *server) reserveExam(ctx echo.Context) error {
	var data struct {
		ID     string `json:"id" query:"id"`
		Branch string `json:"brchType" query:"brchType"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding reservation request")
	}
	if data.ID == "" {
		data.ID = ctx.QueryParam("id")
	}
	u, err := s.reservationURL(ctx, strings.TrimSpace(data.ID), data.Branch)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ReservationResponse{URL: u})
}
