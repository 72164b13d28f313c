package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/audit"
)

func (s *server) registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	// un-authed endpoints
	g.POST("/signup", s.adminSignup)
	g.POST("/login", s.adminLogin)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.GET("/profile", s.adminProfile, s.adminMiddleware())
	ag.POST("/token-refresh", s.refreshAdminToken, s.adminMiddleware())
	ag.GET("/admins", s.queryAdmins, s.adminMiddleware(admin.PermManageAdmins))
	ag.PUT("/admins/:id/roles", s.updateAdminRoles, s.adminMiddleware(admin.PermManageAdmins))

	s.registerMembersAPI(ag)
	s.registerAdminNewsAPI(ag)

	ag.GET("/audit", s.queryAudit, s.adminMiddleware(admin.PermViewAudit))
}

// Handlers

func (s *server) adminAuthResponse(adm admin.Admin) (AdminAuthResponse, error) {
	token, err := s.tokens.GenerateToken(s.tokens.AdminClaims(adm))
	if err != nil {
		return AdminAuthResponse{}, errors.Wrap(err, "generating token")
	}
	return AdminAuthResponse{Token: token, Admin: newAdminResponse(adm)}, nil
}

func (s *server) adminSignup(ctx echo.Context) error {
	var data admin.NewAdmin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmin")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.Validate, s.AdminSvc); err != nil {
		return err
	}

	adm, err := s.AdminSvc.Signup(rctx, data)
	if err != nil {
		return errors.Wrap(err, "signing admin up")
	}
	res, err := s.adminAuthResponse(adm)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) adminLogin(ctx echo.Context) error {
	var data AdminLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminLoginRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	key := throttleKey(ctx, "admin", data.login())
	if err := s.checkThrottle(ctx, key); err != nil {
		return err
	}
	adm, err := s.AdminSvc.Authenticate(ctx.Request().Context(), data.login(), data.Password)
	if err != nil {
		if errors.Cause(err) == admin.ErrInvalidCredentials {
			s.recordLogin(ctx, key, false)
		}
		return err
	}
	s.recordLogin(ctx, key, true)

	res, err := s.adminAuthResponse(adm)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *server) adminProfile(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newAdminResponse(adm))
}

func (s *server) refreshAdminToken(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (s *server) queryAdmins(ctx echo.Context) error {
	admins, err := s.AdminSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	res := make([]AdminResponse, 0, len(admins))
	for _, adm := range admins {
		res = append(res, newAdminResponse(adm))
	}
	return ctx.JSON(http.StatusOK, echo.Map{"admins": res})
}

func (s *server) updateAdminRoles(ctx echo.Context) error {
	actor, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	var data admin.RolesUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RolesUpdate")
	}
	if err = data.Validate(s.Validate); err != nil {
		return err
	}

	adm, err := s.AdminSvc.UpdateRoles(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	s.audit(ctx, actor, audit.ActionRoleChange, adm.ID, adm.Username+" -> "+adm.Role)
	return ctx.JSON(http.StatusOK, newAdminResponse(adm))
}

func (s *server) queryAudit(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to audit.QueryFilter")
	}
	entries, page, err := s.AuditSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying audit log")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"logs": entries, "pagination": page})
}

// audit records a successful admin action. A failed write is logged, never surfaced.
func (s *server) audit(ctx echo.Context, actor admin.Admin, action, targetID, detail string) {
	if _, err := s.AuditSvc.Record(ctx.Request().Context(), actor.ID, actor.Username, action, targetID, detail); err != nil {
		s.Logger.Error("recording audit entry", err, map[string]interface{}{"action": action, "target": targetID})
	}
}
