package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/session"
	"github.com/amork0112-rgb/frageedu/core/user"
)

// parentMiddleware lets active parents through and loads their account.
func (s *server) parentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if claims.Role != session.RoleParent {
			return errHttpForbidden
		}
		usr, err := s.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
		if err != nil {
			if core.IsNotFound(err) {
				return errUnauthorized
			}
			return errors.Wrap(err, "getting context user")
		}
		if !usr.IsActive() {
			return user.ErrAccountDisabled
		}
		ctx.Set(userContextKey, usr)
		ctx.Set(sessionContextKey, session.NewParent(usr.ID, usr.Email, usr.HouseholdToken))
		return next(ctx)
	}
}

// adminMiddleware lets active admins holding every perm through.
// The account is reloaded so that role changes apply to tokens issued before them.
func (s *server) adminMiddleware(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role != session.RoleAdmin {
				return errHttpForbidden
			}
			adm, err := s.AdminSvc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "getting context admin")
			}
			if !adm.IsActive {
				return admin.ErrAccountDisabled
			}
			for _, perm := range perms {
				if !adm.Can(perm) {
					return errHttpForbidden
				}
			}
			ctx.Set(adminContextKey, adm)
			ctx.Set(sessionContextKey, session.NewAdmin(adm.ID, adm.Username, adm.Email, adm.Role, adm.AllowedBranches()))
			return next(ctx)
		}
	}
}

// optionalSession identifies the caller from a bearer token or the portal cookie.
// Anonymous or invalid credentials are not an error; handlers decide what they need.
func (s *server) optionalSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		raw := ""
		if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		} else if c, err := ctx.Cookie(sessionCookie); err == nil {
			raw = c.Value
		}
		if raw != "" {
			if claims, err := s.tokens.ParseToken(raw); err == nil {
				ctx.Set(sessionContextKey, claims.session())
			}
		}
		return next(ctx)
	}
}

const householdContextKey = "household"

// householdGate lets a request through with a household link (?id=) or a parent session,
// and sends everyone else to the login page.
func (s *server) householdGate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, err := session.HouseholdFor(strings.TrimSpace(ctx.QueryParam("id")), getContextSession(ctx))
		if err != nil {
			return ctx.Redirect(http.StatusFound, "/login")
		}
		ctx.Set(householdContextKey, token)
		return next(ctx)
	}
}

func household(ctx echo.Context) string {
	token, _ := ctx.Get(householdContextKey).(string)
	return token
}
