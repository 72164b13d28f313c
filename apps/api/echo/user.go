package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/user"
)

func (s *server) registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	// un-authed endpoints
	g.POST("/signup", s.signup)
	g.POST("/login", s.login)
	g.POST("/password-reset", s.resetPassword)
	g.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints; route-level so that the group does not catch every /api path
	g.GET("/profile", s.profile, jwt, s.parentMiddleware)
	g.POST("/token-refresh", s.refreshParentToken, jwt, s.parentMiddleware)
}

// Handlers

func (s *server) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	rctx := ctx.Request().Context()
	if err := data.Validate(rctx, s.Validate, s.UserSvc); err != nil {
		return err
	}

	usr, err := s.UserSvc.Signup(rctx, data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	token, err := s.tokens.GenerateToken(s.tokens.ParentClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, AuthResponse{
		Message:        "User created successfully",
		Token:          token,
		User:           usr,
		HouseholdToken: usr.HouseholdToken,
	})
}

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	usr, token, err := s.authenticateParent(ctx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AuthResponse{
		Message:        "Login successful",
		Token:          token,
		User:           usr,
		HouseholdToken: usr.HouseholdToken,
	})
}

// authenticateParent checks credentials behind the login throttle and issues a token.
func (s *server) authenticateParent(ctx echo.Context, data LoginRequest) (user.User, string, error) {
	key := throttleKey(ctx, "parent", data.Email)
	if err := s.checkThrottle(ctx, key); err != nil {
		return user.User{}, "", err
	}

	usr, err := s.UserSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			s.recordLogin(ctx, key, false)
		}
		return user.User{}, "", err
	}
	s.recordLogin(ctx, key, true)

	token, err := s.tokens.GenerateToken(s.tokens.ParentClaims(usr))
	if err != nil {
		return user.User{}, "", errors.Wrap(err, "generating token")
	}
	return usr, token, nil
}

func (s *server) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *server) refreshParentToken(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (s *server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}

	if err := s.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		s.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, MessageResponse{
		Message: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(s.Validate); err != nil {
		return err
	}
	if err := s.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset"})
}
