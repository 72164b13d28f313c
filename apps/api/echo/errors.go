package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/exam"
	"github.com/amork0112-rgb/frageedu/core/user"
	mediasvc "github.com/amork0112-rgb/frageedu/services/media"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	errRefreshExpired  = echo.NewHTTPError(http.StatusForbidden, "Refresh has expired")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "Permission denied")
	errTooManyAttempts = echo.NewHTTPError(http.StatusTooManyRequests, "Too many failed login attempts, try again later")
	errNoHousehold     = echo.NewHTTPError(http.StatusUnauthorized, "Login or a household link is required")

	validationFailed = "Validation failed"
)

// errorBody is every error response: detail is always set, fields only on validation errors.
type errorBody struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func (s *server) newAppHTTPErrorHandler(signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body := s.errorResponse(err, ctx)

		if code == http.StatusInternalServerError {
			var person core.Person
			if sess := getContextSession(ctx); sess != nil {
				person = core.Person{ID: sess.Subject, Username: sess.Username, Email: sess.Email}
			}
			s.Logger.Error(body.Detail, errors.Wrap(err, body.Detail), person,
				map[string]interface{}{"method": ctx.Request().Method, "path": ctx.Request().URL.Path})

			if ctx.Echo().Debug {
				body.Detail = err.Error()
			}
			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else if isPageRequest(ctx) {
				err = s.renderError(ctx, code, body.Detail)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func (s *server) errorResponse(err error, ctx echo.Context) (int, errorBody) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, errorBody{Detail: "Not authenticated"}
		}
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		msg, ok := origErr.Message.(string)
		if !ok {
			msg = http.StatusText(origErr.Code)
		}
		return origErr.Code, errorBody{Detail: msg}

	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(s.Translator)
		}
		return http.StatusBadRequest, errorBody{Detail: validationFailed, Fields: fldErrs}

	case *core.ValidationError:
		body := errorBody{Detail: origErr.Error()}
		if body.Detail == "" {
			body.Detail = validationFailed
		}
		if origErr.Fields != nil {
			body.Fields = make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				body.Fields[fErr.Field] = fErr.Error
			}
		}
		return http.StatusBadRequest, body

	case *core.NotFoundError:
		return http.StatusNotFound, errorBody{Detail: origErr.Detail}
	}

	switch cause := errors.Cause(err); cause {
	case user.ErrInvalidCredentials, user.ErrAccountDisabled, admin.ErrInvalidCredentials, admin.ErrAccountDisabled:
		return http.StatusUnauthorized, errorBody{Detail: cause.Error()}
	case admin.ErrPermissionDenied:
		return http.StatusForbidden, errorBody{Detail: cause.Error()}
	case exam.ErrNotExamTrack:
		return http.StatusBadRequest, errorBody{Detail: cause.Error()}
	case mediasvc.ErrUnsupportedType:
		return http.StatusUnsupportedMediaType, errorBody{Detail: cause.Error()}
	case mediasvc.ErrTooLarge:
		return http.StatusRequestEntityTooLarge, errorBody{Detail: cause.Error()}
	}

	// any other error is a server error
	return http.StatusInternalServerError, errorBody{Detail: http.StatusText(http.StatusInternalServerError)}
}
