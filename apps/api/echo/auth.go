package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/session"
	"github.com/amork0112-rgb/frageedu/core/user"
)

const (
	tokenContextKey   = "userToken"
	sessionContextKey = "session"
	adminContextKey   = "admin"
	userContextKey    = "user"

	// parent and admin tokens are not interchangeable
	parentAudience = "frageedu-parent"
	adminAudience  = "frageedu-admin"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt   int64        `json:"oriat,omitempty"`
	Role           session.Role `json:"role"`
	Email          string       `json:"email,omitempty"`
	Username       string       `json:"username,omitempty"`        // admins only
	HouseholdToken string       `json:"household_token,omitempty"` // parents only
	AdminRole      string       `json:"admin_role,omitempty"`      // admins only
}

func (c Claims) audience() string {
	if c.Role == session.RoleAdmin {
		return adminAudience
	}
	return parentAudience
}

// Valid also rejects tokens whose audience does not match their role.
func (c Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if !c.VerifyAudience(c.audience(), true) {
		return errors.New("token audience mismatch")
	}
	return nil
}

func (c Claims) session() *session.Session {
	if c.Role == session.RoleAdmin {
		return session.NewAdmin(c.Subject, c.Username, c.Email, c.AdminRole, nil)
	}
	return session.NewParent(c.Subject, c.Email, c.HouseholdToken)
}

type tokenIssuer struct {
	issuer       string
	key          []byte
	expDelta     time.Duration
	refreshDelta time.Duration
}

func newTokenIssuer(conf *core.Config) *tokenIssuer {
	return &tokenIssuer{
		issuer:       conf.AppName,
		key:          []byte(conf.SecretKey),
		expDelta:     conf.Server.JWTExpirationDelta,
		refreshDelta: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (ti *tokenIssuer) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func (ti *tokenIssuer) standardClaims(subject, audience string, origIat []int64) (jwt.StandardClaims, int64) {
	now := time.Now()
	nownix := now.Unix()
	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return jwt.StandardClaims{
		Issuer:    ti.issuer,
		Subject:   subject,
		Audience:  audience,
		ExpiresAt: now.Add(ti.expDelta).Unix(),
		IssuedAt:  nownix,
	}, oriat
}

func (ti *tokenIssuer) ParentClaims(usr user.User, origIat ...int64) *Claims {
	std, oriat := ti.standardClaims(usr.ID, parentAudience, origIat)
	return &Claims{
		StandardClaims: std,
		OrigIssuedAt:   oriat,
		Role:           session.RoleParent,
		Email:          usr.Email,
		HouseholdToken: usr.HouseholdToken,
	}
}

func (ti *tokenIssuer) AdminClaims(adm admin.Admin, origIat ...int64) *Claims {
	std, oriat := ti.standardClaims(adm.ID, adminAudience, origIat)
	return &Claims{
		StandardClaims: std,
		OrigIssuedAt:   oriat,
		Role:           session.RoleAdmin,
		Email:          adm.Email,
		Username:       adm.Username,
		AdminRole:      adm.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (ti *tokenIssuer) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken validates a raw token, e.g. one read from the portal cookie.
func (ti *tokenIssuer) ParseToken(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.key, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextSession returns the caller, or nil for anonymous requests.
func getContextSession(ctx echo.Context) *session.Session {
	if sess, ok := ctx.Get(sessionContextKey).(*session.Session); ok {
		return sess
	}
	if claims, err := getContextClaims(ctx); err == nil {
		return claims.session()
	}
	return nil
}

func getContextAdmin(ctx echo.Context) (admin.Admin, error) {
	if adm, ok := ctx.Get(adminContextKey).(admin.Admin); ok {
		return adm, nil
	}
	return admin.Admin{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// refreshToken re-issues the caller's token until the refresh window, counted from the first login, runs out.
func (s *server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.tokens.refreshDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	var newClaims *Claims
	if claims.Role == session.RoleAdmin {
		adm, err := getContextAdmin(ctx)
		if err != nil {
			return "", err
		}
		newClaims = s.tokens.AdminClaims(adm, claims.OrigIssuedAt)
	} else {
		usr, err := getContextUser(ctx)
		if err != nil {
			return "", err
		}
		newClaims = s.tokens.ParentClaims(usr, claims.OrigIssuedAt)
	}
	token, err := s.tokens.GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}

// throttleKey scopes failed logins to one account from one address.
func throttleKey(ctx echo.Context, kind, login string) string {
	return kind + ":" + core.CleanString(login, true /* lower */) + "|" + ctx.RealIP()
}

// checkThrottle rejects the attempt while the key is locked out.
func (s *server) checkThrottle(ctx echo.Context, key string) error {
	if s.Limiter == nil {
		return nil
	}
	wait, err := s.Limiter.Locked(ctx.Request().Context(), key)
	if err != nil {
		// a broken throttle store must not lock everyone out
		s.Logger.Error("checking login throttle", err)
		return nil
	}
	if wait > 0 {
		ctx.Response().Header().Set("Retry-After", retryAfter(wait))
		return errTooManyAttempts
	}
	return nil
}

// recordLogin updates the throttle counters after an attempt.
func (s *server) recordLogin(ctx echo.Context, key string, ok bool) {
	if s.Limiter == nil {
		return
	}
	var err error
	if ok {
		err = s.Limiter.Reset(ctx.Request().Context(), key)
	} else {
		err = s.Limiter.Fail(ctx.Request().Context(), key)
	}
	if err != nil {
		s.Logger.Error("recording login attempt", err)
	}
}

func retryAfter(d time.Duration) string {
	secs := int64(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return strconv.FormatInt(secs, 10)
}

const sessionCookie = "frage_token"
