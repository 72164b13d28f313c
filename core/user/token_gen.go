package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	salt    = []byte("frageedu.core.user.token_gen")
	NowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")

	tsEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
	epoch      = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// TokenGenerator makes and checks password reset tokens of the form
// "<base32 day>-<signature>". A token stops being valid once the password,
// the last login or the account status changes, or after timeout.
type TokenGenerator struct {
	key     []byte
	maxDays int
}

func NewTokenGenerator(secretKey string, timeout time.Duration) TokenGenerator {
	key := sha256.Sum256(append(append([]byte{}, salt...), secretKey...))
	return TokenGenerator{key: key[:], maxDays: int(timeout / (24 * time.Hour))}
}

// EncodeUID makes the URL-safe user reference sent along with a token.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	return string(id), err
}

func (tg TokenGenerator) MakeToken(usr User) (string, error) {
	return tg.tokenForDay(usr, dayNumber(NowFunc())), nil
}

func (tg TokenGenerator) verifyToken(usr User, token string) error {
	dayPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return errInvalidToken
	}
	raw, err := tsEncoding.DecodeString(dayPart)
	if err != nil {
		return errInvalidToken
	}
	day, err := strconv.Atoi(string(raw))
	if err != nil {
		return errInvalidToken
	}

	if !hmac.Equal([]byte(tg.tokenForDay(usr, day)), []byte(token)) {
		return errInvalidToken
	}
	if dayNumber(NowFunc())-day > tg.maxDays {
		return errTokenExpired
	}
	return nil
}

func (tg TokenGenerator) tokenForDay(usr User, day int) string {
	dayStr := strconv.Itoa(day)

	mac := hmac.New(sha256.New, tg.key)
	mac.Write([]byte(usr.ID))
	mac.Write(usr.PasswordHash)
	mac.Write([]byte(usr.Status))
	if !usr.LastLogin.IsZero() {
		mac.Write([]byte(usr.LastLogin.UTC().Format(time.RFC3339Nano)))
	}
	mac.Write([]byte(dayStr))

	return tsEncoding.EncodeToString([]byte(dayStr)) + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// dayNumber counts days since 2001-01-01, rounding up.
func dayNumber(t time.Time) int {
	return int(math.Ceil(t.Sub(epoch).Hours() / 24))
}
