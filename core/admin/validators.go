package admin

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/fs"
)

var (
	adminRoleTag  = "adminrole"
	adminRoleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to the username or email"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords = make([]string, 0, 200)

	commonPasswordsPath = "assets/common-passwords.txt.gz"
)

// InitValidators registers the admin role tag and the password policy.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(adminRoleTag, adminRoleValidation)
	core.RegisterCustomTranslation(validate, translator, adminRoleTag, adminRoleText)

	validate.RegisterStructValidation(newAdminStructValidation, NewAdmin{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

// LoadCommonPasswords reads the embedded common passwords list. Without it the "too common" rule is skipped.
func LoadCommonPasswords(logger core.Logger) {
	file, err := appfs.FS.Open(commonPasswordsPath)
	if err != nil {
		logger.Error(fmt.Sprintf("opening %s: %v", commonPasswordsPath, err), err)
		return
	}
	defer func() { _ = file.Close() }()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		logger.Error(fmt.Sprintf("reading %s: %v", commonPasswordsPath, err), err)
		return
	}
	pwds := commonPasswords[:0]
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, pwd)
		}
	}
	if err = scanner.Err(); err != nil {
		logger.Error(fmt.Sprintf("scanning %s: %v", commonPasswordsPath, err), err)
	}
	sort.Strings(pwds)
	commonPasswords = pwds
}

func adminRoleValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), AllRoles)
}

func newAdminStructValidation(sl validator.StructLevel) {
	if na, ok := sl.Current().Interface().(NewAdmin); ok {
		validatePassword(na.Password, na.Username, na.Email, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no similarity with username or email
// - no common password
func validatePassword(pwd, uname, email string, sl validator.StructLevel) {
	if pwd == "" { // reported by `required`
		return
	}
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range runes {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == len(runes) {
		reportErr(pwdNotAllNumTag)
		return
	}

	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		reportErr(pwdComplexityTag)
		return
	}

	if similarity(pwd, uname) >= pwdMaxSim || similarity(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		if commonPasswords[idx] == lpwd {
			reportErr(pwdNoCommonTag)
		}
	}
}

func similarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(strings.ToLower(pwd), ""), strings.Split(attr, "")).QuickRatio()
}
