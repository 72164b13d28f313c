package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/amork0112-rgb/frageedu/core"
)

// Member statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var Statuses = []string{StatusActive, StatusDisabled}

// User is a parent account. One account is one household.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	ParentName     string    `json:"parent_name"`
	StudentName    string    `json:"student_name"`
	Branch         string    `json:"branch"`
	Status         string    `json:"status"`
	EmailVerified  bool      `json:"email_verified"`
	HouseholdToken string    `json:"household_token"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`           // UTC
	UpdatedAt      time.Time `json:"updated_at"`           // UTC
	LastLogin      time.Time `json:"last_login,omitempty"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsActive() bool {
	return u.Status != StatusDisabled
}

// NewUser is the signup payload.
type NewUser struct {
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,phone"`
	ParentName    string `json:"parent_name" validate:"required"`
	StudentName   string `json:"student_name" validate:"required"`
	Branch        string `json:"branch" validate:"omitempty,branch"`
	Password      string `json:"password" validate:"required"`
	TermsAccepted bool   `json:"terms_accepted"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.ParentName = core.CleanString(nu.ParentName)
	nu.StudentName = core.CleanString(nu.StudentName)
	nu.Branch = core.CleanString(nu.Branch, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if !nu.TermsAccepted {
		return core.NewValidationError(ErrTermsRequired)
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// StatusUpdate enables or disables a member.
type StatusUpdate struct {
	Status string `json:"status" validate:"required,memberstatus"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status, true /* lower */)
	return validate.Struct(su)
}

// NotifyRequest is a message mailed to a set of members.
type NotifyRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1"`
	Message string   `json:"message" validate:"required"`
}

func (nr *NotifyRequest) Validate(validate *validator.Validate) error {
	nr.Message = core.CleanString(nr.Message)
	return validate.Struct(nr)
}

// GetFilter looks a single User up by the first non-empty field.
type GetFilter struct {
	ID             string
	Email          string
	HouseholdToken string
}

// QueryFilter narrows the member listing; all set fields must match.
type QueryFilter struct {
	Query    string `query:"query"`  // case-insensitive match on email, names or phone
	Branch   string `query:"branch"` // exact
	Status   string `query:"status"` // exact
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
	Sort     string `query:"sort"` // "<field>:<asc|desc>"

	// Branches restricts results to these branches; nil means no restriction.
	Branches []string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Query = core.CleanString(qf.Query)
	qf.Branch = core.CleanString(qf.Branch, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

var sortFields = map[string]string{
	"joinedAt":    "created_at",
	"createdAt":   "created_at",
	"lastLogin":   "last_login",
	"email":       "email",
	"parentName":  "parent_name",
	"studentName": "student_name",
	"branch":      "branch",
	"status":      "status",
}

// Ordering parses Sort, defaulting to the newest members first. Unknown fields are ignored.
func (qf QueryFilter) Ordering() []core.DBOrdering {
	var ords []core.DBOrdering
	for _, part := range strings.Split(qf.Sort, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dir := part, "asc"
		if i := strings.Index(part, ":"); i >= 0 {
			name, dir = part[:i], strings.ToLower(part[i+1:])
		}
		if field, ok := sortFields[name]; ok {
			ords = append(ords, core.DBOrdering{Field: field, Ascending: dir != "desc"})
		}
	}
	if len(ords) == 0 {
		ords = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	return ords
}

// Detail is the admin view of one member.
type Detail struct {
	User     User           `json:"user"`
	Parent   ParentDetail   `json:"parent"`
	Students []StudentEntry `json:"students"`
}

type ParentDetail struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type StudentEntry struct {
	Name           string      `json:"name"`
	Branch         string      `json:"branch"`
	HouseholdToken string      `json:"household_token"`
	Admission      interface{} `json:"admission,omitempty"`
}
