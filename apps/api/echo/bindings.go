package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/user"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (lr *AdminLoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

// login returns whichever identifier was given.
func (lr AdminLoginRequest) login() string {
	if lr.Username != "" {
		return lr.Username
	}
	return lr.Email
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *PasswordResetRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type AuthResponse struct {
	Message        string    `json:"message"`
	Token          string    `json:"token"`
	User           user.User `json:"user"`
	HouseholdToken string    `json:"household_token"`
}

type AdminAuthResponse struct {
	Token string        `json:"token"`
	Admin AdminResponse `json:"admin"`
}

type AdminResponse struct {
	admin.Admin
	AllowedBranches []string `json:"allowed_branches"`
	Permissions     []string `json:"permissions"`
}

func newAdminResponse(adm admin.Admin) AdminResponse {
	return AdminResponse{Admin: adm, AllowedBranches: adm.AllowedBranches(), Permissions: adm.Permissions()}
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type StudentsQuery struct {
	BranchFilter string `query:"branch_filter"`
	Search       string `query:"search"`
	Page         int    `query:"page"`
	Limit        int    `query:"limit"`
}

type StudentRow struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Branch         string `json:"branch"`
	ParentName     string `json:"parent_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Status         string `json:"status"`
	HouseholdToken string `json:"household_token"`
}

type StudentsResponse struct {
	Students        []StudentRow `json:"students"`
	AllowedBranches []string     `json:"allowed_branches"`
	UserPermissions []string     `json:"user_permissions"`
	Pagination      core.Page    `json:"pagination"`
}

type ExportResponse struct {
	CSVContent string `json:"csv_content"`
}

type NotifyResponse struct {
	Message string `json:"message"`
	Sent    int    `json:"sent"`
}

type TemporaryPasswordResponse struct {
	Message           string `json:"message"`
	TemporaryPassword string `json:"temporary_password"`
}

type ReservationResponse struct {
	URL string `json:"url"`
}

type PreviewResponse struct {
	HTML string `json:"html"`
}
