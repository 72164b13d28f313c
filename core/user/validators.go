package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/entrance"
)

var (
	branchTag  = "branch"
	branchText = "invalid branch"

	memberStatusTag  = "memberstatus"
	memberStatusText = "status must be one of: active, disabled"
)

// InitValidators registers the member validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(branchTag, branchValidation)
	core.RegisterCustomTranslation(validate, translator, branchTag, branchText)

	_ = validate.RegisterValidation(memberStatusTag, memberStatusValidation)
	core.RegisterCustomTranslation(validate, translator, memberStatusTag, memberStatusText)
}

// branchValidation accepts any branch a member can belong to.
func branchValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), entrance.AllBranches)
}

func memberStatusValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), Statuses)
}
