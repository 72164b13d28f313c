// Package testutil holds fixtures shared by the service, API and CLI tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/user"
	logsvc "github.com/amork0112-rgb/frageedu/services/logger"
)

// NewValidator returns a validator with every custom tag and translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger writing to the test log, with reporting disabled.
func NewLogger(t *testing.T, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zaptest.NewLogger(t), conf)
	logger.Enable(false)
	return logger
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	email, pwd, branch, status string,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:             uuid.New().String(),
		Email:          email,
		Phone:          "010-1234-5678",
		ParentName:     "Parent " + email,
		StudentName:    "Student " + email,
		Branch:         branch,
		Status:         status,
		HouseholdToken: uuid.New().String(),
		CreatedAt:      tstamp,
		UpdatedAt:      tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateAdmin(
	t *testing.T,
	repo admin.Repository,
	uname, email, pwd, role string,
	branches []string,
	isActive bool,
) admin.Admin {
	now := time.Now().UTC()
	adm := admin.Admin{
		ID:        uuid.New().String(),
		Username:  uname,
		Email:     email,
		Role:      role,
		Branches:  branches,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := adm.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAdmin() failed: %v", err)
		}
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return adm
}
