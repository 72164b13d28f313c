package user

import (
	"context"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service that sends password reset mails synchronously.
func NewServiceMock(
	repo Repository,
	admSvc admission.Service,
	tx core.Transactor,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			admSvc:  admSvc,
			tx:      tx,
			mailSvc: mailSvc,
			logger:  logger,
			tokens:  NewTokenGenerator(conf.SecretKey, conf.Auth.PasswordResetTimeoutDelta),
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsActive() {
		// run synchronously
		svc.sendPasswordResetMail(usr)
	}
	return nil
}
