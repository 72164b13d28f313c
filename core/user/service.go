package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
)

const (
	maxPageSize      = 100
	tempPasswordLen  = 12
	tempPasswordSyms = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	// errors
	ErrNotFound           = &core.NotFoundError{Detail: "User not found"}
	ErrEmailExists        = errors.New("Email already registered")
	ErrTermsRequired      = errors.New("Terms must be accepted")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrAccountDisabled    = errors.New("Account disabled")
	ErrInvalidResetToken  = errors.New("Invalid or expired password reset link")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND on the set QueryFilter fields and returns one page plus the total match count.
		QueryUsers(
			ctx context.Context,
			filter QueryFilter,
			ordering []core.DBOrdering,
			offset, limit int,
			exec ...core.DBExecutor,
		) ([]User, int, error)
		GetUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		EmailExists(ctx context.Context, email string, exec ...core.DBExecutor) (bool, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string) error
		// Signup creates the parent account and its household's admission record together.
		Signup(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByHousehold(ctx context.Context, householdToken string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error

		// member management
		Query(ctx context.Context, filter QueryFilter) ([]User, core.Page, error)
		Detail(ctx context.Context, id string) (Detail, error)
		ResetToTemporaryPassword(ctx context.Context, id string) (User, string, error)
		SetStatus(ctx context.Context, id, status string) (User, error)
		ExportCSV(ctx context.Context, ids []string) (string, error)
		Notify(ctx context.Context, ids []string, message string) (int, error)
	}

	service struct {
		repo    Repository
		admSvc  admission.Service
		tx      core.Transactor
		mailSvc core.EmailService
		logger  core.Logger
		tokens  TokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	admSvc admission.Service,
	tx core.Transactor,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		repo:    repo,
		admSvc:  admSvc,
		tx:      tx,
		mailSvc: mailSvc,
		logger:  logger,
		tokens:  NewTokenGenerator(conf.SecretKey, conf.Auth.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string) error {
	exists, err := svc.repo.EmailExists(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return errors.Wrap(err, "checking email")
	}
	if exists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

func (svc *service) Signup(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:             uuid.New().String(),
		Email:          nu.Email,
		Phone:          nu.Phone,
		ParentName:     nu.ParentName,
		StudentName:    nu.StudentName,
		Branch:         nu.Branch,
		Status:         StatusActive,
		HouseholdToken: uuid.New().String(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if usr, err = svc.repo.CreateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "creating user")
		}
		_, err = svc.admSvc.Open(ctx, usr.HouseholdToken, exec)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive() {
		return User{}, ErrAccountDisabled
	}

	usr.LastLogin = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByHousehold(ctx context.Context, householdToken string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{HouseholdToken: householdToken})
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsActive() {
		go svc.sendPasswordResetMail(usr)
	}
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	token, err := svc.tokens.MakeToken(usr)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("making password reset token: %v", err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.ParentName, Address: usr.Email}},
		Subject:      "비밀번호 재설정 안내",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.ParentName,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidResetToken)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(ErrInvalidResetToken)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(ErrInvalidResetToken)
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]User, core.Page, error) {
	filter.Clean()
	offset, limit := core.Paginate(filter.Page, filter.PageSize, maxPageSize)
	page := core.Page{Page: offset/limit + 1, PageSize: limit}

	users, total, err := svc.repo.QueryUsers(ctx, filter, filter.Ordering(), offset, limit)
	if err != nil {
		return nil, page, errors.Wrap(err, "querying users")
	}
	page.Total = total
	if users == nil {
		users = []User{}
	}
	return users, page, nil
}

func (svc *service) Detail(ctx context.Context, id string) (Detail, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	student := StudentEntry{Name: usr.StudentName, Branch: usr.Branch, HouseholdToken: usr.HouseholdToken}
	adm, err := svc.admSvc.Get(ctx, usr.HouseholdToken)
	switch {
	case err == nil:
		student.Admission = adm
	case !core.IsNotFound(err):
		return Detail{}, errors.Wrap(err, "getting admission")
	}

	return Detail{
		User:     usr,
		Parent:   ParentDetail{Name: usr.ParentName, Email: usr.Email, Phone: usr.Phone},
		Students: []StudentEntry{student},
	}, nil
}

func (svc *service) ResetToTemporaryPassword(ctx context.Context, id string) (User, string, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, "", err
	}

	pwd, err := temporaryPassword()
	if err != nil {
		return User{}, "", errors.Wrap(err, "generating password")
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, "", errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, "", errors.Wrap(err, "updating user")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.ParentName, Address: usr.Email}},
		Subject:      "임시 비밀번호 안내",
		TemplateName: "temporary_password",
		TemplateData: map[string]string{"Name": usr.ParentName, "Password": pwd},
	})
	return usr, pwd, nil
}

func (svc *service) SetStatus(ctx context.Context, id, status string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Status = status
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *service) ExportCSV(ctx context.Context, ids []string) (string, error) {
	users, err := svc.repo.GetUsersByID(ctx, ids)
	if err != nil {
		return "", errors.Wrap(err, "getting users by ID")
	}
	var b strings.Builder
	if err = writeCSV(&b, users); err != nil {
		return "", errors.Wrap(err, "writing csv")
	}
	return b.String(), nil
}

// Notify mails message to every active member in ids and returns how many were sent.
func (svc *service) Notify(ctx context.Context, ids []string, message string) (int, error) {
	users, err := svc.repo.GetUsersByID(ctx, ids)
	if err != nil {
		return 0, errors.Wrap(err, "getting users by ID")
	}

	msgs := make([]*core.EmailMessage, 0, len(users))
	for _, usr := range users {
		if !usr.IsActive() {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.ParentName, Address: usr.Email}},
			Subject:      "Frage EDU 알림",
			TemplateName: "member_notice",
			TemplateData: map[string]string{"Name": usr.ParentName, "Message": message},
		})
	}
	svc.mailSvc.SendMessages(msgs...)
	return len(msgs), nil
}

func temporaryPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordSyms)))
	pwd := make([]byte, tempPasswordLen)
	for i := range pwd {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		pwd[i] = tempPasswordSyms[n.Int64()]
	}
	return string(pwd), nil
}
