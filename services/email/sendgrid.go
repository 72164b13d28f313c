package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/amork0112-rgb/frageedu/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		key:        conf.SendgridApiKey,
		host:       host,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && msg.HasContent() {
				svc.send(*msg)
			}
		}()
	}
}

// prepare gives every "To" recipient its own personalization so that a
// notice sent to many households never discloses their addresses.
// Cc and Bcc ride along with the first one.
func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)

	for i, to := range msg.To {
		p := sgmail.NewPersonalization()
		p.Subject = svc.subjPrefix + msg.Subject
		p.AddTos(svc.getSGEmail(to))
		if i == 0 {
			for _, cc := range msg.Cc {
				p.AddCCs(svc.getSGEmail(cc))
			}
			for _, bcc := range msg.Bcc {
				p.AddBCCs(svc.getSGEmail(bcc))
			}
		}
		m.AddPersonalizations(p)
	}
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	// sendgrid rejects empty content values
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc sendgridService) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc sendgridService) send(msg core.EmailMessage) {
	req := sendgrid.GetRequest(svc.key, endpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("sending email - status: %d - Body: %s", res.StatusCode, res.Body))
	}
}
