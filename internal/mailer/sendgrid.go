package mailer

import (
	"log"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ Service = (*sendgridService)(nil)

// NewSendGrid creates a SendGrid-backed mail service. The app name becomes the
// sender name and a subject prefix.
func NewSendGrid(key, appName, fromEmail string) Service {
	return &sendgridService{
		key:        key,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

// Send delivers each message in its own goroutine.
func (svc *sendgridService) Send(messages ...*Message) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if msg.HasRecipients() && msg.HasContent() {
				svc.send(*msg)
			}
		}()
	}
}

func (svc *sendgridService) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(svc.getSGEmail(to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	if msg.TextBody != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return m
}

func (svc *sendgridService) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc *sendgridService) send(msg Message) {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		log.Printf("mailer: sendgrid request failed: %v", err)
		return
	}
	if res.StatusCode >= http.StatusBadRequest {
		log.Printf("mailer: sendgrid rejected message (%d): %s", res.StatusCode, res.Body)
	}
}
