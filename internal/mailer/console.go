package mailer

import "log"

type consoleService struct {
	subjPrefix string
}

var _ Service = (*consoleService)(nil)

// NewConsole creates a mail service that logs messages instead of sending
// them. Used for local development and whenever no SendGrid key is configured.
func NewConsole(appName string) Service {
	return &consoleService{subjPrefix: "[" + appName + "] "}
}

func (svc *consoleService) Send(messages ...*Message) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		for _, to := range msg.To {
			log.Printf("mailer: to=%s subject=%q\n%s", to.Address, svc.subjPrefix+msg.Subject, msg.TextBody)
		}
	}
}
