// Package mailer sends transactional email. Delivery is fire-and-forget: the
// request that triggered a mail never fails because delivery did.
package mailer

import "net/mail"

// Message is one outbound email.
type Message struct {
	To       []mail.Address
	Subject  string
	TextBody string
	HTMLBody string
}

// HasRecipients reports whether the message is addressed to anyone.
func (m *Message) HasRecipients() bool {
	return len(m.To) > 0
}

// HasContent reports whether the message carries a body.
func (m *Message) HasContent() bool {
	return m.TextBody != "" || m.HTMLBody != ""
}

// Service delivers messages asynchronously.
type Service interface {
	Send(messages ...*Message)
}
