// Package mailer wraps SMTP delivery of notification emails.
package mailer

import (
	mail "github.com/wneessen/go-mail"
)

// Mailer sends plain-text emails through a single SMTP account.
type Mailer struct {
	client *mail.Client
	from   string
}

// New builds a Mailer for the given SMTP endpoint. Auth is plain;
// TLS is used when the server offers it.
func New(host string, port int, username, password, from string) (*Mailer, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, err
	}
	return &Mailer{client: client, from: from}, nil
}

// Send delivers one plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return m.client.DialAndSend(msg)
}
