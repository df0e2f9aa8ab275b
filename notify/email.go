package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPEmailSender delivers over unauthenticated SMTP, which covers
// local relays and Mailpit-style capture servers.
type SMTPEmailSender struct {
	addr string
	from string
}

func NewSMTPEmailSender(host, port, from string) *SMTPEmailSender {
	if from == "" {
		from = "no-reply@slotwise.local"
	}
	return &SMTPEmailSender{
		addr: fmt.Sprintf("%s:%s", strings.TrimSpace(host), strings.TrimSpace(port)),
		from: strings.TrimSpace(from),
	}
}

func (s *SMTPEmailSender) SendEmail(to, subject, body string) error {
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, to, subject, body,
	)
}
