package notify

import (
	"context"
	"errors"
)

// MultiChannelSender fans one notification out to email and SMS and
// collects per-channel outcomes. It only returns an error when nothing
// could be attempted at all; delivery failures are reported through
// SendResult so the dispatch queue can apply its own retry policy.
type MultiChannelSender struct {
	email *SMTPEmailSender
	sms   *WebhookSMSSender
}

func NewMultiChannelSender(email *SMTPEmailSender, sms *WebhookSMSSender) *MultiChannelSender {
	return &MultiChannelSender{
		email: email,
		sms:   sms,
	}
}

func (s *MultiChannelSender) Send(ctx context.Context, n Notification) (*SendResult, error) {
	result := &SendResult{
		Status:     StatusSent,
		PerChannel: make(map[string]string),
	}

	attempted := 0

	if n.Email != "" && s.email != nil {
		attempted++
		if err := s.email.SendEmail(n.Email, n.Subject, n.Body); err != nil {
			result.PerChannel["email"] = err.Error()
			result.Status = StatusFailed
		} else {
			result.PerChannel["email"] = string(StatusSent)
		}
	}

	if n.Phone != "" && s.sms != nil {
		attempted++
		if err := s.sms.SendSMS(ctx, n.Phone, n.Body); err != nil {
			result.PerChannel["sms"] = err.Error()
			result.Status = StatusFailed
		} else {
			result.PerChannel["sms"] = string(StatusSent)
		}
	}

	if attempted == 0 {
		return nil, errors.New("notification has no deliverable channel")
	}
	return result, nil
}
