package notify

import "context"

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Notification is the decoded payload of one dispatch-queue job.
// A channel with an empty recipient is skipped.
type Notification struct {
	TenantID string
	ClientID string
	Kind     string
	Email    string
	Phone    string
	Subject  string
	Body     string
}

// SendResult reports the overall outcome plus the per-channel detail.
// Status is sent only when every attempted channel delivered.
type SendResult struct {
	Status     Status
	PerChannel map[string]string
}

type Sender interface {
	Send(ctx context.Context, n Notification) (*SendResult, error)
}
