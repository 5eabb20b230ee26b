package mailer

import (
	"context"

	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
)

// Message is a single outbound email accepted by the notification gateway.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Type    string `json:"type,omitempty"`
}

// Mailer submits one message for delivery. Implementations make exactly one
// attempt; callers decide what a failure means.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Validate rejects messages missing any required field before submission.
func Validate(msg Message) error {
	if msg.To == "" || msg.Subject == "" || msg.HTML == "" {
		return appErrors.Clone(appErrors.ErrValidation, "missing required fields")
	}
	return nil
}
