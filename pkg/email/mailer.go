package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender delivers a single transactional email and returns the provider's
// message id, which the notification queue records on the job for the
// delivery audit trail.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) (messageID string, err error)
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`       // Email address of the recipient
	Subject  string `json:"subject"`       // Subject of the email
	BodyHTML string `json:"body_html"`     // HTML body of the email
	Tag      string `json:"tag,omitempty"` // Optional
}

// Validate rejects sends with a missing subject or body, or a recipient
// address no provider could accept. An ErrInvalidRecipient here means
// retrying is pointless.
func (p SendEmailParams) Validate() error {
	if p.SendTo == "" || !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, p.SendTo)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// Pragmatic format check; the provider has the final say on deliverability.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
