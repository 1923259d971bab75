package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/email"
	"github.com/colin-rod/tribe-mvp-sub000/pkg/notify"
)

// AddressBook resolves a recipient's email address. It is implemented by the
// recipient account layer, which owns contact details.
type AddressBook interface {
	EmailAddress(ctx context.Context, recipientID uuid.UUID) (string, error)
}

// ErrAddressNotFound should be returned by AddressBook implementations when
// the recipient has no email address on file. It fails the job permanently.
var ErrAddressNotFound = errors.New("no email address on file for recipient")

// emailPayload is the slice of the opaque job content this transport needs.
// The digest compiler and the update flow both produce it.
type emailPayload struct {
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
}

// EmailTransport delivers notification jobs over a transactional email
// sender and classifies failures for the dispatcher's retry policy.
type EmailTransport struct {
	sender    email.Sender
	addresses AddressBook
}

// NewEmailTransport creates the email delivery adapter.
func NewEmailTransport(sender email.Sender, addresses AddressBook) (*EmailTransport, error) {
	if sender == nil {
		return nil, errors.New("email sender cannot be nil")
	}
	if addresses == nil {
		return nil, errors.New("address book cannot be nil")
	}
	return &EmailTransport{sender: sender, addresses: addresses}, nil
}

// Method implements notify.Transport.
func (t *EmailTransport) Method() notify.DeliveryMethod {
	return notify.MethodEmail
}

// Send implements notify.Transport. Malformed payloads and rejected
// addresses are permanent failures; provider and lookup trouble is transient.
func (t *EmailTransport) Send(ctx context.Context, job notify.Job) (string, error) {
	addr, err := t.addresses.EmailAddress(ctx, job.RecipientID)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			return "", notify.Permanent(err)
		}
		return "", notify.Transient(fmt.Errorf("address lookup failed: %w", err))
	}

	var payload emailPayload
	if err := json.Unmarshal(job.Content, &payload); err != nil {
		return "", notify.Permanent(fmt.Errorf("malformed job content: %w", err))
	}

	messageID, err := t.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  payload.Subject,
		BodyHTML: payload.BodyHTML,
		Tag:      string(job.Type),
	})
	if err != nil {
		if errors.Is(err, email.ErrInvalidRecipient) || errors.Is(err, email.ErrInvalidParams) {
			return "", notify.Permanent(err)
		}
		return "", notify.Transient(err)
	}
	return messageID, nil
}
