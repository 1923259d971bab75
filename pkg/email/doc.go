// Package email provides a provider-agnostic interface for sending
// transactional emails, with a Postmark implementation for production and a
// disk-writing DevSender for local development.
//
// Every Sender returns the provider's message id on success so the
// notification queue can record it on the delivered job. Failures are
// classified through sentinel errors: ErrInvalidRecipient marks rejections
// that retrying cannot fix (malformed or suppressed addresses), while
// ErrFailedToSendEmail covers transient provider trouble.
//
// # Usage
//
//	var cfg email.Config
//	config.MustLoad(&cfg)
//
//	sender := email.MustNewPostmarkClient(cfg)
//	messageID, err := sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "grandma@example.com",
//		Subject:  "New family update",
//		BodyHTML: body,
//		Tag:      "immediate",
//	})
//
// In development, NewDevSender("./tmp/emails") saves each email as an HTML
// file plus a JSON metadata file instead of sending anything.
package email
