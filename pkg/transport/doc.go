// Package transport provides delivery channel adapters for the notification
// dispatcher.
//
// EmailTransport sends jobs through an email.Sender after resolving the
// recipient's address via an AddressBook, and classifies provider failures
// as permanent (bad address, malformed payload) or transient (everything
// else) so the dispatcher's retry policy can act on them.
//
// DevTransport records deliveries as JSON files on disk and stands in for
// channels without a wired provider (sms, whatsapp, push) outside
// production.
//
// Usage:
//
//	sender, _ := email.NewPostmarkClient(cfg)
//	emailTr, _ := transport.NewEmailTransport(sender, accounts)
//	smsTr, _ := transport.NewDevTransport(notify.MethodSMS, "./deliveries")
//	registry := notify.NewTransportRegistry(emailTr, smsTr)
package transport
