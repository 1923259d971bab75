package preferences

import "errors"

var (
	// ErrStoreNil is returned when a nil recipient or group store is provided.
	ErrStoreNil = errors.New("preference store cannot be nil")

	// ErrVersionSourceNil is returned when a nil version source is provided.
	ErrVersionSourceNil = errors.New("version source cannot be nil")

	// ErrRecipientNotFound is returned when the recipient record does not exist.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrGroupNotFound is returned when the owning group has no defaults record.
	ErrGroupNotFound = errors.New("group defaults not found")
)
