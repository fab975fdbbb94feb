package wire

import "errors"

var (
	// ErrProtocol indicates a record with an unknown type tag, a missing
	// required field, or bytes that do not parse as a record at all.
	ErrProtocol = errors.New("protocol violation")

	// ErrMessageTooLarge indicates a frame exceeding MaxMessageSize.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
)
