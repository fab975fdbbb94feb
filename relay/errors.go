package relay

import "errors"

// Sentinel errors for relay operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrRoomFull indicates an admission attempt beyond room capacity.
	// The attempt is rejected, never queued, and the room is unaffected.
	ErrRoomFull = errors.New("room full")

	// ErrRoomNotFound indicates a join with a code naming no live room.
	ErrRoomNotFound = errors.New("room does not exist")

	// ErrServerClosed is returned by Serve after Close.
	ErrServerClosed = errors.New("relay server closed")
)
