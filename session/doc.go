// Package session implements the client side of the voxring protocol.
//
// A Client mirrors the relay's per-connection state machine: generate a
// fresh key pair, register a display name, create or join a room, then run a
// streaming loop that sends locally captured media and chat as encrypted
// records and dispatches incoming records by type: frames and audio to the
// AV sync buffer, everything else to the Events collaborator.
//
// Capture, rendering, and playback are external collaborators: the caller
// feeds SendFrame/SendAudio from its capture timer and consumes the sync
// buffer's outputs.
package session
