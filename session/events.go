package session

// Events is the UI collaborator interface. The Client invokes it from its
// receive loop; implementations should hand off to their own event loop
// rather than block.
type Events interface {
	// OnChat delivers a chat line from a remote participant.
	OnChat(fromID, name, text string)

	// OnStatus delivers a human-readable room notice.
	OnStatus(text string)

	// OnPeerJoined reports a participant entering the room.
	OnPeerJoined(id, name string)

	// OnPeerLeft reports a participant leaving the room, whether by a leave
	// message or an abrupt disconnect.
	OnPeerLeft(id, name string)

	// OnMute reports a remote mute state change.
	OnMute(id, name string, muted bool)

	// OnCamera reports a remote camera state change.
	OnCamera(id, name string, enabled bool)

	// OnReject surfaces a rejection reason. A reject before the room is
	// entered is terminal for that attempt; the UI may retry by restarting
	// the state machine from scratch.
	OnReject(reason string)
}

// NopEvents discards every event. Useful for headless tooling and tests.
type NopEvents struct{}

func (NopEvents) OnChat(string, string, string) {}
func (NopEvents) OnStatus(string)               {}
func (NopEvents) OnPeerJoined(string, string)   {}
func (NopEvents) OnPeerLeft(string, string)     {}
func (NopEvents) OnMute(string, string, bool)   {}
func (NopEvents) OnCamera(string, string, bool) {}
func (NopEvents) OnReject(string)               {}
