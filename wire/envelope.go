package wire

import (
	"encoding/json"
	"fmt"
)

// Message type tags. The set is closed: Decode rejects anything else.
const (
	// Registration phase (plaintext).
	TypeRegister = "register"
	TypeWelcome  = "welcome"

	// Room admission (plaintext).
	TypeCreateRoom  = "create_room"
	TypeRoomCreated = "room_created"
	TypeJoin        = "join"
	TypeJoinOK      = "join_ok"
	TypeReject      = "reject"

	// Key delivery and membership notices (plaintext control).
	TypeSymKey = "sym_key"
	TypeStatus = "status"
	TypeLeave  = "leave"

	// Payload-bearing types, always carried inside an encrypted record.
	TypeFrame  = "frame"
	TypeAudio  = "audio"
	TypeChat   = "chat"
	TypeMute   = "mute"
	TypeCamera = "camera"

	// Opaque encrypted record wrapping any of the payload types.
	TypeEncrypted = "enc"
)

// Envelope is a single structured message unit. The Type tag selects which
// of the optional fields are meaningful; Validate enforces the per-type
// requirements.
type Envelope struct {
	Type string `json:"type"`

	// Identity fields.
	ID   string `json:"id,omitempty"`   // server-assigned participant id (welcome)
	From string `json:"from,omitempty"` // sender participant id
	Name string `json:"name,omitempty"` // self-declared display name

	// Registration and key delivery.
	Key   string `json:"key,omitempty"`   // base64 participant public key (register)
	Nonce string `json:"nonce,omitempty"` // base64 room nonce (sym_key)

	// Room admission.
	Code   string `json:"code,omitempty"`   // 6-character room code
	Reason string `json:"reason,omitempty"` // human-readable reject reason

	// Payloads.
	TS    float64 `json:"ts,omitempty"`    // sender-local timestamp (frame, audio)
	Data  string  `json:"data,omitempty"`  // base64 payload (frame, audio, sym_key, enc)
	Text  string  `json:"text,omitempty"`  // chat or status text
	State bool    `json:"state,omitempty"` // mute/camera toggle state
}

// required lists the fields that must be present for each type tag.
// A type missing from this table is not a recognized message.
var required = map[string][]string{
	TypeRegister:    {"name", "key"},
	TypeWelcome:     {"id"},
	TypeCreateRoom:  nil,
	TypeRoomCreated: {"code"},
	TypeJoin:        {"code"},
	TypeJoinOK:      {"code"},
	TypeReject:      {"reason"},
	TypeSymKey:      {"data", "nonce"},
	TypeStatus:      {"text"},
	TypeLeave:       nil, // client leave carries no fields; server notice adds from/name
	TypeFrame:       {"from", "data"},
	TypeAudio:       {"from", "data"},
	TypeChat:        {"from", "text"},
	TypeMute:        {"from"},
	TypeCamera:      {"from"},
	TypeEncrypted:   {"data"},
}

// Validate checks the type tag and the per-type required fields.
func (e Envelope) Validate() error {
	fields, ok := required[e.Type]
	if !ok {
		return fmt.Errorf("%w: unknown message type %q", ErrProtocol, e.Type)
	}

	for _, f := range fields {
		var present bool
		switch f {
		case "id":
			present = e.ID != ""
		case "from":
			present = e.From != ""
		case "name":
			present = e.Name != ""
		case "key":
			present = e.Key != ""
		case "nonce":
			present = e.Nonce != ""
		case "code":
			present = e.Code != ""
		case "reason":
			present = e.Reason != ""
		case "data":
			present = e.Data != ""
		case "text":
			present = e.Text != ""
		}
		if !present {
			return fmt.Errorf("%w: %s message missing %s", ErrProtocol, e.Type, f)
		}
	}

	return nil
}

// Decode parses and validates a single record.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}

	return env, nil
}
