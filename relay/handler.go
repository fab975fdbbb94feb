package relay

import (
	"encoding/base64"
	"errors"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/voxring/voxring/wire"
)

// handler drives one connection through the protocol state machine:
// Unregistered → Registered → (Creating | Joining) → InRoom → Closed.
type handler struct {
	srv  *Server
	conn net.Conn

	p    *Participant
	room *Room
}

func (s *Server) handle(conn net.Conn) {
	h := &handler{srv: s, conn: conn}
	defer h.cleanup()
	h.run()
}

// cleanup runs exactly once per connection regardless of how the Closed
// state was reached: normal leave, abrupt disconnect, or protocol error.
func (h *handler) cleanup() {
	if h.room != nil && h.p != nil {
		if h.room.Remove(h.p) {
			h.srv.dropRoomIfEmpty(h.room.Code)
		}
	}
	h.conn.Close()

	if h.p != nil {
		logrus.WithFields(logrus.Fields{
			"participant": h.p.ID,
			"name":        h.p.Name,
		}).Info("connection closed")
	}
}

// reject answers with a reason when possible before the connection closes.
// Best-effort: the peer may already be gone.
func (h *handler) reject(reason string) {
	env := wire.Envelope{Type: wire.TypeReject, Reason: reason}
	if h.p != nil {
		_ = h.p.send(env)
		return
	}
	_ = wire.WriteMessage(h.conn, env)
}

func (h *handler) run() {
	if !h.register() {
		return
	}
	if !h.enterRoom() {
		return
	}
	h.relayLoop()
}

// register handles the Unregistered → Registered transition. The first
// message must be a register declaring a name and a public key; anything
// else closes the connection with a reject.
func (h *handler) register() bool {
	env, err := wire.ReadMessage(h.conn)
	if err != nil {
		if errors.Is(err, wire.ErrProtocol) {
			h.reject("malformed message")
		}
		return false
	}

	if env.Type != wire.TypeRegister {
		h.reject("registration required")
		return false
	}

	pub, err := base64.StdEncoding.DecodeString(env.Key)
	if err != nil || len(pub) != 32 {
		h.reject("malformed public key")
		return false
	}

	var pubKey [32]byte
	copy(pubKey[:], pub)
	h.p = newParticipant(h.conn, env.Name, pubKey)

	if err := h.p.send(wire.Envelope{Type: wire.TypeWelcome, ID: h.p.ID}); err != nil {
		return false
	}

	logrus.WithFields(logrus.Fields{
		"participant": h.p.ID,
		"name":        h.p.Name,
	}).Info("participant registered")

	return true
}

// enterRoom handles Registered → (Creating | Joining) → InRoom.
func (h *handler) enterRoom() bool {
	env, err := wire.ReadMessage(h.conn)
	if err != nil {
		if errors.Is(err, wire.ErrProtocol) {
			h.reject("malformed message")
		}
		return false
	}

	switch env.Type {
	case wire.TypeCreateRoom:
		room, err := h.srv.createRoom()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"participant": h.p.ID,
				"error":       err.Error(),
			}).Error("room creation failed")
			h.reject("could not create room")
			return false
		}
		// Set before Add so cleanup drops the room even if admission of
		// its own creator fails.
		h.room = room
		if err := room.Add(h.p); err != nil {
			h.reject(err.Error())
			return false
		}
		return h.p.send(wire.Envelope{Type: wire.TypeRoomCreated, Code: room.Code}) == nil

	case wire.TypeJoin:
		code := strings.ToUpper(env.Code)
		room, ok := h.srv.lookupRoom(code)
		if !ok {
			h.reject(ErrRoomNotFound.Error())
			return false
		}
		if err := room.Add(h.p); err != nil {
			h.reject(err.Error())
			return false
		}
		h.room = room

		logrus.WithFields(logrus.Fields{
			"participant": h.p.ID,
			"room":        code,
			"members":     room.MemberCount(),
		}).Info("participant joined room")

		return h.p.send(wire.Envelope{Type: wire.TypeJoinOK, Code: room.Code}) == nil

	default:
		h.reject("unexpected message")
		return false
	}
}

// relayLoop is the InRoom state: read one record at a time and broadcast it
// to every other member. Payload records stay opaque; the relay never opens
// them. A plaintext leave breaks the loop, everything else that is not an
// encrypted record is a protocol violation.
func (h *handler) relayLoop() {
	for {
		env, err := wire.ReadMessage(h.conn)
		if err != nil {
			if errors.Is(err, wire.ErrProtocol) || errors.Is(err, wire.ErrMessageTooLarge) {
				h.reject("malformed message")
			}
			return
		}

		switch env.Type {
		case wire.TypeLeave:
			return
		case wire.TypeEncrypted:
			h.room.Broadcast(env, h.p)
		default:
			h.reject("unexpected message")
			return
		}
	}
}
