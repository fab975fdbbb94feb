package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/voxring/voxring/avsync"
	"github.com/voxring/voxring/crypto"
	"github.com/voxring/voxring/wire"
)

// State is the client's position in the protocol state machine.
type State int

const (
	// StateConnected means the connection is open but unregistered.
	StateConnected State = iota
	// StateRegistered means the relay assigned a participant id.
	StateRegistered
	// StateInRoom means the client holds the room key and is streaming.
	StateInRoom
	// StateClosed means the connection is gone.
	StateClosed
)

// ErrRejected wraps a reject received during registration or room admission.
var ErrRejected = errors.New("rejected by relay")

// Client is one end-to-end encrypted session with a relay.
//
// The receive loop (Run) and the caller's capture timer run concurrently;
// outbound writes serialize on an internal mutex and shared state sits
// behind another, so every exported method is safe for concurrent use.
type Client struct {
	conn   net.Conn
	keys   *crypto.KeyPair
	events Events
	buf    *avsync.Buffer

	wmu sync.Mutex // serializes writes to conn

	mu      sync.Mutex
	state   State
	id      string
	name    string
	code    string
	roomKey crypto.RoomKey
	nonce   crypto.Nonce
	hasKey  bool
	names   map[string]string // participant id → display name
}

// Dial connects to a relay and generates a fresh key pair for this session.
// Key pairs are never reused across connections.
func Dial(addr string, events Events, buf *avsync.Buffer) (*Client, error) {
	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate session keys: %w", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", addr, err)
	}

	if events == nil {
		events = NopEvents{}
	}

	return &Client{
		conn:   conn,
		keys:   keys,
		events: events,
		buf:    buf,
		names:  make(map[string]string),
	}, nil
}

// State returns the current protocol state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID returns the relay-assigned participant id. Empty before registration.
func (c *Client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// RoomCode returns the joined room's code. Empty outside a room.
func (c *Client) RoomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

func (c *Client) write(env wire.Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wire.WriteMessage(c.conn, env)
}

// Register declares the display name and obtains a participant id.
func (c *Client) Register(name string) error {
	if err := c.write(wire.Envelope{
		Type: wire.TypeRegister,
		Name: name,
		Key:  base64.StdEncoding.EncodeToString(c.keys.Public[:]),
	}); err != nil {
		return err
	}

	env, err := wire.ReadMessage(c.conn)
	if err != nil {
		return err
	}

	switch env.Type {
	case wire.TypeWelcome:
		c.mu.Lock()
		c.id = env.ID
		c.name = name
		c.state = StateRegistered
		c.names[env.ID] = name
		c.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"participant": env.ID,
			"name":        name,
		}).Info("registered with relay")
		return nil

	case wire.TypeReject:
		c.events.OnReject(env.Reason)
		return fmt.Errorf("%w: %s", ErrRejected, env.Reason)

	default:
		return fmt.Errorf("%w: unexpected %s during registration", wire.ErrProtocol, env.Type)
	}
}

// CreateRoom asks the relay for a fresh room and returns its code. The
// relay delivers the wrapped room key before the room_created reply.
func (c *Client) CreateRoom() (string, error) {
	if err := c.write(wire.Envelope{Type: wire.TypeCreateRoom}); err != nil {
		return "", err
	}
	return c.awaitAdmission(wire.TypeRoomCreated)
}

// JoinRoom joins an existing room by code. A reject (unknown code, room
// full) is terminal for this attempt: the client stays registered and the
// caller may try again with a different code. The reason is also surfaced
// through Events.
func (c *Client) JoinRoom(code string) error {
	if err := c.write(wire.Envelope{Type: wire.TypeJoin, Code: strings.ToUpper(code)}); err != nil {
		return err
	}
	_, err := c.awaitAdmission(wire.TypeJoinOK)
	return err
}

// awaitAdmission consumes records until the admission reply arrives,
// accepting the sym_key delivery on the way.
func (c *Client) awaitAdmission(okType string) (string, error) {
	for {
		env, err := wire.ReadMessage(c.conn)
		if err != nil {
			return "", err
		}

		switch env.Type {
		case wire.TypeSymKey:
			if err := c.acceptRoomKey(env); err != nil {
				return "", err
			}

		case okType:
			c.mu.Lock()
			c.code = env.Code
			c.state = StateInRoom
			c.mu.Unlock()

			logrus.WithFields(logrus.Fields{
				"room": env.Code,
			}).Info("entered room")
			return env.Code, nil

		case wire.TypeReject:
			c.events.OnReject(env.Reason)
			return "", fmt.Errorf("%w: %s", ErrRejected, env.Reason)

		default:
			return "", fmt.Errorf("%w: unexpected %s during room admission", wire.ErrProtocol, env.Type)
		}
	}
}

// acceptRoomKey unwraps a sym_key delivery with the session private key.
func (c *Client) acceptRoomKey(env wire.Envelope) error {
	wrapped, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return fmt.Errorf("%w: bad sym_key encoding: %v", wire.ErrProtocol, err)
	}

	key, err := crypto.UnwrapKey(wrapped, c.keys)
	if err != nil {
		return err
	}
	if len(key) != crypto.RoomKeySize {
		return fmt.Errorf("%w: unexpected room key size %d", crypto.ErrDecrypt, len(key))
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonce) != len(c.nonce) {
		return fmt.Errorf("%w: bad nonce encoding", wire.ErrProtocol)
	}

	c.mu.Lock()
	copy(c.roomKey[:], key)
	copy(c.nonce[:], nonce)
	c.hasKey = true
	c.mu.Unlock()

	return nil
}

// Run is the blocking receive loop. It returns nil after a clean close and
// the transport error otherwise. A decrypt failure closes the connection:
// with no trusted channel left there is nothing useful to report to the
// relay.
func (c *Client) Run() error {
	defer c.Close()

	for {
		env, err := wire.ReadMessage(c.conn)
		if err != nil {
			if c.State() == StateClosed {
				return nil
			}
			return err
		}

		if err := c.dispatch(env); err != nil {
			if errors.Is(err, crypto.ErrDecrypt) {
				logrus.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Error("record failed to decrypt, closing session")
				return err
			}
			logrus.WithFields(logrus.Fields{
				"type":  env.Type,
				"error": err.Error(),
			}).Warn("dropping bad record")
		}
	}
}

func (c *Client) dispatch(env wire.Envelope) error {
	switch env.Type {
	case wire.TypeEncrypted:
		c.mu.Lock()
		key, nonce, hasKey := c.roomKey, c.nonce, c.hasKey
		c.mu.Unlock()
		if !hasKey {
			return fmt.Errorf("%w: encrypted record before key delivery", wire.ErrProtocol)
		}

		inner, err := wire.Open(env, key, nonce)
		if err != nil {
			return err
		}
		return c.dispatchPayload(inner)

	case wire.TypeSymKey:
		return c.acceptRoomKey(env)

	case wire.TypeStatus:
		if env.From != "" {
			c.rememberName(env.From, env.Name)
			c.events.OnPeerJoined(env.From, env.Name)
		}
		c.events.OnStatus(env.Text)
		return nil

	case wire.TypeLeave:
		c.mu.Lock()
		delete(c.names, env.From)
		c.mu.Unlock()
		if c.buf != nil {
			c.buf.DropSender(env.From)
		}
		c.events.OnPeerLeft(env.From, env.Name)
		return nil

	case wire.TypeReject:
		c.events.OnReject(env.Reason)
		c.Close()
		return nil

	default:
		return fmt.Errorf("%w: unexpected %s record", wire.ErrProtocol, env.Type)
	}
}

// dispatchPayload routes a decrypted inner record.
func (c *Client) dispatchPayload(env wire.Envelope) error {
	c.rememberName(env.From, env.Name)

	switch env.Type {
	case wire.TypeFrame:
		data, err := base64.StdEncoding.DecodeString(env.Data)
		if err != nil {
			return fmt.Errorf("%w: bad frame payload", wire.ErrProtocol)
		}
		if c.buf != nil {
			c.buf.OnVideo(env.From, env.TS, data)
		}
		return nil

	case wire.TypeAudio:
		data, err := base64.StdEncoding.DecodeString(env.Data)
		if err != nil {
			return fmt.Errorf("%w: bad audio payload", wire.ErrProtocol)
		}
		if c.buf != nil {
			c.buf.OnAudio(env.From, env.TS, data)
		}
		return nil

	case wire.TypeChat:
		c.events.OnChat(env.From, c.displayName(env.From, env.Name), env.Text)
		return nil

	case wire.TypeMute:
		c.events.OnMute(env.From, env.Name, env.State)
		return nil

	case wire.TypeCamera:
		c.events.OnCamera(env.From, env.Name, env.State)
		return nil

	default:
		return fmt.Errorf("%w: unexpected %s payload", wire.ErrProtocol, env.Type)
	}
}

func (c *Client) rememberName(id, name string) {
	if id == "" || name == "" {
		return
	}
	c.mu.Lock()
	c.names[id] = name
	c.mu.Unlock()
}

// displayName resolves a participant id against the name table, falling
// back to whatever the record itself carried.
func (c *Client) displayName(id, fallback string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.names[id]; ok {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return id
}

// sendSealed seals an inner payload record and writes it.
func (c *Client) sendSealed(inner wire.Envelope) error {
	c.mu.Lock()
	key, nonce, hasKey := c.roomKey, c.nonce, c.hasKey
	state := c.state
	c.mu.Unlock()

	if state != StateInRoom || !hasKey {
		return errors.New("not in a room")
	}

	sealed, err := wire.Seal(inner, key, nonce)
	if err != nil {
		return err
	}
	return c.write(sealed)
}

// SendFrame sends one encoded video frame stamped with the sender-local
// timestamp ts.
func (c *Client) SendFrame(ts float64, frame []byte) error {
	return c.sendSealed(wire.Envelope{
		Type: wire.TypeFrame,
		From: c.ID(),
		Name: c.name,
		TS:   ts,
		Data: base64.StdEncoding.EncodeToString(frame),
	})
}

// SendAudio sends one audio chunk stamped with the sender-local timestamp.
func (c *Client) SendAudio(ts float64, chunk []byte) error {
	return c.sendSealed(wire.Envelope{
		Type: wire.TypeAudio,
		From: c.ID(),
		Name: c.name,
		TS:   ts,
		Data: base64.StdEncoding.EncodeToString(chunk),
	})
}

// SendChat sends a chat line to the room.
func (c *Client) SendChat(text string) error {
	return c.sendSealed(wire.Envelope{
		Type: wire.TypeChat,
		From: c.ID(),
		Name: c.name,
		Text: text,
	})
}

// SetMuted announces the local mute state to the room.
func (c *Client) SetMuted(muted bool) error {
	return c.sendSealed(wire.Envelope{
		Type:  wire.TypeMute,
		From:  c.ID(),
		Name:  c.name,
		State: muted,
	})
}

// SetCamera announces the local camera state to the room.
func (c *Client) SetCamera(enabled bool) error {
	return c.sendSealed(wire.Envelope{
		Type:  wire.TypeCamera,
		From:  c.ID(),
		Name:  c.name,
		State: enabled,
	})
}

// Leave tells the relay the session is over and closes the connection.
func (c *Client) Leave() error {
	err := c.write(wire.Envelope{Type: wire.TypeLeave})
	c.Close()
	return err
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	alreadyClosed := c.state == StateClosed
	c.state = StateClosed
	c.mu.Unlock()

	if alreadyClosed {
		return nil
	}
	return c.conn.Close()
}
