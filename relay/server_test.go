package relay

import (
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxring/voxring/crypto"
	"github.com/voxring/voxring/wire"
)

// testConn is a raw protocol client used to exercise the relay without the
// session package, so the wire contract is pinned independently.
type testConn struct {
	t     *testing.T
	conn  net.Conn
	keys  *crypto.KeyPair
	id    string
	key   crypto.RoomKey
	nonce crypto.Nonce
}

func startServer(t *testing.T) *Server {
	t.Helper()

	srv := NewServer()
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	go srv.Serve() //nolint:errcheck
	t.Cleanup(func() { srv.Close() })
	return srv
}

func dialServer(t *testing.T, srv *Server) *testConn {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	keys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	return &testConn{t: t, conn: conn, keys: keys}
}

func (c *testConn) send(env wire.Envelope) {
	c.t.Helper()
	require.NoError(c.t, wire.WriteMessage(c.conn, env))
}

func (c *testConn) read() wire.Envelope {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	env, err := wire.ReadMessage(c.conn)
	require.NoError(c.t, err)
	return env
}

func (c *testConn) register(name string) {
	c.t.Helper()
	c.send(wire.Envelope{
		Type: wire.TypeRegister,
		Name: name,
		Key:  base64.StdEncoding.EncodeToString(c.keys.Public[:]),
	})
	env := c.read()
	require.Equal(c.t, wire.TypeWelcome, env.Type)
	require.NotEmpty(c.t, env.ID)
	c.id = env.ID
}

func (c *testConn) acceptSymKey(env wire.Envelope) {
	c.t.Helper()
	require.Equal(c.t, wire.TypeSymKey, env.Type)

	wrapped, err := base64.StdEncoding.DecodeString(env.Data)
	require.NoError(c.t, err)
	key, err := crypto.UnwrapKey(wrapped, c.keys)
	require.NoError(c.t, err)
	require.Len(c.t, key, crypto.RoomKeySize)
	copy(c.key[:], key)

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	require.NoError(c.t, err)
	require.Len(c.t, nonce, len(c.nonce))
	copy(c.nonce[:], nonce)
}

func (c *testConn) createRoom() string {
	c.t.Helper()
	c.send(wire.Envelope{Type: wire.TypeCreateRoom})
	c.acceptSymKey(c.read())
	env := c.read()
	require.Equal(c.t, wire.TypeRoomCreated, env.Type)
	return env.Code
}

func (c *testConn) joinRoom(code string) {
	c.t.Helper()
	c.send(wire.Envelope{Type: wire.TypeJoin, Code: code})
	c.acceptSymKey(c.read())
	env := c.read()
	require.Equal(c.t, wire.TypeJoinOK, env.Type)
	require.Equal(c.t, code, env.Code)
}

// readUntil skips records until one of the wanted type arrives.
func (c *testConn) readUntil(msgType string) wire.Envelope {
	c.t.Helper()
	for {
		env := c.read()
		if env.Type == msgType {
			return env
		}
	}
}

func TestCreateAndJoinFlow(t *testing.T) {
	srv := startServer(t)

	alice := dialServer(t, srv)
	alice.register("alice")
	code := alice.createRoom()

	require.Len(t, code, CodeLength)
	for _, r := range code {
		assert.Contains(t, codeAlphabet, string(r))
	}

	bob := dialServer(t, srv)
	bob.register("bob")
	bob.joinRoom(code)

	// Both ends hold the same room key.
	assert.Equal(t, alice.key, bob.key)
	assert.Equal(t, alice.nonce, bob.nonce)

	// Alice learns of bob's arrival.
	notice := alice.readUntil(wire.TypeStatus)
	assert.Equal(t, bob.id, notice.From)
	assert.Equal(t, "bob", notice.Name)

	// A frame from alice reaches bob and decrypts; the wire record never
	// carries the payload in the clear.
	payload := []byte("jpeg-bytes")
	inner := wire.Envelope{
		Type: wire.TypeFrame,
		From: alice.id,
		Name: "alice",
		TS:   1.5,
		Data: base64.StdEncoding.EncodeToString(payload),
	}
	sealed, err := wire.Seal(inner, alice.key, alice.nonce)
	require.NoError(t, err)
	assert.NotContains(t, sealed.Data, inner.Data)
	alice.send(sealed)

	got := bob.readUntil(wire.TypeEncrypted)
	opened, err := wire.Open(got, bob.key, bob.nonce)
	require.NoError(t, err)
	assert.Equal(t, inner, opened)

	// A third party without the room key cannot open the record.
	otherKey, _ := crypto.GenerateRoomKey()
	_, err = wire.Open(got, otherKey, bob.nonce)
	assert.ErrorIs(t, err, crypto.ErrDecrypt)
}

func TestJoinUnknownRoomRejected(t *testing.T) {
	srv := startServer(t)

	c := dialServer(t, srv)
	c.register("alice")
	c.send(wire.Envelope{Type: wire.TypeJoin, Code: "ZZZZZZ"})

	env := c.read()
	assert.Equal(t, wire.TypeReject, env.Type)
	assert.Equal(t, "room does not exist", env.Reason)
}

func TestFifthJoinRejectedRoomUnaffected(t *testing.T) {
	srv := startServer(t)

	creator := dialServer(t, srv)
	creator.register("creator")
	code := creator.createRoom()

	members := []*testConn{creator}
	for i := 0; i < MaxMembers-1; i++ {
		m := dialServer(t, srv)
		m.register("member")
		m.joinRoom(code)
		members = append(members, m)
	}

	fifth := dialServer(t, srv)
	fifth.register("latecomer")
	fifth.send(wire.Envelope{Type: wire.TypeJoin, Code: code})
	env := fifth.read()
	assert.Equal(t, wire.TypeReject, env.Type)
	assert.Equal(t, "room full", env.Reason)

	// The room keeps working for its 4 members.
	inner := wire.Envelope{Type: wire.TypeChat, From: creator.id, Text: "still here"}
	sealed, err := wire.Seal(inner, creator.key, creator.nonce)
	require.NoError(t, err)
	creator.send(sealed)

	for _, m := range members[1:] {
		got := m.readUntil(wire.TypeEncrypted)
		opened, err := wire.Open(got, m.key, m.nonce)
		require.NoError(t, err)
		assert.Equal(t, "still here", opened.Text)
	}
}

func TestAbruptDisconnectCleansUp(t *testing.T) {
	srv := startServer(t)

	alice := dialServer(t, srv)
	alice.register("alice")
	code := alice.createRoom()

	bob := dialServer(t, srv)
	bob.register("bob")
	bob.joinRoom(code)
	alice.readUntil(wire.TypeStatus)

	// Socket reset, no leave message.
	require.NoError(t, bob.conn.Close())

	notice := alice.readUntil(wire.TypeLeave)
	assert.Equal(t, bob.id, notice.From)
	assert.Equal(t, "bob", notice.Name)

	// Alice leaves normally; the now-empty room must be destroyed and its
	// code freed.
	alice.send(wire.Envelope{Type: wire.TypeLeave})
	require.Eventually(t, func() bool { return srv.RoomCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestRegistrationRequiredFirst(t *testing.T) {
	srv := startServer(t)

	c := dialServer(t, srv)
	c.send(wire.Envelope{Type: wire.TypeCreateRoom})

	env := c.read()
	assert.Equal(t, wire.TypeReject, env.Type)
	assert.Equal(t, "registration required", env.Reason)
}

func TestMalformedFirstMessageRejected(t *testing.T) {
	srv := startServer(t)

	c := dialServer(t, srv)
	c.send(wire.Envelope{Type: wire.TypeRegister, Name: "alice", Key: "not-base64!!"})

	env := c.read()
	assert.Equal(t, wire.TypeReject, env.Type)
	assert.Equal(t, "malformed public key", env.Reason)
}

func TestRoomCodeFreedForReuse(t *testing.T) {
	srv := startServer(t)

	alice := dialServer(t, srv)
	alice.register("alice")
	code := alice.createRoom()
	require.Equal(t, 1, srv.RoomCount())

	alice.send(wire.Envelope{Type: wire.TypeLeave})
	require.Eventually(t, func() bool { return srv.RoomCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	// A fresh join with the dead code must be refused; the code names no
	// live room anymore.
	bob := dialServer(t, srv)
	bob.register("bob")
	bob.send(wire.Envelope{Type: wire.TypeJoin, Code: code})
	env := bob.read()
	assert.Equal(t, wire.TypeReject, env.Type)
	assert.Equal(t, "room does not exist", env.Reason)
}
