package pairwise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxring/voxring/crypto"
)

func handshakePair(t *testing.T) (*Session, *Session) {
	t.Helper()

	initiatorKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	responderKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	initiator, err := NewSession(initiatorKeys, responderKeys.Public[:], Initiator)
	require.NoError(t, err)
	responder, err := NewSession(responderKeys, nil, Responder)
	require.NoError(t, err)

	msg1, err := initiator.WriteHandshake()
	require.NoError(t, err)
	assert.False(t, initiator.Complete())

	require.NoError(t, responder.ReadHandshake(msg1))
	msg2, err := responder.WriteHandshake()
	require.NoError(t, err)
	assert.True(t, responder.Complete())

	require.NoError(t, initiator.ReadHandshake(msg2))
	assert.True(t, initiator.Complete())

	return initiator, responder
}

func TestHandshakeAndTransport(t *testing.T) {
	initiator, responder := handshakePair(t)

	// Both directions carry traffic.
	ct, err := initiator.Encrypt([]byte("hello responder"))
	require.NoError(t, err)
	pt, err := responder.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello responder"), pt)

	ct, err = responder.Encrypt([]byte("hello initiator"))
	require.NoError(t, err)
	pt, err = initiator.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello initiator"), pt)
}

func TestPeerAuthentication(t *testing.T) {
	initiatorKeys, _ := crypto.GenerateKeyPair()
	responderKeys, _ := crypto.GenerateKeyPair()

	initiator, err := NewSession(initiatorKeys, responderKeys.Public[:], Initiator)
	require.NoError(t, err)
	responder, err := NewSession(responderKeys, nil, Responder)
	require.NoError(t, err)

	msg1, err := initiator.WriteHandshake()
	require.NoError(t, err)
	require.NoError(t, responder.ReadHandshake(msg1))
	msg2, err := responder.WriteHandshake()
	require.NoError(t, err)
	require.NoError(t, initiator.ReadHandshake(msg2))

	peer, err := responder.PeerStatic()
	require.NoError(t, err)
	assert.Equal(t, initiatorKeys.Public[:], peer)
}

func TestTransportBeforeCompletionFails(t *testing.T) {
	keys, _ := crypto.GenerateKeyPair()
	peerKeys, _ := crypto.GenerateKeyPair()

	s, err := NewSession(keys, peerKeys.Public[:], Initiator)
	require.NoError(t, err)

	_, err = s.Encrypt([]byte("too early"))
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
	_, err = s.Decrypt([]byte("too early"))
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
}

func TestTamperedTransportMessage(t *testing.T) {
	initiator, responder := handshakePair(t)

	ct, err := initiator.Encrypt([]byte("payload"))
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0x01

	_, err = responder.Decrypt(ct)
	assert.ErrorIs(t, err, crypto.ErrDecrypt)
}

func TestWrongResponderKeyFailsHandshake(t *testing.T) {
	initiatorKeys, _ := crypto.GenerateKeyPair()
	responderKeys, _ := crypto.GenerateKeyPair()
	wrongKeys, _ := crypto.GenerateKeyPair()

	// Initiator thinks it is talking to wrongKeys.
	initiator, err := NewSession(initiatorKeys, wrongKeys.Public[:], Initiator)
	require.NoError(t, err)
	responder, err := NewSession(responderKeys, nil, Responder)
	require.NoError(t, err)

	msg1, err := initiator.WriteHandshake()
	require.NoError(t, err)
	assert.Error(t, responder.ReadHandshake(msg1))
}

func TestNewSessionValidation(t *testing.T) {
	keys, _ := crypto.GenerateKeyPair()

	_, err := NewSession(nil, nil, Responder)
	assert.Error(t, err)

	_, err = NewSession(keys, nil, Initiator)
	assert.Error(t, err)

	_, err = NewSession(keys, []byte("short"), Initiator)
	assert.Error(t, err)
}
