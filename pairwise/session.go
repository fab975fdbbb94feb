// Package pairwise implements the two-party direct session strategy.
//
// This is the alternate key-agreement lineage: instead of a relay-held room
// key wrapped per participant, the two peers authenticate each other and
// derive transport keys with a Noise IK handshake. It is strictly
// two-party (rooms keep using the key-wrap path) and exists for direct
// 1:1 calls that bypass the relay entirely.
package pairwise

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"

	"github.com/voxring/voxring/crypto"
)

var (
	// ErrHandshakeNotComplete indicates transport use before the handshake
	// finished.
	ErrHandshakeNotComplete = errors.New("handshake not complete")

	// ErrHandshakeComplete indicates a handshake message after completion.
	ErrHandshakeComplete = errors.New("handshake already complete")
)

// Role defines which side of the handshake we are.
type Role uint8

const (
	// Initiator starts the handshake and must know the peer's public key.
	Initiator Role = iota
	// Responder answers the handshake.
	Responder
)

// Session is one end of a two-party encrypted channel.
//
// Handshake flow: the initiator calls WriteHandshake and sends the result;
// the responder calls ReadHandshake, then WriteHandshake and sends the
// reply; the initiator calls ReadHandshake. Both sides are then complete
// and Encrypt/Decrypt carry the conversation.
type Session struct {
	role     Role
	hs       *noise.HandshakeState
	send     *noise.CipherState
	recv     *noise.CipherState
	complete bool
}

// NewSession creates one end of a direct session. The initiator must supply
// the peer's static public key; the responder passes nil.
func NewSession(keys *crypto.KeyPair, peerPub []byte, role Role) (*Session, error) {
	if keys == nil {
		return nil, errors.New("key pair required")
	}
	if role == Initiator && len(peerPub) != 32 {
		return nil, fmt.Errorf("initiator requires peer public key (32 bytes), got %d", len(peerPub))
	}

	static := noise.DHKey{
		Private: append([]byte(nil), keys.Private[:]...),
		Public:  append([]byte(nil), keys.Public[:]...),
	}

	cfg := noise.Config{
		CipherSuite:   noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256),
		Random:        rand.Reader,
		Pattern:       noise.HandshakeIK,
		Initiator:     role == Initiator,
		StaticKeypair: static,
	}
	if role == Initiator {
		cfg.PeerStatic = append([]byte(nil), peerPub...)
	}

	hs, err := noise.NewHandshakeState(cfg)
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	return &Session{role: role, hs: hs}, nil
}

// Complete reports whether the handshake finished on this side.
func (s *Session) Complete() bool {
	return s.complete
}

// WriteHandshake produces the next handshake message to send.
func (s *Session) WriteHandshake() ([]byte, error) {
	if s.complete {
		return nil, ErrHandshakeComplete
	}

	msg, cs0, cs1, err := s.hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("handshake write failed: %w", err)
	}

	if cs0 != nil {
		// Responder finishes on its write of the second message.
		s.send, s.recv = cs0, cs1
		s.complete = true
	}
	return msg, nil
}

// ReadHandshake consumes a received handshake message.
func (s *Session) ReadHandshake(msg []byte) error {
	if s.complete {
		return ErrHandshakeComplete
	}

	_, cs0, cs1, err := s.hs.ReadMessage(nil, msg)
	if err != nil {
		return fmt.Errorf("handshake read failed: %w", err)
	}

	if cs0 != nil {
		// Initiator finishes on its read of the second message. The pair
		// comes back mirrored relative to the responder's split.
		s.recv, s.send = cs0, cs1
		s.complete = true
	}
	return nil
}

// Encrypt seals a transport message for the peer.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	if !s.complete {
		return nil, ErrHandshakeNotComplete
	}
	return s.send.Encrypt(nil, nil, plaintext)
}

// Decrypt opens a transport message from the peer. Authentication failure
// surfaces as crypto.ErrDecrypt.
func (s *Session) Decrypt(ciphertext []byte) ([]byte, error) {
	if !s.complete {
		return nil, ErrHandshakeNotComplete
	}

	plain, err := s.recv.Decrypt(nil, nil, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrDecrypt, err)
	}
	return plain, nil
}

// PeerStatic returns the peer's authenticated static public key.
func (s *Session) PeerStatic() ([]byte, error) {
	if !s.complete {
		return nil, ErrHandshakeNotComplete
	}
	return append([]byte(nil), s.hs.PeerStatic()...), nil
}
