package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// RoomKeySize is the size of a room's symmetric key in bytes.
const RoomKeySize = 32

// MaxMessageSize limits plaintext size (1MB) to prevent excessive memory usage.
const MaxMessageSize = 1024 * 1024

// RoomKey is the symmetric key shared by all members of one room.
type RoomKey [RoomKeySize]byte

// Nonce is a 24-byte value used for symmetric encryption. Each room mints one
// nonce at creation and keeps it for the room's lifetime.
type Nonce [24]byte

// GenerateRoomKey creates a cryptographically secure random room key.
func GenerateRoomKey() (RoomKey, error) {
	var key RoomKey
	if _, err := rand.Read(key[:]); err != nil {
		return RoomKey{}, err
	}
	return key, nil
}

// GenerateNonce creates a cryptographically secure random nonce.
func GenerateNonce() (Nonce, error) {
	var nonce Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return Nonce{}, err
	}
	return nonce, nil
}

// EncryptSymmetric encrypts a message under the room's (key, nonce) pair.
//
// NaCl's secretbox provides both confidentiality and integrity protection,
// so tampering is detected at decryption time rather than producing garbage.
func EncryptSymmetric(message []byte, key RoomKey, nonce Nonce) ([]byte, error) {
	if len(message) == 0 {
		return nil, errors.New("empty message")
	}

	if len(message) > MaxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", len(message))
	}

	return secretbox.Seal(nil, message, (*[24]byte)(&nonce), (*[32]byte)(&key)), nil
}

// DecryptSymmetric decrypts a message encrypted with EncryptSymmetric.
// Any integrity or length inconsistency fails with ErrDecrypt.
func DecryptSymmetric(ciphertext []byte, key RoomKey, nonce Nonce) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: empty ciphertext", ErrDecrypt)
	}

	out, ok := secretbox.Open(nil, ciphertext, (*[24]byte)(&nonce), (*[32]byte)(&key))
	if !ok {
		return nil, fmt.Errorf("%w: message authentication failed", ErrDecrypt)
	}

	return out, nil
}
