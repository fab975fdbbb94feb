package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"
)

// WrapCapacity is the maximum payload size WrapKey accepts. Room keys are
// RoomKeySize bytes; the headroom covers any future key material that still
// fits a single wrap.
const WrapCapacity = 64

// wrapHeaderSize is the ephemeral public key plus the nonce that prefix
// every wrapped key.
const wrapHeaderSize = 32 + 24

// WrapKey encrypts key material under the recipient's public key so that
// only the holder of the matching private key can recover it.
//
// The construction is a sealed box: a fresh ephemeral key pair and nonce are
// generated per wrap, and the output is ephemeralPublic || nonce || box.Seal.
// The relay uses this to deliver a room's symmetric key to each joining
// participant individually, so late joiners need no multi-party agreement.
func WrapKey(key []byte, recipientPub [32]byte) ([]byte, error) {
	if len(key) == 0 || len(key) > WrapCapacity {
		return nil, ErrKeySize
	}

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	out := make([]byte, 0, wrapHeaderSize+len(key)+box.Overhead)
	out = append(out, ephemeralPub[:]...)
	out = append(out, nonce[:]...)
	return box.Seal(out, key, &nonce, &recipientPub, ephemeralPriv), nil
}

// UnwrapKey recovers key material wrapped for the given key pair.
// Corrupted or mismatched input fails with ErrDecrypt.
func UnwrapKey(wrapped []byte, recipient *KeyPair) ([]byte, error) {
	if len(wrapped) < wrapHeaderSize+box.Overhead {
		return nil, ErrDecrypt
	}

	var ephemeralPub [32]byte
	copy(ephemeralPub[:], wrapped[:32])

	var nonce [24]byte
	copy(nonce[:], wrapped[32:wrapHeaderSize])

	key, ok := box.Open(nil, wrapped[wrapHeaderSize:], &nonce, &ephemeralPub, &recipient.Private)
	if !ok {
		return nil, ErrDecrypt
	}

	return key, nil
}
