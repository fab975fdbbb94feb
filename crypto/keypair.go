package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"
)

// KeyPair represents a NaCl crypto_box key pair held by one participant for
// one connection. Pairs are never reused across sessions; callers generate a
// fresh pair every time they connect.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a new random NaCl key pair.
func GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Public:  *publicKey,
		Private: *privateKey,
	}, nil
}
