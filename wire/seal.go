package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/voxring/voxring/crypto"
)

// Seal encrypts env under the room's (key, nonce) pair and returns the
// opaque record that travels on the wire. The relay forwards these without
// ever holding the plaintext payload in a decoded form.
func Seal(env Envelope, key crypto.RoomKey, nonce crypto.Nonce) (Envelope, error) {
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}

	plain, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode inner record: %w", err)
	}

	ct, err := crypto.EncryptSymmetric(plain, key, nonce)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Type: TypeEncrypted,
		Data: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// Open decrypts an encrypted record and returns the validated inner record.
// A record of any other type, or undecodable base64, is ErrProtocol; a
// ciphertext that fails authentication is crypto.ErrDecrypt.
func Open(env Envelope, key crypto.RoomKey, nonce crypto.Nonce) (Envelope, error) {
	if env.Type != TypeEncrypted {
		return Envelope{}, fmt.Errorf("%w: expected encrypted record, got %q", ErrProtocol, env.Type)
	}

	ct, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: bad ciphertext encoding: %v", ErrProtocol, err)
	}

	plain, err := crypto.DecryptSymmetric(ct, key, nonce)
	if err != nil {
		return Envelope{}, err
	}

	return Decode(plain)
}
