package crypto

import "errors"

// Sentinel errors for crypto package operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrKeySize indicates a wrap payload larger than the wrap capacity.
	ErrKeySize = errors.New("key material exceeds wrap capacity")

	// ErrDecrypt indicates corrupted, truncated, or mismatched ciphertext.
	ErrDecrypt = errors.New("decryption failed")
)
