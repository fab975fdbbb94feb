// Package crypto implements the key material handling for voxring rooms.
//
// It provides three things: per-connection asymmetric key pairs, a sealed-box
// key wrap used to hand a room's symmetric key to each joining participant,
// and the symmetric envelope cipher that protects all payload-bearing
// messages inside a room. Everything is built on the NaCl constructions from
// golang.org/x/crypto.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	wrapped, err := crypto.WrapKey(roomKey[:], keys.Public)
package crypto
