// Package wire defines the voxring message format and framing.
//
// Every message on a connection is a length-prefixed block: a 4-byte
// big-endian length followed by exactly that many bytes of a UTF-8 JSON
// record. Two record shapes travel over this framing: plaintext control
// records, used while no symmetric key exists (registration, key delivery,
// room admission), and encrypted records of type "enc", whose data field
// holds the base64 ciphertext of an inner record sealed under the room's
// symmetric key.
//
// Records form a closed tagged variant. Decode validates the type tag and
// the per-type required fields at the deserialization boundary; anything
// unknown or malformed is ErrProtocol, never silently ignored.
package wire
