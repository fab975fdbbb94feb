package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize limits a single frame to 1MB. A peer announcing a larger
// frame is misbehaving and the connection should be dropped.
const MaxMessageSize = 1024 * 1024

// WriteMessage writes one length-prefixed record to w.
//
// The prefix and body go out in a single Write so concurrent writers
// serialized by a caller-held mutex never interleave partial frames.
func WriteMessage(w io.Writer, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	if len(data) > MaxMessageSize {
		return ErrMessageTooLarge
	}

	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(data)))
	copy(buf[4:], data)

	_, err = w.Write(buf)
	return err
}

// ReadMessage reads one length-prefixed record from r and validates it.
//
// I/O failures (including a clean EOF between frames) come back as the
// underlying read error; a frame that parses but violates the protocol
// comes back as ErrProtocol.
func ReadMessage(r io.Reader) (Envelope, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Envelope{}, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length == 0 {
		return Envelope{}, fmt.Errorf("%w: zero-length frame", ErrProtocol)
	}
	if length > MaxMessageSize {
		return Envelope{}, ErrMessageTooLarge
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return Envelope{}, err
	}

	return Decode(data)
}
