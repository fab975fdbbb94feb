package relay

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet is the restricted room code alphabet: uppercase letters and
// digits with the visually confusable I, L, O, 0, 1 removed.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of a room code.
const CodeLength = 6

// newRoomCode draws a random code from the restricted alphabet.
func newRoomCode() (string, error) {
	code := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
