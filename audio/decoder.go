// Package audio decodes received audio chunks for the playback collaborator.
//
// Room peers may send either Opus-framed chunks or raw 16-bit little-endian
// PCM (the legacy format). Decoder handles the Opus case via pion/opus;
// PCM16 is the raw pass-through.
package audio

import (
	"errors"
	"fmt"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// maxFrameSamples covers a 40ms frame at 48kHz, the largest frame the
// decoder buffer needs to hold.
const maxFrameSamples = 1920

// Decoder decodes Opus-framed audio chunks into int16 PCM samples.
// Not safe for concurrent use; give each sender its own decoder.
type Decoder struct {
	dec opus.Decoder
	out []byte
}

// NewDecoder creates a decoder with a reusable output buffer.
func NewDecoder() *Decoder {
	return &Decoder{
		dec: opus.NewDecoder(),
		out: make([]byte, maxFrameSamples*2),
	}
}

// Decode decodes one Opus chunk to PCM samples.
func (d *Decoder) Decode(chunk []byte) ([]int16, error) {
	if len(chunk) == 0 {
		return nil, errors.New("empty audio chunk")
	}

	bandwidth, isStereo, err := d.dec.Decode(chunk, d.out)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	sampleCount := len(d.out) / 2
	if isStereo {
		sampleCount /= 2
	}

	logrus.WithFields(logrus.Fields{
		"bandwidth": bandwidth.String(),
		"stereo":    isStereo,
		"samples":   sampleCount,
	}).Debug("decoded audio chunk")

	pcm := make([]int16, sampleCount)
	for i := 0; i < sampleCount; i++ {
		pcm[i] = int16(d.out[i*2]) | int16(d.out[i*2+1])<<8
	}
	return pcm, nil
}

// PCM16 interprets a chunk as raw 16-bit little-endian PCM.
func PCM16(chunk []byte) ([]int16, error) {
	if len(chunk) == 0 || len(chunk)%2 != 0 {
		return nil, fmt.Errorf("PCM chunk length %d is not a whole number of samples", len(chunk))
	}

	pcm := make([]int16, len(chunk)/2)
	for i := range pcm {
		pcm[i] = int16(chunk[i*2]) | int16(chunk[i*2+1])<<8
	}
	return pcm, nil
}
